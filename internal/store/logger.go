package store

import (
	"io"

	"github.com/sirupsen/logrus"
)

// DiscardLogger returns a logger that drops every entry.
func DiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
