package ir

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns s in Unicode NFC form.
//
// Names, types, originators and property keys are compared byte-wise by
// every backend, so two spellings of "café" must collapse to one form
// before they are stored or looked up.
func Normalize(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Normalize returns the key with every component NFC normalized and
// surrounding whitespace removed from originator and type.
func (k ObjectKey) Normalize() ObjectKey {
	return ObjectKey{
		Originator: Normalize(strings.TrimSpace(k.Originator)),
		Name:       Normalize(k.Name),
		Type:       Normalize(strings.TrimSpace(k.Type)),
	}
}
