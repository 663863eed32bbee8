package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
)

// Engine is the provenance graph engine for one writer session.
//
// Thread-safety model:
//   - every method is safe from any goroutine
//   - the Engine holds no mutable state besides its id counter and clock
//   - cross-process atomicity is delegated to the backend
type Engine struct {
	backend store.Backend
	logger  *logrus.Logger
	clock   Clock
	ids     IDGenerator
	retry   RetryPolicy
	session ir.Session
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger. Default: output discarded.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the clock used for creation times.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the identifier allocator.
//
// Default: NewRandomSiteGenerator().
// Tests use a deterministic generator for golden output.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithRetryPolicy bounds the internal retry of storage conflicts.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// WithOriginator records the originator of the engine's session.
func WithOriginator(originator string) Option {
	return func(e *Engine) {
		e.session.Originator = originator
	}
}

// WithProgram overrides the program name and version recorded for the session.
// Default: the executable's base name and an empty version.
func WithProgram(name, version string) Option {
	return func(e *Engine) {
		e.session.Program = name
		e.session.ProgramVersion = version
	}
}

// New creates an Engine over backend and records its session.
//
// The caller owns backend and closes it after the engine is no longer used.
func New(ctx context.Context, backend store.Backend, opts ...Option) (*Engine, error) {
	e := &Engine{
		backend: backend,
		retry:   DefaultRetryPolicy(),
		session: processSession(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = store.DiscardLogger()
	}
	if e.clock == nil {
		e.clock = NewSystemClock()
	}
	if e.ids == nil {
		e.ids = NewRandomSiteGenerator()
	}

	e.session.ID = e.ids.NextID()
	e.session.StartTime = e.clock.Now()
	if err := e.backend.CreateSession(ctx, e.session); err != nil {
		return nil, fromStore(err, CodeSessionNotFound, "record session %s", e.session.ID)
	}

	e.logger.WithFields(logrus.Fields{
		"session":    e.session.ID.String(),
		"originator": e.session.Originator,
		"program":    e.session.Program,
		"pid":        e.session.PID,
	}).Info("lineage session started")
	return e, nil
}

// Session returns the engine's own session record.
func (e *Engine) Session() ir.Session {
	return e.session
}

// Backend returns the storage backend the engine writes to.
func (e *Engine) Backend() store.Backend {
	return e.backend
}

// GetSessionInfo returns the session with the given id.
func (e *Engine) GetSessionInfo(ctx context.Context, id ir.ObjectID) (ir.Session, error) {
	if id.IsNone() {
		return ir.Session{}, errorf(CodeSessionNotFound).Wrapf(ErrInvalidArgument, "session id is none")
	}
	s, err := e.backend.GetSession(ctx, id)
	if err != nil {
		return ir.Session{}, fromStore(err, CodeSessionNotFound, "get session %s", id)
	}
	return s, nil
}
