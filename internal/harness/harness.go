package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/store/kv"
	"github.com/roach88/lineage/internal/testutil"
)

// Harness applies scenarios to one engine.
type Harness struct {
	engine *engine.Engine
	logger *logrus.Logger
}

// New creates a harness over an existing engine. Used by `lineage import`
// to apply a scenario to a real store.
func New(eng *engine.Engine, logger *logrus.Logger) *Harness {
	if logger == nil {
		logger = store.DiscardLogger()
	}
	return &Harness{engine: eng, logger: logger}
}

// Run executes a scenario and evaluates its assertions.
//
// Each scenario runs in a fresh in-memory store for isolation.
// Deterministic helpers ensure reproducible ids and trace.
//
// Execution flow:
// 1. Create fresh in-memory store and engine
// 2. Look up or create declared objects
// 3. Apply steps, checking each step's expectation
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	backend, err := kv.Open("", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer backend.Close()

	eng, err := engine.New(ctx, backend,
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDs()),
		engine.WithOriginator("harness"),
		engine.WithProgram("lineage-harness", ir.EngineVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	h := New(eng, nil)
	result, err := h.Apply(ctx, scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range h.Evaluate(ctx, scenario.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

// Apply creates the scenario's objects and applies its steps.
//
// A step whose outcome differs from its expectation is recorded in
// Result.Errors and execution continues. An error is returned only when
// the scenario cannot proceed (an object cannot be created).
func (h *Harness) Apply(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	for i, decl := range scenario.Objects {
		var container *ir.ObjectVersion
		if decl.Container != "" {
			ov, err := h.resolve(ctx, result, decl.Container, false)
			if err != nil {
				return nil, fmt.Errorf("objects[%d]: %w", i, err)
			}
			container = &ov
		}
		id, outcome, err := h.engine.LookupOrCreateObject(ctx, decl.Originator, decl.Name, decl.Type, container)
		if err != nil {
			return nil, fmt.Errorf("objects[%d] %s: %w", i, decl.Alias, err)
		}
		result.Objects[decl.Alias] = id
		result.AddTrace(TraceEvent{
			Step:    i,
			Op:      "object",
			Target:  decl.Alias,
			Detail:  ir.ObjectKey{Originator: decl.Originator, Name: decl.Name, Type: decl.Type}.String(),
			ID:      id,
			Outcome: outcome.String(),
		})
	}

	for i, step := range scenario.Steps {
		ev, err := h.applyStep(ctx, result, step)
		ev.Step = i
		got := outcomeOf(ev.Outcome, err)
		if err != nil {
			ev.Outcome = got
		}
		result.AddTrace(ev)

		want := step.Expect
		if want == "" {
			want = ExpectOK
		}
		if got != want {
			msg := fmt.Sprintf("steps[%d] %s: expected %s, got %s", i, step.Op, want, got)
			if err != nil {
				msg += ": " + err.Error()
			}
			result.AddError(msg)
		}

		h.logger.WithFields(logrus.Fields{
			"step":    i,
			"op":      step.Op,
			"outcome": got,
		}).Debug("scenario step applied")
	}
	return result, nil
}

// applyStep performs one step and returns its trace event.
func (h *Harness) applyStep(ctx context.Context, result *Result, step Step) (TraceEvent, error) {
	switch step.Op {
	case OpNewVersion:
		ev := TraceEvent{Op: step.Op, Target: step.Object}
		id, err := h.alias(result, step.Object)
		if err != nil {
			return ev, err
		}
		ev.ID = id
		v, err := h.engine.NewVersion(ctx, id)
		if err != nil {
			return ev, err
		}
		ev.Detail = fmt.Sprintf("version %d", v)
		ev.Outcome = ExpectOK
		return ev, nil

	case OpDataFlow, OpControlFlow:
		ev := TraceEvent{Op: step.Op, Target: step.Dest, Source: step.Source}
		t, err := dependencyType(step.Op, step.Subtype)
		if err != nil {
			return ev, errors.Join(engine.ErrInvalidArgument, err)
		}
		ev.Detail = t.String()
		dest, err := h.alias(result, step.Dest)
		if err != nil {
			return ev, err
		}
		ev.ID = dest
		ref, err := ParseRef(step.Source)
		if err != nil {
			return ev, err
		}
		source, err := h.alias(result, ref.Alias)
		if err != nil {
			return ev, err
		}

		var outcome ir.Outcome
		switch {
		case step.Op == OpDataFlow && ref.Explicit:
			outcome, err = h.engine.DataFlowExt(ctx, dest, ir.At(source, ref.Version), t)
		case step.Op == OpDataFlow:
			outcome, err = h.engine.DataFlow(ctx, dest, source, t)
		case ref.Explicit:
			outcome, err = h.engine.ControlFlowExt(ctx, dest, ir.At(source, ref.Version), t)
		default:
			outcome, err = h.engine.ControlFlow(ctx, dest, source, t)
		}
		if err != nil {
			return ev, err
		}
		ev.Outcome = ExpectOK
		if outcome == ir.OutcomeDuplicateIgnored {
			ev.Outcome = ExpectDuplicate
		}
		return ev, nil

	case OpProperty:
		ev := TraceEvent{Op: step.Op, Target: step.Object, Detail: step.Key + "=" + step.Value}
		ov, err := h.resolve(ctx, result, step.Object, true)
		if err != nil {
			return ev, err
		}
		ev.ID = ov.ID
		if err := h.engine.AddProperty(ctx, ov, step.Key, step.Value); err != nil {
			return ev, err
		}
		ev.Outcome = ExpectOK
		return ev, nil

	default:
		return TraceEvent{Op: step.Op}, fmt.Errorf("%w: unknown op %q", engine.ErrInvalidArgument, step.Op)
	}
}

// alias returns the id declared under alias.
func (h *Harness) alias(result *Result, alias string) (ir.ObjectID, error) {
	id, ok := result.Objects[alias]
	if !ok {
		return ir.None, fmt.Errorf("%w: undeclared alias %q", engine.ErrInvalidArgument, alias)
	}
	return id, nil
}

// resolve turns a reference into an object-version. Without an explicit
// version the reference resolves to the current version when current is
// true and to ir.AllVersions otherwise.
func (h *Harness) resolve(ctx context.Context, result *Result, s string, current bool) (ir.ObjectVersion, error) {
	ref, err := ParseRef(s)
	if err != nil {
		return ir.ObjectVersion{}, err
	}
	id, err := h.alias(result, ref.Alias)
	if err != nil {
		return ir.ObjectVersion{}, err
	}
	if ref.Explicit || !current {
		return ir.At(id, ref.Version), nil
	}
	v, err := h.engine.GetVersion(ctx, id)
	if err != nil {
		return ir.ObjectVersion{}, err
	}
	return ir.At(id, v), nil
}

// dependencyType maps a flow op and subtype name to a dependency type.
func dependencyType(op, subtype string) (ir.DependencyType, error) {
	if op == OpControlFlow {
		return ir.ControlSubtype(subtype)
	}
	return ir.DataSubtype(subtype)
}

// outcomeOf names the result of a step in expectation vocabulary.
func outcomeOf(outcome string, err error) string {
	switch {
	case err == nil:
		return outcome
	case errors.Is(err, engine.ErrInvalidArgument):
		return ExpectInvalidArgument
	case errors.Is(err, engine.ErrNotFound):
		return ExpectNotFound
	default:
		return "error"
	}
}
