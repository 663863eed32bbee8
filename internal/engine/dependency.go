package engine

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/store"
)

// AddEdge records that dest was derived from source.
//
// Both endpoints must name existing object-versions. Re-disclosing an
// identical (dest, source, type) edge is not an error: it reports
// ir.OutcomeDuplicateIgnored and stores nothing.
func (e *Engine) AddEdge(ctx context.Context, dest, source ir.ObjectVersion, t ir.DependencyType) (ir.Outcome, error) {
	if !t.Storable() {
		return ir.OutcomeOK, errorf(CodeEdgeInvalid).
			With("type", uint16(t)).
			Wrapf(ErrInvalidArgument, "add edge: %s cannot be disclosed", t)
	}
	if dest == source {
		return ir.OutcomeOK, errorf(CodeEdgeInvalid).
			With("dest", dest.String()).
			Wrapf(ErrInvalidArgument, "add edge: %s depends on itself", dest)
	}
	if err := e.checkEndpoint(ctx, "dest", dest); err != nil {
		return ir.OutcomeOK, err
	}
	if err := e.checkEndpoint(ctx, "source", source); err != nil {
		return ir.OutcomeOK, err
	}

	var inserted bool
	err := e.withRetry(ctx, "add_edge", func() error {
		var err error
		inserted, err = e.backend.AddEdge(ctx, ir.Edge{Dest: dest, Source: source, Type: t})
		return err
	})
	if err != nil {
		return ir.OutcomeOK, fromStore(err, CodeEdgeInvalid, "add edge %s <- %s", dest, source)
	}

	outcome := ir.OutcomeOK
	if !inserted {
		outcome = ir.OutcomeDuplicateIgnored
	}
	e.logger.WithFields(logrus.Fields{
		"dest":    dest.String(),
		"source":  source.String(),
		"type":    t.String(),
		"outcome": outcome.String(),
	}).Debug("dependency disclosed")
	return outcome, nil
}

// DataFlow records a data dependency between the current versions of two objects.
func (e *Engine) DataFlow(ctx context.Context, dest, source ir.ObjectID, t ir.DependencyType) (ir.Outcome, error) {
	return e.flow(ctx, ir.CategoryData, dest, source, ir.AllVersions, t)
}

// ControlFlow records a control dependency between the current versions of two objects.
func (e *Engine) ControlFlow(ctx context.Context, dest, source ir.ObjectID, t ir.DependencyType) (ir.Outcome, error) {
	return e.flow(ctx, ir.CategoryControl, dest, source, ir.AllVersions, t)
}

// DataFlowExt records a data dependency on an explicit source version.
// The destination resolves to its current version.
func (e *Engine) DataFlowExt(ctx context.Context, dest ir.ObjectID, source ir.ObjectVersion, t ir.DependencyType) (ir.Outcome, error) {
	if source.Version < 0 {
		return ir.OutcomeOK, errorf(CodeEdgeInvalid).
			With("source", source.String()).
			Wrapf(ErrInvalidArgument, "data flow: source %s has no version", source)
	}
	return e.flow(ctx, ir.CategoryData, dest, source.ID, source.Version, t)
}

// ControlFlowExt records a control dependency on an explicit source version.
// The destination resolves to its current version.
func (e *Engine) ControlFlowExt(ctx context.Context, dest ir.ObjectID, source ir.ObjectVersion, t ir.DependencyType) (ir.Outcome, error) {
	if source.Version < 0 {
		return ir.OutcomeOK, errorf(CodeEdgeInvalid).
			With("source", source.String()).
			Wrapf(ErrInvalidArgument, "control flow: source %s has no version", source)
	}
	return e.flow(ctx, ir.CategoryControl, dest, source.ID, source.Version, t)
}

// flow resolves the object form of a disclosure. A negative sourceVersion
// means the source's current version.
func (e *Engine) flow(ctx context.Context, category ir.Category, dest, source ir.ObjectID, sourceVersion ir.Version, t ir.DependencyType) (ir.Outcome, error) {
	if !t.Valid() || t.Category() != category {
		return ir.OutcomeOK, errorf(CodeEdgeInvalid).
			With("type", uint16(t), "category", uint8(category)).
			Wrapf(ErrInvalidArgument, "flow: %s is not a %s dependency", t, ir.Dependency(category, 0))
	}

	destVersion, err := e.endpointVersion(ctx, "dest", dest)
	if err != nil {
		return ir.OutcomeOK, err
	}
	if sourceVersion < 0 {
		sourceVersion, err = e.endpointVersion(ctx, "source", source)
		if err != nil {
			return ir.OutcomeOK, err
		}
	}
	return e.AddEdge(ctx, ir.At(dest, destVersion), ir.At(source, sourceVersion), t)
}

// HasImmediateAncestor reports whether a stored edge leads from query to
// some version of ancestor.
//
// query.Version bounds the dependent versions considered and may be
// ir.AllVersions. ancestorMaxVersion bounds the ancestor versions and may
// be ir.NoVersion for any.
func (e *Engine) HasImmediateAncestor(ctx context.Context, query ir.ObjectVersion, ancestor ir.ObjectID, ancestorMaxVersion ir.Version) (bool, error) {
	if query.ID.IsNone() || ancestor.IsNone() {
		return false, errorf(CodeAncestryInvalid).Wrapf(ErrInvalidArgument, "has immediate ancestor: id is none")
	}
	if _, err := e.GetVersion(ctx, query.ID); err != nil {
		return false, err
	}

	edges, err := e.backend.Edges(ctx, queryir.EdgeQuery{
		Anchor:    ir.At(query.ID, ir.AllVersions),
		Direction: ir.Ancestors,
	})
	if err != nil {
		return false, fromStore(err, CodeAncestryNotFound, "has immediate ancestor %s", query)
	}
	for _, edge := range edges {
		if !query.Version.IsAll() && edge.Dest.Version > query.Version {
			continue
		}
		if edge.Source.ID != ancestor {
			continue
		}
		if ancestorMaxVersion >= 0 && edge.Source.Version > ancestorMaxVersion {
			continue
		}
		return true, nil
	}
	return false, nil
}

// checkEndpoint verifies that ov names an existing object-version.
func (e *Engine) checkEndpoint(ctx context.Context, role string, ov ir.ObjectVersion) error {
	if ov.ID.IsNone() || ov.Version < 0 {
		return errorf(CodeEdgeInvalid).
			With(role, ov.String()).
			Wrapf(ErrInvalidArgument, "%s %s is not an object-version", role, ov)
	}
	current, err := e.endpointVersion(ctx, role, ov.ID)
	if err != nil {
		return err
	}
	if ov.Version > current {
		return errorf(CodeEdgeInvalid).
			With(role, ov.String(), "current", int(current)).
			Wrapf(ErrInvalidArgument, "%s %s is newer than current version %d", role, ov, current)
	}
	return nil
}

// endpointVersion returns the current version of an edge endpoint. A
// missing object is an invalid argument, not a lookup miss.
func (e *Engine) endpointVersion(ctx context.Context, role string, id ir.ObjectID) (ir.Version, error) {
	if id.IsNone() {
		return ir.NoVersion, errorf(CodeEdgeInvalid).Wrapf(ErrInvalidArgument, "%s id is none", role)
	}
	current, err := e.backend.CurrentVersion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ir.NoVersion, errorf(CodeEdgeInvalid).
			With(role, id.String()).
			Wrapf(ErrInvalidArgument, "%s %s does not exist", role, id)
	}
	if err != nil {
		return ir.NoVersion, fromStore(err, CodeEdgeInvalid, "resolve %s %s", role, id)
	}
	return current, nil
}
