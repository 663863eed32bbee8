package engine

import (
	"context"

	"github.com/roach88/lineage/internal/ir"
)

// GetVersion returns the current version of an object.
func (e *Engine) GetVersion(ctx context.Context, id ir.ObjectID) (ir.Version, error) {
	if id.IsNone() {
		return ir.NoVersion, errorf(CodeVersionInvalid).Wrapf(ErrInvalidArgument, "get version: id is none")
	}
	v, err := e.backend.CurrentVersion(ctx, id)
	if err != nil {
		return ir.NoVersion, fromStore(err, CodeVersionGetNotFound, "get version %s", id)
	}
	return v, nil
}

// NewVersion appends a version to an object and returns it.
//
// The append is a compare-and-swap on the current version: a caller that
// loses a race rereads and tries again, so concurrent callers observe
// distinct, consecutive results.
func (e *Engine) NewVersion(ctx context.Context, id ir.ObjectID) (ir.Version, error) {
	if id.IsNone() {
		return ir.NoVersion, errorf(CodeVersionInvalid).Wrapf(ErrInvalidArgument, "new version: id is none")
	}

	var next ir.Version
	err := e.withRetry(ctx, "new_version", func() error {
		current, err := e.backend.CurrentVersion(ctx, id)
		if err != nil {
			return err
		}
		next = current + 1
		return e.backend.CreateVersion(ctx, ir.VersionInfo{
			ObjectVersion: ir.At(id, next),
			Session:       e.session.ID,
			CreationTime:  e.clock.Now(),
		})
	})
	if err != nil {
		return ir.NoVersion, fromStore(err, CodeVersionGetNotFound, "new version %s", id)
	}

	e.logger.WithField("id", id.String()).WithField("version", int(next)).Debug("version created")
	return next, nil
}

// GetObjectInfo returns the identity record of an object with its current version.
func (e *Engine) GetObjectInfo(ctx context.Context, id ir.ObjectID) (ir.Object, error) {
	if id.IsNone() {
		return ir.Object{}, errorf(CodeObjectInfoNotFound).Wrapf(ErrInvalidArgument, "object info: id is none")
	}
	obj, err := e.backend.GetObject(ctx, id)
	if err != nil {
		return ir.Object{}, fromStore(err, CodeObjectInfoNotFound, "object info %s", id)
	}
	return obj, nil
}

// GetVersionInfo returns the session and time that created an object-version.
func (e *Engine) GetVersionInfo(ctx context.Context, ov ir.ObjectVersion) (ir.VersionInfo, error) {
	if ov.ID.IsNone() || ov.Version < 0 {
		return ir.VersionInfo{}, errorf(CodeVersionInvalid).
			With("object", ov.String()).
			Wrapf(ErrInvalidArgument, "version info: %s is not an object-version", ov)
	}
	info, err := e.backend.GetVersionInfo(ctx, ov)
	if err != nil {
		return ir.VersionInfo{}, fromStore(err, CodeVersionGetNotFound, "version info %s", ov)
	}
	return info, nil
}
