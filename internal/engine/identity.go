package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/store"
)

// FileMode selects how LookupFile treats a path with no registered object.
type FileMode uint8

const (
	// FileLookupOnly fails with ErrNotFound when the file has no object.
	FileLookupOnly FileMode = iota
	// FileCreateIfMissing creates an object when none is registered.
	FileCreateIfMissing
	// FileAlwaysCreate creates a new object even if one is registered.
	FileAlwaysCreate
)

// String returns the mode name.
func (m FileMode) String() string {
	switch m {
	case FileLookupOnly:
		return "lookup"
	case FileCreateIfMissing:
		return "create-if-missing"
	case FileAlwaysCreate:
		return "always-create"
	default:
		return "unknown"
	}
}

// CreateObject registers a new object and its version 0.
//
// The key components must be non-empty after normalization. A non-nil
// container must name an existing object-version.
func (e *Engine) CreateObject(ctx context.Context, originator, name, typ string, container *ir.ObjectVersion) (ir.ObjectID, error) {
	key, err := e.checkKey(originator, name, typ)
	if err != nil {
		return ir.None, err
	}
	if err := e.checkContainer(ctx, container); err != nil {
		return ir.None, err
	}

	var obj ir.Object
	err = e.withRetry(ctx, "create_object", func() error {
		obj = e.newObject(key, container)
		return e.backend.CreateObject(ctx, obj)
	})
	if err != nil {
		return ir.None, fromStore(err, CodeObjectLookupNotFound, "create object %s", key)
	}

	e.logger.WithField("id", obj.ID.String()).WithField("key", key.String()).Debug("object created")
	return obj.ID, nil
}

// LookupObject returns the newest object registered under the key.
func (e *Engine) LookupObject(ctx context.Context, originator, name, typ string) (ir.ObjectID, error) {
	id, ok, err := e.TryLookupObject(ctx, originator, name, typ)
	if err != nil {
		return ir.None, err
	}
	if !ok {
		key := ir.ObjectKey{Originator: originator, Name: name, Type: typ}.Normalize()
		return ir.None, errorf(CodeObjectLookupNotFound).
			With("originator", key.Originator, "name", key.Name, "type", key.Type).
			Wrapf(ErrNotFound, "lookup object %s", key)
	}
	return id, nil
}

// TryLookupObject is LookupObject with absence reported as ok == false.
func (e *Engine) TryLookupObject(ctx context.Context, originator, name, typ string) (ir.ObjectID, bool, error) {
	stamps, err := e.TryLookupAllObjects(ctx, originator, name, typ)
	if err != nil {
		return ir.None, false, err
	}
	if len(stamps) == 0 {
		return ir.None, false, nil
	}
	return stamps[len(stamps)-1].ID, true, nil
}

// LookupAllObjects returns every object under the key, oldest first.
// Returns ErrNotFound if there is none.
func (e *Engine) LookupAllObjects(ctx context.Context, originator, name, typ string) ([]ir.ObjectStamp, error) {
	stamps, err := e.TryLookupAllObjects(ctx, originator, name, typ)
	if err != nil {
		return nil, err
	}
	if len(stamps) == 0 {
		key := ir.ObjectKey{Originator: originator, Name: name, Type: typ}.Normalize()
		return nil, errorf(CodeObjectLookupNotFound).
			With("originator", key.Originator, "name", key.Name, "type", key.Type).
			Wrapf(ErrNotFound, "lookup all objects %s", key)
	}
	return stamps, nil
}

// TryLookupAllObjects returns every object under the key, oldest first.
// The slice is empty (not nil) when there is none.
func (e *Engine) TryLookupAllObjects(ctx context.Context, originator, name, typ string) ([]ir.ObjectStamp, error) {
	key, err := e.checkKey(originator, name, typ)
	if err != nil {
		return nil, err
	}
	stamps, err := e.backend.LookupObjects(ctx, queryir.ObjectQuery{Key: key})
	if err != nil {
		return nil, fromStore(err, CodeObjectLookupNotFound, "lookup objects %s", key)
	}
	return stamps, nil
}

// LookupOrCreateObject returns the newest object under the key, creating
// one when there is none.
//
// Concurrent callers for one key all receive the same id: exactly one sees
// ir.OutcomeObjectCreated. The container of a call that finds an existing
// object is ignored.
func (e *Engine) LookupOrCreateObject(ctx context.Context, originator, name, typ string, container *ir.ObjectVersion) (ir.ObjectID, ir.Outcome, error) {
	key, err := e.checkKey(originator, name, typ)
	if err != nil {
		return ir.None, ir.OutcomeOK, err
	}
	if err := e.checkContainer(ctx, container); err != nil {
		return ir.None, ir.OutcomeOK, err
	}

	var (
		id      ir.ObjectID
		created bool
	)
	err = e.withRetry(ctx, "lookup_or_create_object", func() error {
		var err error
		id, created, err = e.backend.LookupOrCreateObject(ctx, e.newObject(key, container))
		return err
	})
	if err != nil {
		return ir.None, ir.OutcomeOK, fromStore(err, CodeObjectLookupNotFound, "lookup or create object %s", key)
	}

	if created {
		e.logger.WithField("id", id.String()).WithField("key", key.String()).Debug("object created")
		return id, ir.OutcomeObjectCreated, nil
	}
	return id, ir.OutcomeOK, nil
}

// ListObjects returns every object, oldest first, with current versions.
func (e *Engine) ListObjects(ctx context.Context) ([]ir.Object, error) {
	objs, err := e.backend.ListObjects(ctx)
	if err != nil {
		return nil, fromStore(err, CodeObjectInfoNotFound, "list objects")
	}
	return objs, nil
}

// LookupFile resolves a filesystem path to its object.
//
// The object key is (ir.OriginatorFilesystem, absolute cleaned path,
// ir.TypeFile). The file must exist.
func (e *Engine) LookupFile(ctx context.Context, path string, mode FileMode) (ir.ObjectID, error) {
	if path == "" {
		return ir.None, errorf(CodeFileInvalid).Wrapf(ErrInvalidArgument, "lookup file: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ir.None, errorf(CodeFileInvalid).With("path", path).Wrapf(errors.Join(ErrInvalidArgument, err), "lookup file %q", path)
	}
	if _, err := os.Stat(abs); err != nil {
		return ir.None, errorf(CodeFileInvalid).With("path", abs).Wrapf(errors.Join(ErrInvalidArgument, err), "lookup file %q", abs)
	}

	switch mode {
	case FileLookupOnly:
		return e.LookupObject(ctx, ir.OriginatorFilesystem, abs, ir.TypeFile)
	case FileCreateIfMissing:
		id, _, err := e.LookupOrCreateObject(ctx, ir.OriginatorFilesystem, abs, ir.TypeFile, nil)
		return id, err
	case FileAlwaysCreate:
		return e.CreateObject(ctx, ir.OriginatorFilesystem, abs, ir.TypeFile, nil)
	default:
		return ir.None, errorf(CodeFileInvalid).With("mode", int(mode)).Wrapf(ErrInvalidArgument, "lookup file: unknown mode %d", mode)
	}
}

// newObject builds the record for a fresh object with a newly allocated id.
func (e *Engine) newObject(key ir.ObjectKey, container *ir.ObjectVersion) ir.Object {
	obj := ir.Object{
		ID:              e.ids.NextID(),
		Key:             key,
		CreationSession: e.session.ID,
		CreationTime:    e.clock.Now(),
		Version:         0,
	}
	if container != nil {
		c := *container
		obj.Container = &c
	}
	return obj
}

// checkKey normalizes a key and rejects empty components.
func (e *Engine) checkKey(originator, name, typ string) (ir.ObjectKey, error) {
	key := ir.ObjectKey{Originator: originator, Name: name, Type: typ}.Normalize()
	if !key.Complete() {
		return ir.ObjectKey{}, errorf(CodeObjectKeyInvalid).
			With("originator", key.Originator, "name", key.Name, "type", key.Type).
			Wrapf(ErrInvalidArgument, "object key %q has an empty component", key)
	}
	return key, nil
}

// checkContainer verifies that a container names an existing object-version.
func (e *Engine) checkContainer(ctx context.Context, container *ir.ObjectVersion) error {
	if container == nil {
		return nil
	}
	if container.ID.IsNone() || container.Version < 0 {
		return errorf(CodeObjectContainerInvalid).
			With("container", container.String()).
			Wrapf(ErrInvalidArgument, "container %s is not an object-version", container)
	}
	current, err := e.backend.CurrentVersion(ctx, container.ID)
	if errors.Is(err, store.ErrNotFound) {
		return errorf(CodeObjectContainerInvalid).
			With("container", container.String()).
			Wrapf(ErrInvalidArgument, "container %s does not exist", container)
	}
	if err != nil {
		return fromStore(err, CodeObjectContainerInvalid, "check container %s", container)
	}
	if container.Version > current {
		return errorf(CodeObjectContainerInvalid).
			With("container", container.String(), "current", int(current)).
			Wrapf(ErrInvalidArgument, "container %s is newer than current version %d", container, current)
	}
	return nil
}
