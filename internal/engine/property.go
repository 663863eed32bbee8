package engine

import (
	"context"
	"errors"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/store"
)

// AddProperty appends key=value to an object-version.
//
// Properties are never overwritten: adding the same key twice keeps both values.
func (e *Engine) AddProperty(ctx context.Context, ov ir.ObjectVersion, key, value string) error {
	key = ir.Normalize(key)
	if key == "" {
		return errorf(CodePropertyInvalid).
			With("object", ov.String()).
			Wrapf(ErrInvalidArgument, "add property: empty key")
	}
	if ov.ID.IsNone() || ov.Version < 0 {
		return errorf(CodePropertyInvalid).
			With("object", ov.String(), "key", key).
			Wrapf(ErrInvalidArgument, "add property: %s is not an object-version", ov)
	}
	current, err := e.backend.CurrentVersion(ctx, ov.ID)
	if errors.Is(err, store.ErrNotFound) {
		return errorf(CodePropertyInvalid).
			With("object", ov.String(), "key", key).
			Wrapf(ErrInvalidArgument, "add property: %s does not exist", ov.ID)
	}
	if err != nil {
		return fromStore(err, CodePropertyInvalid, "add property %s", ov)
	}
	if ov.Version > current {
		return errorf(CodePropertyInvalid).
			With("object", ov.String(), "current", int(current)).
			Wrapf(ErrInvalidArgument, "add property: %s is newer than current version %d", ov, current)
	}

	err = e.withRetry(ctx, "add_property", func() error {
		return e.backend.AddProperty(ctx, ir.Property{ObjectVersion: ov, Key: key, Value: value})
	})
	if err != nil {
		return fromStore(err, CodePropertyInvalid, "add property %s %s", ov, key)
	}
	e.logger.WithField("object", ov.String()).WithField("key", key).Debug("property added")
	return nil
}

// GetProperties returns the properties of an object in insertion order.
//
// version may be ir.AllVersions. An empty key matches every key.
func (e *Engine) GetProperties(ctx context.Context, id ir.ObjectID, version ir.Version, key string) ([]ir.Property, error) {
	if id.IsNone() || version < ir.AllVersions {
		return nil, errorf(CodePropertyInvalid).
			With("object", ir.At(id, version).String()).
			Wrapf(ErrInvalidArgument, "get properties: invalid object-version %s", ir.At(id, version))
	}
	current, err := e.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !version.IsAll() && version > current {
		return nil, errorf(CodePropertyInvalid).
			With("object", ir.At(id, version).String(), "current", int(current)).
			Wrapf(ErrInvalidArgument, "get properties: %s is newer than current version %d", ir.At(id, version), current)
	}

	props, err := e.backend.Properties(ctx, queryir.PropertyQuery{Object: ir.At(id, version), Key: ir.Normalize(key)})
	if err != nil {
		return nil, fromStore(err, CodeObjectInfoNotFound, "get properties %s", ir.At(id, version))
	}
	return props, nil
}

// LookupByProperty returns the object-versions carrying key=value.
// Returns ErrNotFound if there is none.
func (e *Engine) LookupByProperty(ctx context.Context, key, value string) ([]ir.ObjectVersion, error) {
	matches, err := e.TryLookupByProperty(ctx, key, value)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errorf(CodePropertyLookupNotFound).
			With("key", key, "value", value).
			Wrapf(ErrNotFound, "lookup by property %s=%s", key, value)
	}
	return matches, nil
}

// TryLookupByProperty returns the object-versions carrying key=value in
// insertion order, each at most once. The slice is empty (not nil) when
// there is none.
func (e *Engine) TryLookupByProperty(ctx context.Context, key, value string) ([]ir.ObjectVersion, error) {
	key = ir.Normalize(key)
	if key == "" {
		return nil, errorf(CodePropertyInvalid).Wrapf(ErrInvalidArgument, "lookup by property: empty key")
	}
	found, err := e.backend.LookupByProperty(ctx, queryir.PropertyLookup{Key: key, Value: value})
	if err != nil {
		return nil, fromStore(err, CodePropertyLookupNotFound, "lookup by property %s", key)
	}

	seen := make(map[ir.ObjectVersion]struct{}, len(found))
	matches := make([]ir.ObjectVersion, 0, len(found))
	for _, ov := range found {
		if _, dup := seen[ov]; dup {
			continue
		}
		seen[ov] = struct{}{}
		matches = append(matches, ov)
	}
	return matches, nil
}
