package store

import (
	"context"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
)

// Backend is the storage contract shared by every lineage backend.
//
// All slices returned are non-nil and ordered as documented on the
// corresponding queryir type.
type Backend interface {
	// CreateSession records a session. Returns ErrConflict if the id exists.
	CreateSession(ctx context.Context, s ir.Session) error
	// GetSession returns ErrNotFound for unknown ids.
	GetSession(ctx context.Context, id ir.ObjectID) (ir.Session, error)

	// CreateObject inserts the object together with its version 0, stamped
	// with the object's creation session and time. Returns ErrConflict if
	// the id is already taken.
	CreateObject(ctx context.Context, obj ir.Object) error
	// LookupOrCreateObject returns the newest object registered under
	// obj.Key, or inserts obj (with version 0) when there is none.
	// created reports which of the two happened.
	LookupOrCreateObject(ctx context.Context, obj ir.Object) (id ir.ObjectID, created bool, err error)
	// LookupObjects returns every object under a key, oldest first.
	LookupObjects(ctx context.Context, q queryir.ObjectQuery) ([]ir.ObjectStamp, error)
	// GetObject returns the identity record with Version set to the current version.
	GetObject(ctx context.Context, id ir.ObjectID) (ir.Object, error)
	// ListObjects returns every object, oldest first, with current versions.
	ListObjects(ctx context.Context) ([]ir.Object, error)

	// CurrentVersion returns the highest version of an object.
	CurrentVersion(ctx context.Context, id ir.ObjectID) (ir.Version, error)
	// CreateVersion appends info.Version, which must equal current+1.
	// Returns ErrNotFound for unknown objects and ErrConflict otherwise.
	CreateVersion(ctx context.Context, info ir.VersionInfo) error
	// GetVersionInfo returns ErrNotFound for unknown object-versions.
	GetVersionInfo(ctx context.Context, ov ir.ObjectVersion) (ir.VersionInfo, error)

	// AddEdge stores an edge unless an identical one exists; inserted
	// reports which happened. Both endpoints must already exist.
	AddEdge(ctx context.Context, e ir.Edge) (inserted bool, err error)
	// Edges returns stored edges anchored at one end.
	Edges(ctx context.Context, q queryir.EdgeQuery) ([]ir.Edge, error)

	// AddProperty appends a property to an existing object-version.
	AddProperty(ctx context.Context, p ir.Property) error
	// Properties returns the properties of one object.
	Properties(ctx context.Context, q queryir.PropertyQuery) ([]ir.Property, error)
	// LookupByProperty returns the object-versions carrying key=value,
	// one entry per matching property record.
	LookupByProperty(ctx context.Context, q queryir.PropertyLookup) ([]ir.ObjectVersion, error)

	// Close releases the backend's resources.
	Close() error
}
