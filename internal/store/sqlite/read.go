package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/querysql"
	"github.com/roach88/lineage/internal/store"
)

// objectSelect reads an object together with its current version.
const objectSelect = `
	SELECT o.id_hi, o.id_lo, o.originator, o.name, o.type,
	       o.container_hi, o.container_lo, o.container_version,
	       o.session_hi, o.session_lo, o.creation_time,
	       (SELECT MAX(v.version) FROM versions v
	        WHERE v.id_hi = o.id_hi AND v.id_lo = o.id_lo) AS version
	FROM objects o
`

// GetSession returns the session with the given id.
func (s *Store) GetSession(ctx context.Context, id ir.ObjectID) (ir.Session, error) {
	hi, lo := querysql.SplitID(id)
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id_hi, id_lo, originator, mac_address, username, pid, program, program_version, cmdline, start_time
		FROM sessions
		WHERE id_hi = ? AND id_lo = ?
	`, hi, lo)
	if err != nil {
		return ir.Session{}, fmt.Errorf("get session %s: %w", id, classify(err))
	}
	return row.toIR(), nil
}

// GetObject returns the identity record with its current version.
func (s *Store) GetObject(ctx context.Context, id ir.ObjectID) (ir.Object, error) {
	hi, lo := querysql.SplitID(id)
	var row objectRow
	err := s.db.GetContext(ctx, &row, objectSelect+`WHERE o.id_hi = ? AND o.id_lo = ?`, hi, lo)
	if err != nil {
		return ir.Object{}, fmt.Errorf("get object %s: %w", id, classify(err))
	}
	return row.toIR(), nil
}

// ListObjects returns every object ordered by creation time.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListObjects(ctx context.Context) ([]ir.Object, error) {
	var rows []objectRow
	if err := s.db.SelectContext(ctx, &rows, objectSelect+`ORDER BY o.creation_time ASC, o.seq ASC`); err != nil {
		return nil, fmt.Errorf("list objects: %w", classify(err))
	}

	objects := make([]ir.Object, 0, len(rows))
	for _, row := range rows {
		objects = append(objects, row.toIR())
	}
	return objects, nil
}

// LookupObjects returns every object registered under a key, oldest first.
func (s *Store) LookupObjects(ctx context.Context, q queryir.ObjectQuery) ([]ir.ObjectStamp, error) {
	query, args, err := querysql.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("lookup objects: %w: %w", store.ErrInvalidInput, err)
	}

	var rows []stampRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("lookup objects: %w", classify(err))
	}

	stamps := make([]ir.ObjectStamp, 0, len(rows))
	for _, row := range rows {
		stamps = append(stamps, ir.ObjectStamp{
			ID:           querysql.JoinID(row.IDHi, row.IDLo),
			CreationTime: fromNanos(row.CreationTime),
		})
	}
	return stamps, nil
}

// CurrentVersion returns MAX(version) for the object.
func (s *Store) CurrentVersion(ctx context.Context, id ir.ObjectID) (ir.Version, error) {
	v, err := currentVersion(ctx, s.db, id)
	if err != nil {
		return 0, fmt.Errorf("current version: %w", err)
	}
	return v, nil
}

// currentVersion reads MAX(version) with q, which may be the DB or an open transaction.
func currentVersion(ctx context.Context, q sqlx.QueryerContext, id ir.ObjectID) (ir.Version, error) {
	hi, lo := querysql.SplitID(id)
	var v sql.NullInt64
	err := sqlx.GetContext(ctx, q, &v, `
		SELECT MAX(version) FROM versions WHERE id_hi = ? AND id_lo = ?
	`, hi, lo)
	if err != nil {
		return 0, classify(err)
	}
	// MAX over no rows is NULL: the object does not exist.
	if !v.Valid {
		return 0, fmt.Errorf("object %s: %w", id, store.ErrNotFound)
	}
	return ir.Version(v.Int64), nil
}

// GetVersionInfo returns the session and time that created a version.
func (s *Store) GetVersionInfo(ctx context.Context, ov ir.ObjectVersion) (ir.VersionInfo, error) {
	hi, lo := querysql.SplitID(ov.ID)
	var row versionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id_hi, id_lo, version, session_hi, session_lo, creation_time
		FROM versions
		WHERE id_hi = ? AND id_lo = ? AND version = ?
	`, hi, lo, int64(ov.Version))
	if err != nil {
		return ir.VersionInfo{}, fmt.Errorf("get version info %s: %w", ov, classify(err))
	}
	return ir.VersionInfo{
		ObjectVersion: ov,
		Session:       querysql.JoinID(row.SessionHi, row.SessionLo),
		CreationTime:  fromNanos(row.CreationTime),
	}, nil
}

// Edges returns the stored edges matching q.
//
// Returns an empty slice (not nil) if no edges match.
func (s *Store) Edges(ctx context.Context, q queryir.EdgeQuery) ([]ir.Edge, error) {
	query, args, err := querysql.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("edges: %w: %w", store.ErrInvalidInput, err)
	}

	var rows []edgeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("edges: %w", classify(err))
	}

	edges := make([]ir.Edge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, row.toIR())
	}
	return edges, nil
}

// Properties returns the properties matching q in insertion order.
func (s *Store) Properties(ctx context.Context, q queryir.PropertyQuery) ([]ir.Property, error) {
	query, args, err := querysql.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("properties: %w: %w", store.ErrInvalidInput, err)
	}

	var rows []propertyRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("properties: %w", classify(err))
	}

	props := make([]ir.Property, 0, len(rows))
	for _, row := range rows {
		props = append(props, ir.Property{
			ObjectVersion: ir.At(querysql.JoinID(row.IDHi, row.IDLo), ir.Version(row.Version)),
			Key:           row.Key,
			Value:         row.Value,
		})
	}
	return props, nil
}

// LookupByProperty returns the object-versions carrying key=value.
func (s *Store) LookupByProperty(ctx context.Context, q queryir.PropertyLookup) ([]ir.ObjectVersion, error) {
	query, args, err := querysql.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("lookup by property: %w: %w", store.ErrInvalidInput, err)
	}

	var rows []lookupRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("lookup by property: %w", classify(err))
	}

	found := make([]ir.ObjectVersion, 0, len(rows))
	for _, row := range rows {
		found = append(found, ir.At(querysql.JoinID(row.IDHi, row.IDLo), ir.Version(row.Version)))
	}
	return found, nil
}
