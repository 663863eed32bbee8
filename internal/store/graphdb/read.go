package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/store"
)

// query runs one read statement and returns its records.
func (s *Store) query(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := s.read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		return run(ctx, tx, cypher, params)
	})
	if err != nil {
		return nil, err
	}
	return res.([]*neo4j.Record), nil
}

// GetSession returns the session with the given id.
func (s *Store) GetSession(ctx context.Context, id ir.ObjectID) (ir.Session, error) {
	records, err := s.query(ctx, "get session", `
		MATCH (s:Session {id: $id})
		RETURN s.id AS id, s.originator AS originator, s.mac_address AS mac_address, s.user AS user, s.pid AS pid,
		       s.program AS program, s.program_version AS program_version,
		       s.cmdline AS cmdline, s.start_time AS start_time
	`, map[string]any{"id": id.String()})
	if err != nil {
		return ir.Session{}, err
	}
	if len(records) == 0 {
		return ir.Session{}, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}

	f := &fields{rec: records[0]}
	sess := ir.Session{
		ID:             f.id("id"),
		Originator:     f.str("originator"),
		MACAddress:     f.str("mac_address"),
		User:           f.str("user"),
		PID:            int(f.integer("pid")),
		Program:        f.str("program"),
		ProgramVersion: f.str("program_version"),
		CommandLine:    f.str("cmdline"),
		StartTime:      f.timestamp("start_time"),
	}
	return sess, f.err
}

// GetObject returns the identity record with its current version.
func (s *Store) GetObject(ctx context.Context, id ir.ObjectID) (ir.Object, error) {
	records, err := s.query(ctx, "get object", `MATCH (o:Object {id: $id})`+objectReturn, map[string]any{"id": id.String()})
	if err != nil {
		return ir.Object{}, err
	}
	if len(records) == 0 {
		return ir.Object{}, fmt.Errorf("object %s: %w", id, store.ErrNotFound)
	}
	return objectFrom(records[0])
}

// ListObjects returns every object, oldest first.
func (s *Store) ListObjects(ctx context.Context) ([]ir.Object, error) {
	records, err := s.query(ctx, "list objects", `MATCH (o:Object)`+objectReturn+`ORDER BY creation_time ASC, o.seq ASC`, nil)
	if err != nil {
		return nil, err
	}
	objects := make([]ir.Object, 0, len(records))
	for _, rec := range records {
		obj, err := objectFrom(rec)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// LookupObjects returns every object registered under a key, oldest first.
func (s *Store) LookupObjects(ctx context.Context, q queryir.ObjectQuery) ([]ir.ObjectStamp, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("lookup objects: %w: %w", store.ErrInvalidInput, err)
	}
	key := q.Key.Normalize()

	records, err := s.query(ctx, "lookup objects", `
		MATCH (o:Object {originator: $originator, name: $name, type: $type})
		RETURN o.id AS id, o.creation_time AS creation_time
		ORDER BY o.creation_time ASC, o.seq ASC
	`, map[string]any{"originator": key.Originator, "name": key.Name, "type": key.Type})
	if err != nil {
		return nil, err
	}

	stamps := make([]ir.ObjectStamp, 0, len(records))
	for _, rec := range records {
		f := &fields{rec: rec}
		stamp := ir.ObjectStamp{ID: f.id("id"), CreationTime: f.timestamp("creation_time")}
		if f.err != nil {
			return nil, fmt.Errorf("lookup objects: %w", f.err)
		}
		stamps = append(stamps, stamp)
	}
	return stamps, nil
}

// CurrentVersion returns the highest version of an object.
func (s *Store) CurrentVersion(ctx context.Context, id ir.ObjectID) (ir.Version, error) {
	records, err := s.query(ctx, "current version", `
		MATCH (o:Object {id: $id}) RETURN o.current AS current
	`, map[string]any{"id": id.String()})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("object %s: %w", id, store.ErrNotFound)
	}
	f := &fields{rec: records[0]}
	v := f.version("current")
	return v, f.err
}

// GetVersionInfo returns the session and time that created a version.
func (s *Store) GetVersionInfo(ctx context.Context, ov ir.ObjectVersion) (ir.VersionInfo, error) {
	records, err := s.query(ctx, "get version info", `
		MATCH (v:Version {id: $id, version: $version})
		RETURN v.session AS session, v.creation_time AS creation_time
	`, map[string]any{"id": ov.ID.String(), "version": int64(ov.Version)})
	if err != nil {
		return ir.VersionInfo{}, err
	}
	if len(records) == 0 {
		return ir.VersionInfo{}, fmt.Errorf("version %s: %w", ov, store.ErrNotFound)
	}
	f := &fields{rec: records[0]}
	info := ir.VersionInfo{ObjectVersion: ov, Session: f.id("session"), CreationTime: f.timestamp("creation_time")}
	return info, f.err
}

// edgeCypher returns the statement for one traversal direction. Ancestors
// anchor on the dependent end of DEPENDS_ON, descendants on the source end.
func edgeCypher(dir ir.Direction) string {
	anchor := "d"
	if dir == ir.Descendants {
		anchor = "s"
	}
	return fmt.Sprintf(`
		MATCH (d:Version)-[r:DEPENDS_ON]->(s:Version)
		WHERE %[1]s.id = $id AND ($version < 0 OR %[1]s.version = $version)
		  AND r.category IN $categories
		RETURN d.id AS dest, d.version AS dest_version,
		       s.id AS source, s.version AS source_version, r.type AS type
		ORDER BY %[1]s.version ASC, r.seq ASC
	`, anchor)
}

// Edges returns the stored edges anchored at one end.
func (s *Store) Edges(ctx context.Context, q queryir.EdgeQuery) ([]ir.Edge, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("edges: %w: %w", store.ErrInvalidInput, err)
	}

	cats := q.Categories()
	categories := make([]any, len(cats))
	for i, c := range cats {
		categories[i] = int64(c)
	}

	records, err := s.query(ctx, "edges", edgeCypher(q.Direction), map[string]any{
		"id":         q.Anchor.ID.String(),
		"version":    int64(q.Anchor.Version),
		"categories": categories,
	})
	if err != nil {
		return nil, err
	}

	edges := make([]ir.Edge, 0, len(records))
	for _, rec := range records {
		f := &fields{rec: rec}
		e := ir.Edge{
			Dest:   ir.At(f.id("dest"), f.version("dest_version")),
			Source: ir.At(f.id("source"), f.version("source_version")),
			Type:   ir.DependencyType(f.integer("type")),
		}
		if f.err != nil {
			return nil, fmt.Errorf("edges: %w", f.err)
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// Properties returns an object's properties in insertion order.
func (s *Store) Properties(ctx context.Context, q queryir.PropertyQuery) ([]ir.Property, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("properties: %w: %w", store.ErrInvalidInput, err)
	}

	records, err := s.query(ctx, "properties", `
		MATCH (p:Property {id: $id})
		WHERE ($version < 0 OR p.version = $version) AND ($key = '' OR p.key = $key)
		RETURN p.id AS id, p.version AS version, p.key AS key, p.value AS value
		ORDER BY p.seq ASC
	`, map[string]any{
		"id":      q.Object.ID.String(),
		"version": int64(q.Object.Version),
		"key":     ir.Normalize(q.Key),
	})
	if err != nil {
		return nil, err
	}

	props := make([]ir.Property, 0, len(records))
	for _, rec := range records {
		f := &fields{rec: rec}
		p := ir.Property{
			ObjectVersion: ir.At(f.id("id"), f.version("version")),
			Key:           f.str("key"),
			Value:         f.str("value"),
		}
		if f.err != nil {
			return nil, fmt.Errorf("properties: %w", f.err)
		}
		props = append(props, p)
	}
	return props, nil
}

// LookupByProperty returns the object-versions carrying key=value.
func (s *Store) LookupByProperty(ctx context.Context, q queryir.PropertyLookup) ([]ir.ObjectVersion, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("lookup by property: %w: %w", store.ErrInvalidInput, err)
	}

	records, err := s.query(ctx, "lookup by property", `
		MATCH (p:Property {key: $key, value: $value})
		RETURN p.id AS id, p.version AS version
		ORDER BY p.seq ASC
	`, map[string]any{"key": ir.Normalize(q.Key), "value": q.Value})
	if err != nil {
		return nil, err
	}

	found := make([]ir.ObjectVersion, 0, len(records))
	for _, rec := range records {
		f := &fields{rec: rec}
		ov := ir.At(f.id("id"), f.version("version"))
		if f.err != nil {
			return nil, fmt.Errorf("lookup by property: %w", f.err)
		}
		found = append(found, ov)
	}
	return found, nil
}
