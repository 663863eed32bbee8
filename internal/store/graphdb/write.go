package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
)

// run executes one statement inside tx and collects its records.
func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return collect(ctx, result)
}

// seq allocates the next insertion-order number inside tx.
func seq(ctx context.Context, tx neo4j.ManagedTransaction) (int64, error) {
	records, err := run(ctx, tx, nextSeq, nil)
	if err != nil {
		return 0, err
	}
	if len(records) != 1 {
		return 0, fmt.Errorf("sequence counter returned %d rows", len(records))
	}
	f := &fields{rec: records[0]}
	n := f.integer("seq")
	return n, f.err
}

// CreateSession stores a session; an existing id is a conflict.
func (s *Store) CreateSession(ctx context.Context, sess ir.Session) error {
	_, err := s.write(ctx, "create session", func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := run(ctx, tx, `
			MERGE (s:Session {id: $id})
			ON CREATE SET s.originator = $originator, s.mac_address = $mac, s.user = $user, s.pid = $pid,
			              s.program = $program, s.program_version = $program_version,
			              s.cmdline = $cmdline, s.start_time = $start, s.fresh = true
			WITH s, coalesce(s.fresh, false) AS created
			REMOVE s.fresh
			RETURN created
		`, map[string]any{
			"id":              sess.ID.String(),
			"originator":      sess.Originator,
			"mac":             sess.MACAddress,
			"user":            sess.User,
			"pid":             int64(sess.PID),
			"program":         sess.Program,
			"program_version": sess.ProgramVersion,
			"cmdline":         sess.CommandLine,
			"start":           sess.StartTime.UnixNano(),
		})
		if err != nil {
			return nil, err
		}
		if len(records) != 1 {
			return nil, fmt.Errorf("merge session returned %d rows", len(records))
		}
		created, _ := records[0].Get("created")
		if created != true {
			return nil, fmt.Errorf("session %s: %w", sess.ID, store.ErrConflict)
		}
		return nil, nil
	})
	return err
}

// CreateObject stores an object with its version 0.
func (s *Store) CreateObject(ctx context.Context, obj ir.Object) error {
	_, err := s.write(ctx, "create object", func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, insertObject(ctx, tx, obj)
	})
	return err
}

// LookupOrCreateObject returns the newest object under obj.Key or inserts obj.
//
// The Key node is merged and locked first, so concurrent callers for the
// same triple queue behind one another and only the first creates.
func (s *Store) LookupOrCreateObject(ctx context.Context, obj ir.Object) (id ir.ObjectID, created bool, err error) {
	key := obj.Key.Normalize()
	_, err = s.write(ctx, "lookup or create object", func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"originator": key.Originator, "name": key.Name, "type": key.Type}
		if _, err := run(ctx, tx, `
			MERGE (k:Key {originator: $originator, name: $name, type: $type})
			SET k.lock = true
		`, params); err != nil {
			return nil, err
		}

		records, err := run(ctx, tx, `
			MATCH (o:Object {originator: $originator, name: $name, type: $type})
			RETURN o.id AS id
			ORDER BY o.creation_time DESC, o.seq DESC
			LIMIT 1
		`, params)
		if err != nil {
			return nil, err
		}
		if len(records) == 1 {
			f := &fields{rec: records[0]}
			id, created = f.id("id"), false
			return nil, f.err
		}

		if err := insertObject(ctx, tx, obj); err != nil {
			return nil, err
		}
		id, created = obj.ID, true
		return nil, nil
	})
	if err != nil {
		return ir.None, false, err
	}
	return id, created, nil
}

// insertObject creates the Object node and its version 0 inside tx.
func insertObject(ctx context.Context, tx neo4j.ManagedTransaction, obj ir.Object) error {
	key := obj.Key.Normalize()

	existing, err := run(ctx, tx, `MATCH (o:Object {id: $id}) RETURN o.id AS id`, map[string]any{"id": obj.ID.String()})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("object %s: id in use: %w", obj.ID, store.ErrConflict)
	}

	n, err := seq(ctx, tx)
	if err != nil {
		return err
	}

	var container any
	var containerVersion any
	if obj.Container != nil {
		container = obj.Container.ID.String()
		containerVersion = int64(obj.Container.Version)
	}

	_, err = run(ctx, tx, `
		CREATE (o:Object {
			id: $id, originator: $originator, name: $name, type: $type,
			container: $container, container_version: $container_version,
			session: $session, creation_time: $created, seq: $seq, current: 0
		})
		CREATE (v:Version {id: $id, version: 0, session: $session, creation_time: $created})
	`, map[string]any{
		"id":                obj.ID.String(),
		"originator":        key.Originator,
		"name":              key.Name,
		"type":              key.Type,
		"container":         container,
		"container_version": containerVersion,
		"session":           obj.CreationSession.String(),
		"created":           obj.CreationTime.UnixNano(),
		"seq":               n,
	})
	return err
}

// CreateVersion appends info.Version when it is exactly current+1.
func (s *Store) CreateVersion(ctx context.Context, info ir.VersionInfo) error {
	_, err := s.write(ctx, "create version", func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := run(ctx, tx, `
			MATCH (o:Object {id: $id})
			SET o.lock = true
			RETURN o.current AS current
		`, map[string]any{"id": info.ID.String()})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("object %s: %w", info.ID, store.ErrNotFound)
		}
		f := &fields{rec: records[0]}
		current := f.version("current")
		if f.err != nil {
			return nil, f.err
		}
		if info.Version != current+1 {
			return nil, fmt.Errorf("create version %s: current is %d: %w", info.ObjectVersion, current, store.ErrConflict)
		}

		_, err = run(ctx, tx, `
			MATCH (o:Object {id: $id})
			SET o.current = $version
			REMOVE o.lock
			CREATE (v:Version {id: $id, version: $version, session: $session, creation_time: $created})
		`, map[string]any{
			"id":      info.ID.String(),
			"version": int64(info.Version),
			"session": info.Session.String(),
			"created": info.CreationTime.UnixNano(),
		})
		return nil, err
	})
	return err
}

// AddEdge merges a DEPENDS_ON relationship from dest to source.
//
// The relationship is merged on its type, so an identical edge is matched
// rather than duplicated; inserted reports whether this call created it.
// A relationship MERGE alone is not atomic across concurrent transactions.
// seq runs first and write-locks the counter node, which serializes every
// writer, so two identical merges never interleave.
func (s *Store) AddEdge(ctx context.Context, e ir.Edge) (inserted bool, err error) {
	_, err = s.write(ctx, "add edge", func(tx neo4j.ManagedTransaction) (any, error) {
		n, err := seq(ctx, tx)
		if err != nil {
			return nil, err
		}
		records, err := run(ctx, tx, `
			MATCH (d:Version {id: $dest, version: $dest_version})
			MATCH (s:Version {id: $source, version: $source_version})
			MERGE (d)-[r:DEPENDS_ON {type: $type}]->(s)
			ON CREATE SET r.category = $category, r.seq = $seq
			RETURN r.seq = $seq AS inserted
		`, map[string]any{
			"dest":           e.Dest.ID.String(),
			"dest_version":   int64(e.Dest.Version),
			"source":         e.Source.ID.String(),
			"source_version": int64(e.Source.Version),
			"type":           int64(e.Type),
			"category":       int64(e.Type.Category()),
			"seq":            n,
		})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("edge %s -> %s: endpoint does not exist: %w", e.Dest, e.Source, store.ErrInvalidInput)
		}
		v, _ := records[0].Get("inserted")
		inserted = v == true
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// AddProperty attaches a Property node to an existing version.
func (s *Store) AddProperty(ctx context.Context, p ir.Property) error {
	_, err := s.write(ctx, "add property", func(tx neo4j.ManagedTransaction) (any, error) {
		n, err := seq(ctx, tx)
		if err != nil {
			return nil, err
		}
		records, err := run(ctx, tx, `
			MATCH (v:Version {id: $id, version: $version})
			CREATE (v)-[:HAS_PROPERTY]->(p:Property {id: $id, version: $version, key: $key, value: $value, seq: $seq})
			RETURN p.seq AS seq
		`, map[string]any{
			"id":      p.ID.String(),
			"version": int64(p.Version),
			"key":     ir.Normalize(p.Key),
			"value":   p.Value,
			"seq":     n,
		})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("object-version %s does not exist: %w", p.ObjectVersion, store.ErrInvalidInput)
		}
		return nil, nil
	})
	return err
}
