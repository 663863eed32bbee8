package kv

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/store"
)

// GetSession returns the session with the given id.
func (s *Store) GetSession(ctx context.Context, id ir.ObjectID) (ir.Session, error) {
	var rec sessionRecord
	err := s.view(ctx, "get session", func(txn *badger.Txn) error {
		raw, err := getValue(txn, sessionKey(id))
		if err != nil {
			return err
		}
		return decode(raw, &rec)
	})
	if err != nil {
		return ir.Session{}, fmt.Errorf("session %s: %w", id, err)
	}
	return ir.Session{
		ID:             id,
		Originator:     rec.Originator,
		MACAddress:     rec.MACAddress,
		User:           rec.User,
		PID:            rec.PID,
		Program:        rec.Program,
		ProgramVersion: rec.ProgramVersion,
		CommandLine:    rec.CommandLine,
		StartTime:      fromNanos(rec.StartTime),
	}, nil
}

// GetObject returns the identity record with its current version.
func (s *Store) GetObject(ctx context.Context, id ir.ObjectID) (ir.Object, error) {
	var obj ir.Object
	err := s.view(ctx, "get object", func(txn *badger.Txn) error {
		var err error
		obj, err = readObject(txn, id)
		return err
	})
	if err != nil {
		return ir.Object{}, fmt.Errorf("object %s: %w", id, err)
	}
	return obj, nil
}

func readObject(txn *badger.Txn, id ir.ObjectID) (ir.Object, error) {
	raw, err := getValue(txn, objectKey(id))
	if err != nil {
		return ir.Object{}, err
	}
	var rec objectRecord
	if err := decode(raw, &rec); err != nil {
		return ir.Object{}, err
	}
	current, err := readCurrent(txn, id)
	if err != nil {
		return ir.Object{}, err
	}
	return rec.toIR(id, current), nil
}

// ListObjects returns every object, oldest first.
func (s *Store) ListObjects(ctx context.Context) ([]ir.Object, error) {
	objects := []ir.Object{}
	err := s.view(ctx, "list objects", func(txn *badger.Txn) error {
		return scan(txn, []byte{prefixCreation}, func(_, value []byte) error {
			obj, err := readObject(txn, decodeID(value))
			if err != nil {
				return err
			}
			objects = append(objects, obj)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// LookupObjects scans the key index of a name triple, oldest first.
func (s *Store) LookupObjects(ctx context.Context, q queryir.ObjectQuery) ([]ir.ObjectStamp, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("lookup objects: %w: %w", store.ErrInvalidInput, err)
	}

	stamps := []ir.ObjectStamp{}
	prefix := keyIndexPrefix(ir.KeyFingerprint(q.Key.Normalize()))
	err := s.view(ctx, "lookup objects", func(txn *badger.Txn) error {
		return scan(txn, prefix, func(key, value []byte) error {
			stamps = append(stamps, ir.ObjectStamp{
				ID:           decodeID(value),
				CreationTime: fromNanos(decodeNanos(key[len(prefix):])),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stamps, nil
}

// CurrentVersion returns the highest version of an object.
func (s *Store) CurrentVersion(ctx context.Context, id ir.ObjectID) (ir.Version, error) {
	var v ir.Version
	err := s.view(ctx, "current version", func(txn *badger.Txn) error {
		var err error
		v, err = readCurrent(txn, id)
		return err
	})
	return v, err
}

// GetVersionInfo returns the session and time that created a version.
func (s *Store) GetVersionInfo(ctx context.Context, ov ir.ObjectVersion) (ir.VersionInfo, error) {
	var rec versionRecord
	err := s.view(ctx, "get version info", func(txn *badger.Txn) error {
		raw, err := getValue(txn, versionKey(ov))
		if err != nil {
			return err
		}
		return decode(raw, &rec)
	})
	if err != nil {
		return ir.VersionInfo{}, fmt.Errorf("version %s: %w", ov, err)
	}
	return ir.VersionInfo{
		ObjectVersion: ov,
		Session:       rec.Session,
		CreationTime:  fromNanos(rec.CreationTime),
	}, nil
}

// Edges scans the ancestor or descendant index of the anchor.
func (s *Store) Edges(ctx context.Context, q queryir.EdgeQuery) ([]ir.Edge, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("edges: %w: %w", store.ErrInvalidInput, err)
	}

	prefix := prefixAncestor
	if q.Direction == ir.Descendants {
		prefix = prefixDescendant
	}

	edges := []ir.Edge{}
	err := s.view(ctx, "edges", func(txn *badger.Txn) error {
		return scan(txn, edgeScanPrefix(prefix, q.Anchor), func(_, value []byte) error {
			var rec edgeRecord
			if err := decode(value, &rec); err != nil {
				return err
			}
			if !q.Includes(rec.Type) {
				return nil
			}
			edges = append(edges, ir.Edge{Dest: rec.Dest, Source: rec.Source, Type: rec.Type})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// Properties scans an object's properties in insertion order.
func (s *Store) Properties(ctx context.Context, q queryir.PropertyQuery) ([]ir.Property, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("properties: %w: %w", store.ErrInvalidInput, err)
	}
	key := ir.Normalize(q.Key)

	props := []ir.Property{}
	err := s.view(ctx, "properties", func(txn *badger.Txn) error {
		return scan(txn, propertyPrefix(q.Object.ID), func(_, value []byte) error {
			var rec propertyRecord
			if err := decode(value, &rec); err != nil {
				return err
			}
			if !q.Object.Version.IsAll() && rec.Version != q.Object.Version {
				return nil
			}
			if key != "" && rec.Key != key {
				return nil
			}
			props = append(props, ir.Property{
				ObjectVersion: ir.At(q.Object.ID, rec.Version),
				Key:           rec.Key,
				Value:         rec.Value,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return props, nil
}

// LookupByProperty scans the (key, value) index.
func (s *Store) LookupByProperty(ctx context.Context, q queryir.PropertyLookup) ([]ir.ObjectVersion, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("lookup by property: %w: %w", store.ErrInvalidInput, err)
	}

	found := []ir.ObjectVersion{}
	err := s.view(ctx, "lookup by property", func(txn *badger.Txn) error {
		return scan(txn, propIndexPrefix(ir.PropertyFingerprint(q.Key, q.Value)), func(_, value []byte) error {
			found = append(found, decodeObjectVersion(value))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
