package kv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
)

// CreateSession stores a session; an existing id is a conflict.
func (s *Store) CreateSession(ctx context.Context, sess ir.Session) error {
	value, err := encode(sessionRecord{
		Originator:     sess.Originator,
		MACAddress:     sess.MACAddress,
		User:           sess.User,
		PID:            sess.PID,
		Program:        sess.Program,
		ProgramVersion: sess.ProgramVersion,
		CommandLine:    sess.CommandLine,
		StartTime:      sess.StartTime.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return s.update(ctx, "create session", func(txn *badger.Txn) error {
		key := sessionKey(sess.ID)
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("session %s: %w", sess.ID, store.ErrConflict)
		}
		return txn.Set(key, value)
	})
}

// CreateObject stores an object with its version 0.
func (s *Store) CreateObject(ctx context.Context, obj ir.Object) error {
	seq, err := s.nextSeq()
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	return s.update(ctx, "create object", func(txn *badger.Txn) error {
		return insertObject(txn, obj, seq)
	})
}

// LookupOrCreateObject returns the head of obj.Key or inserts obj.
//
// The head key is read inside the transaction, so when two callers race to
// create the same triple the second commit fails with a conflict and its
// retry finds the winner.
func (s *Store) LookupOrCreateObject(ctx context.Context, obj ir.Object) (id ir.ObjectID, created bool, err error) {
	seq, err := s.nextSeq()
	if err != nil {
		return ir.None, false, fmt.Errorf("lookup or create object: %w", err)
	}

	err = s.update(ctx, "lookup or create object", func(txn *badger.Txn) error {
		head, err := getValue(txn, headKey(ir.KeyFingerprint(obj.Key.Normalize())))
		switch {
		case err == nil:
			id, _ = decodeHead(head)
			created = false
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := insertObject(txn, obj, seq); err != nil {
			return err
		}
		id = obj.ID
		created = true
		return nil
	})
	if err != nil {
		return ir.None, false, err
	}
	return id, created, nil
}

// insertObject writes the object record, its indexes and version 0.
func insertObject(txn *badger.Txn, obj ir.Object, seq uint64) error {
	key := obj.Key.Normalize()
	fp := ir.KeyFingerprint(key)
	created := obj.CreationTime.UnixNano()

	found, err := exists(txn, objectKey(obj.ID))
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("object %s: id in use: %w", obj.ID, store.ErrConflict)
	}

	record, err := encode(objectRecord{
		Key:          key,
		Container:    obj.Container,
		Session:      obj.CreationSession,
		CreationTime: created,
		Seq:          seq,
	})
	if err != nil {
		return err
	}
	version0, err := encode(versionRecord{Session: obj.CreationSession, CreationTime: created})
	if err != nil {
		return err
	}

	// The head only moves forward in creation time.
	head, err := getValue(txn, headKey(fp))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		head = nil
	case err != nil:
		return err
	}
	if head == nil {
		if err := txn.Set(headKey(fp), encodeHead(obj.ID, created)); err != nil {
			return err
		}
	} else if _, headNanos := decodeHead(head); created >= headNanos {
		if err := txn.Set(headKey(fp), encodeHead(obj.ID, created)); err != nil {
			return err
		}
	}

	idBytes := keyBuilder(nil).id(obj.ID)
	writes := []struct{ k, v []byte }{
		{objectKey(obj.ID), record},
		{currentKey(obj.ID), binary.BigEndian.AppendUint32(nil, 0)},
		{versionKey(ir.At(obj.ID, 0)), version0},
		{keyIndexKey(fp, created, seq), idBytes},
		{creationKey(created, seq), idBytes},
	}
	for _, w := range writes {
		if err := txn.Set(w.k, w.v); err != nil {
			return err
		}
	}
	return nil
}

// CreateVersion appends info.Version when it is exactly current+1.
func (s *Store) CreateVersion(ctx context.Context, info ir.VersionInfo) error {
	record, err := encode(versionRecord{Session: info.Session, CreationTime: info.CreationTime.UnixNano()})
	if err != nil {
		return fmt.Errorf("create version: %w", err)
	}

	return s.update(ctx, "create version", func(txn *badger.Txn) error {
		current, err := readCurrent(txn, info.ID)
		if err != nil {
			return err
		}
		if info.Version != current+1 {
			return fmt.Errorf("create version %s: current is %d: %w", info.ObjectVersion, current, store.ErrConflict)
		}
		if err := txn.Set(currentKey(info.ID), binary.BigEndian.AppendUint32(nil, uint32(info.Version))); err != nil {
			return err
		}
		return txn.Set(versionKey(info.ObjectVersion), record)
	})
}

// AddEdge stores e unless its uniqueness key exists.
// Both endpoints must exist; a missing one is invalid input.
func (s *Store) AddEdge(ctx context.Context, e ir.Edge) (inserted bool, err error) {
	value, err := encode(edgeRecord{Dest: e.Dest, Source: e.Source, Type: e.Type})
	if err != nil {
		return false, fmt.Errorf("add edge: %w", err)
	}
	seq, err := s.nextSeq()
	if err != nil {
		return false, fmt.Errorf("add edge: %w", err)
	}

	err = s.update(ctx, "add edge", func(txn *badger.Txn) error {
		for _, end := range []ir.ObjectVersion{e.Dest, e.Source} {
			if err := requireVersion(txn, end); err != nil {
				return err
			}
		}

		unique := uniqueKey(e)
		found, err := exists(txn, unique)
		if err != nil {
			return err
		}
		if found {
			inserted = false
			return nil
		}

		writes := []struct{ k, v []byte }{
			{unique, binary.BigEndian.AppendUint64(nil, seq)},
			{edgeIndexKey(prefixAncestor, e.Dest, seq), value},
			{edgeIndexKey(prefixDescendant, e.Source, seq), value},
		}
		for _, w := range writes {
			if err := txn.Set(w.k, w.v); err != nil {
				return err
			}
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// AddProperty appends a property and its (key, value) index entry.
func (s *Store) AddProperty(ctx context.Context, p ir.Property) error {
	key := ir.Normalize(p.Key)
	value, err := encode(propertyRecord{Version: p.Version, Key: key, Value: p.Value})
	if err != nil {
		return fmt.Errorf("add property: %w", err)
	}
	seq, err := s.nextSeq()
	if err != nil {
		return fmt.Errorf("add property: %w", err)
	}

	return s.update(ctx, "add property", func(txn *badger.Txn) error {
		if err := requireVersion(txn, p.ObjectVersion); err != nil {
			return err
		}
		if err := txn.Set(propertyKey(p.ID, seq), value); err != nil {
			return err
		}
		return txn.Set(propIndexKey(ir.PropertyFingerprint(key, p.Value), seq), encodeObjectVersion(p.ObjectVersion))
	})
}

// readCurrent returns an object's current version, recording the read.
func readCurrent(txn *badger.Txn, id ir.ObjectID) (ir.Version, error) {
	raw, err := getValue(txn, currentKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, fmt.Errorf("object %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return ir.Version(binary.BigEndian.Uint32(raw)), nil
}

// requireVersion fails with ErrInvalidInput unless ov exists.
func requireVersion(txn *badger.Txn, ov ir.ObjectVersion) error {
	found, err := exists(txn, versionKey(ov))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("object-version %s does not exist: %w", ov, store.ErrInvalidInput)
	}
	return nil
}
