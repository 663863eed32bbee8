package kv

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/roach88/lineage/internal/store"
)

// sequenceBandwidth is how many sequence numbers are leased at a time.
const sequenceBandwidth = 256

// Store is a lineage backend over one Badger database.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *logrus.Logger

	readCounter  atomic.Uint64
	writeCounter atomic.Uint64
}

var _ store.Backend = (*Store)(nil)

// Open opens (or creates) a Badger database in dir. An empty dir keeps
// everything in memory.
func Open(dir string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = store.DiscardLogger()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w: %w", dir, store.ErrUnavailable, err)
	}

	seq, err := db.GetSequence([]byte(sequenceKeyString), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open badger %q: lease sequence: %w: %w", dir, store.ErrUnavailable, err)
	}

	logger.WithFields(logrus.Fields{
		"backend":   "badger",
		"path":      dir,
		"in_memory": dir == "",
	}).Info("lineage store opened")

	return &Store{db: db, seq: seq, logger: logger}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.WithFields(logrus.Fields{
		"reads":  s.readCounter.Load(),
		"writes": s.writeCounter.Load(),
	}).Debug("lineage store closing")

	var errs []error
	if err := s.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close badger: %w", err))
	}
	s.db = nil
	return errors.Join(errs...)
}

// nextSeq returns the next insertion-order number.
func (s *Store) nextSeq() (uint64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w: %w", store.ErrUnavailable, err)
	}
	return n, nil
}

// update runs fn in a read-write transaction and maps Badger errors.
func (s *Store) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeCounter.Add(1)
	if err := s.db.Update(fn); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// view runs fn in a read-only transaction and maps Badger errors.
func (s *Store) view(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.readCounter.Add(1)
	if err := s.db.View(fn); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// classify maps Badger errors onto the store sentinels. Errors that already
// carry a sentinel pass through unchanged.
func classify(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrUnavailable):
		return err
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
}

// exists reports whether key is present, recording the read for conflict detection.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// getValue reads and copies the value at key.
func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// scan iterates every item under prefix in key order.
func scan(txn *badger.Txn, prefix []byte, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.KeyCopy(nil), value); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.RegisterBackend("badger", func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		return Open(cfg.Path, cfg.Logger)
	})
}
