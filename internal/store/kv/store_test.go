package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/store/storetest"
)

// createTestStore creates a new on-disk store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBackendContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend { return createTestStore(t) })
}

func TestBackendContractInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		s, err := Open("", nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	obj := ir.Object{
		ID:              ir.ObjectID{Hi: 0xffffffffffffffff, Lo: 0x8000000000000001},
		Key:             ir.ObjectKey{Originator: "test", Name: "persisted", Type: "blob"},
		CreationSession: ir.ObjectID{Hi: 1, Lo: 2},
		CreationTime:    created,
	}

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateObject(ctx, obj))
	require.NoError(t, s.AddProperty(ctx, ir.Property{ObjectVersion: ir.At(obj.ID, 0), Key: "k", Value: "v"}))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetObject(ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, obj.Key, got.Key)
	assert.True(t, created.Equal(got.CreationTime))

	found, err := s.LookupByProperty(ctx, queryir.PropertyLookup{Key: "k", Value: "v"})
	require.NoError(t, err)
	assert.Equal(t, []ir.ObjectVersion{ir.At(obj.ID, 0)}, found)

	// Sequence numbers keep increasing after a reopen.
	require.NoError(t, s.AddProperty(ctx, ir.Property{ObjectVersion: ir.At(obj.ID, 0), Key: "k", Value: "w"}))
	props, err := s.Properties(ctx, queryir.PropertyQuery{Object: ir.At(obj.ID, 0), Key: "k"})
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "v", props[0].Value)
	assert.Equal(t, "w", props[1].Value)
}

func TestNegativeCreationTimesSortFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := ir.ObjectKey{Originator: "test", Name: "epoch", Type: "blob"}

	late := ir.Object{ID: ir.ObjectID{Hi: 1, Lo: 1}, Key: key, CreationTime: time.Unix(10, 0)}
	early := ir.Object{ID: ir.ObjectID{Hi: 1, Lo: 2}, Key: key, CreationTime: time.Unix(-10, 0)}
	require.NoError(t, s.CreateObject(ctx, late))
	require.NoError(t, s.CreateObject(ctx, early))

	stamps, err := s.LookupObjects(ctx, queryir.ObjectQuery{Key: key})
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	assert.Equal(t, early.ID, stamps[0].ID)
	assert.Equal(t, late.ID, stamps[1].ID)

	// The head tracks the newest creation time, not the last insert.
	id, created, err := s.LookupOrCreateObject(ctx, ir.Object{ID: ir.ObjectID{Hi: 1, Lo: 3}, Key: key, CreationTime: time.Unix(20, 0)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, late.ID, id)
}

func TestAddEdgeRequiresEndpoints(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	obj := ir.Object{ID: ir.ObjectID{Hi: 1, Lo: 1}, Key: ir.ObjectKey{Originator: "o", Name: "n", Type: "t"}, CreationTime: time.Unix(1, 0)}
	require.NoError(t, s.CreateObject(ctx, obj))

	_, err := s.AddEdge(ctx, ir.Edge{Dest: ir.At(obj.ID, 0), Source: ir.At(ir.ObjectID{Hi: 9, Lo: 9}, 0), Type: ir.DataInput})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	err = s.AddProperty(ctx, ir.Property{ObjectVersion: ir.At(obj.ID, 3), Key: "k", Value: "v"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestCanceledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListObjects(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisteredAsBadger(t *testing.T) {
	b, err := store.Open(context.Background(), store.Config{Backend: "badger"})
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.(*Store)
	assert.True(t, ok)
}
