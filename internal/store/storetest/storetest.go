// Package storetest provides the behavioral test suite every store.Backend must pass.
//
// Backend packages call Run from their own tests:
//
//	func TestBackendContract(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) store.Backend { return createTestStore(t) })
//	}
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/queryir"
	"github.com/roach88/lineage/internal/store"
)

// OpenFunc returns a fresh, empty backend. It registers its own cleanup.
type OpenFunc func(t *testing.T) store.Backend

// Run executes the full contract suite against fresh backends from open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("Sessions", func(t *testing.T) { testSessions(t, open(t)) })
	t.Run("CreateObject", func(t *testing.T) { testCreateObject(t, open(t)) })
	t.Run("LookupObjects", func(t *testing.T) { testLookupObjects(t, open(t)) })
	t.Run("LookupOrCreate", func(t *testing.T) { testLookupOrCreate(t, open(t)) })
	t.Run("LookupOrCreateConcurrent", func(t *testing.T) { testLookupOrCreateConcurrent(t, open(t)) })
	t.Run("Versions", func(t *testing.T) { testVersions(t, open(t)) })
	t.Run("VersionsConcurrent", func(t *testing.T) { testVersionsConcurrent(t, open(t)) })
	t.Run("Edges", func(t *testing.T) { testEdges(t, open(t)) })
	t.Run("EdgeFilters", func(t *testing.T) { testEdgeFilters(t, open(t)) })
	t.Run("Properties", func(t *testing.T) { testProperties(t, open(t)) })
}

// fixture hands out ids and strictly increasing timestamps.
type fixture struct {
	mu      sync.Mutex
	next    uint64
	now     time.Time
	session ir.ObjectID
}

func newFixture() *fixture {
	return &fixture{
		next:    1,
		now:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		session: ir.ObjectID{Hi: 0xfeed, Lo: 1},
	}
}

func (f *fixture) id() ir.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return ir.ObjectID{Hi: 0xabcdef, Lo: f.next}
}

func (f *fixture) tick() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Millisecond)
	return f.now
}

func (f *fixture) object(name string) ir.Object {
	return ir.Object{
		ID:              f.id(),
		Key:             ir.ObjectKey{Originator: "test", Name: name, Type: "blob"},
		CreationSession: f.session,
		CreationTime:    f.tick(),
	}
}

func (f *fixture) create(t *testing.T, b store.Backend, name string) ir.Object {
	t.Helper()
	obj := f.object(name)
	require.NoError(t, b.CreateObject(context.Background(), obj))
	return obj
}

func (f *fixture) bump(t *testing.T, b store.Backend, id ir.ObjectID) ir.Version {
	t.Helper()
	ctx := context.Background()
	cur, err := b.CurrentVersion(ctx, id)
	require.NoError(t, err)
	next := cur + 1
	require.NoError(t, b.CreateVersion(ctx, ir.VersionInfo{
		ObjectVersion: ir.At(id, next),
		Session:       f.session,
		CreationTime:  f.tick(),
	}))
	return next
}

func testSessions(t *testing.T, b store.Backend) {
	ctx := context.Background()
	s := ir.Session{
		ID:          ir.ObjectID{Hi: 9, Lo: 9},
		Originator:  "test",
		MACAddress:  "00:11:22:33:44:55",
		User:        "alice",
		PID:         4242,
		Program:     "lineage-test",
		CommandLine: "lineage-test --flag",
		StartTime:   time.Date(2024, 2, 3, 4, 5, 6, 7, time.UTC),
	}
	require.NoError(t, b.CreateSession(ctx, s))

	got, err := b.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Originator, got.Originator)
	assert.Equal(t, s.User, got.User)
	assert.Equal(t, s.PID, got.PID)
	assert.Equal(t, s.Program, got.Program)
	assert.Equal(t, s.CommandLine, got.CommandLine)
	assert.Equal(t, s.MACAddress, got.MACAddress)
	assert.True(t, s.StartTime.Equal(got.StartTime), "start time %v != %v", s.StartTime, got.StartTime)

	err = b.CreateSession(ctx, s)
	assert.True(t, errors.Is(err, store.ErrConflict), "duplicate session: %v", err)

	_, err = b.GetSession(ctx, ir.ObjectID{Hi: 1, Lo: 1})
	assert.True(t, errors.Is(err, store.ErrNotFound), "unknown session: %v", err)
}

func testCreateObject(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()

	parent := f.create(t, b, "parent")
	child := f.object("child")
	child.Container = &ir.ObjectVersion{ID: parent.ID, Version: 0}
	require.NoError(t, b.CreateObject(ctx, child))

	got, err := b.GetObject(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.ID)
	assert.Equal(t, child.Key, got.Key)
	require.NotNil(t, got.Container)
	assert.Equal(t, *child.Container, *got.Container)
	assert.Equal(t, f.session, got.CreationSession)
	assert.True(t, child.CreationTime.Equal(got.CreationTime))
	assert.Equal(t, ir.Version(0), got.Version)

	got, err = b.GetObject(ctx, parent.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Container)

	info, err := b.GetVersionInfo(ctx, ir.At(child.ID, 0))
	require.NoError(t, err)
	assert.Equal(t, f.session, info.Session)
	assert.True(t, child.CreationTime.Equal(info.CreationTime))

	dup := f.object("other")
	dup.ID = parent.ID
	err = b.CreateObject(ctx, dup)
	assert.True(t, errors.Is(err, store.ErrConflict), "reused id: %v", err)

	_, err = b.GetObject(ctx, ir.ObjectID{Hi: 1, Lo: 1})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	all, err := b.ListObjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, parent.ID, all[0].ID)
	assert.Equal(t, child.ID, all[1].ID)
}

func testLookupObjects(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()

	first := f.create(t, b, "shared")
	f.create(t, b, "unrelated")
	second := f.create(t, b, "shared")

	stamps, err := b.LookupObjects(ctx, queryir.ObjectQuery{Key: first.Key})
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	assert.Equal(t, first.ID, stamps[0].ID)
	assert.Equal(t, second.ID, stamps[1].ID)
	assert.True(t, stamps[0].CreationTime.Before(stamps[1].CreationTime))

	stamps, err = b.LookupObjects(ctx, queryir.ObjectQuery{
		Key: ir.ObjectKey{Originator: "test", Name: "missing", Type: "blob"},
	})
	require.NoError(t, err)
	assert.NotNil(t, stamps)
	assert.Empty(t, stamps)
}

func testLookupOrCreate(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()

	obj := f.object("report")
	id, created, err := b.LookupOrCreateObject(ctx, obj)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, obj.ID, id)

	again := f.object("report")
	id, created, err = b.LookupOrCreateObject(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, obj.ID, id, "existing object wins")

	v, err := b.CurrentVersion(ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, ir.Version(0), v)
}

func testLookupOrCreateConcurrent(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()
	const workers = 8

	ids := make([]ir.ObjectID, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				id, _, err := b.LookupOrCreateObject(ctx, f.object("contended"))
				if errors.Is(err, store.ErrConflict) {
					continue
				}
				if err != nil {
					return err
				}
				ids[i] = id
				return nil
			}
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "every caller sees the same object")
	}
	stamps, err := b.LookupObjects(ctx, queryir.ObjectQuery{Key: f.object("contended").Key})
	require.NoError(t, err)
	assert.Len(t, stamps, 1)
}

func testVersions(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()
	obj := f.create(t, b, "versioned")

	assert.Equal(t, ir.Version(1), f.bump(t, b, obj.ID))
	assert.Equal(t, ir.Version(2), f.bump(t, b, obj.ID))

	err := b.CreateVersion(ctx, ir.VersionInfo{ObjectVersion: ir.At(obj.ID, 2), Session: f.session, CreationTime: f.tick()})
	assert.True(t, errors.Is(err, store.ErrConflict), "existing version: %v", err)

	err = b.CreateVersion(ctx, ir.VersionInfo{ObjectVersion: ir.At(obj.ID, 5), Session: f.session, CreationTime: f.tick()})
	assert.True(t, errors.Is(err, store.ErrConflict), "gap: %v", err)

	err = b.CreateVersion(ctx, ir.VersionInfo{ObjectVersion: ir.At(ir.ObjectID{Hi: 1, Lo: 1}, 1), Session: f.session, CreationTime: f.tick()})
	assert.True(t, errors.Is(err, store.ErrNotFound), "unknown object: %v", err)

	_, err = b.CurrentVersion(ctx, ir.ObjectID{Hi: 1, Lo: 1})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = b.GetVersionInfo(ctx, ir.At(obj.ID, 3))
	assert.True(t, errors.Is(err, store.ErrNotFound))

	got, err := b.GetObject(ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, ir.Version(2), got.Version)
}

func testVersionsConcurrent(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()
	obj := f.create(t, b, "hot")
	const workers = 8

	got := make([]ir.Version, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				cur, err := b.CurrentVersion(ctx, obj.ID)
				if err != nil {
					return err
				}
				err = b.CreateVersion(ctx, ir.VersionInfo{
					ObjectVersion: ir.At(obj.ID, cur+1),
					Session:       f.session,
					CreationTime:  f.tick(),
				})
				if errors.Is(err, store.ErrConflict) {
					continue
				}
				if err != nil {
					return err
				}
				got[i] = cur + 1
				return nil
			}
		})
	}
	require.NoError(t, g.Wait())

	seen := map[ir.Version]bool{}
	for _, v := range got {
		assert.False(t, seen[v], "version %d handed out twice", v)
		seen[v] = true
	}
	for v := ir.Version(1); v <= workers; v++ {
		assert.True(t, seen[v], "version %d missing", v)
	}
	cur, err := b.CurrentVersion(ctx, obj.ID)
	require.NoError(t, err)
	assert.Equal(t, ir.Version(workers), cur)
}

func testEdges(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()
	a := f.create(t, b, "a")
	src := f.create(t, b, "src")
	other := f.create(t, b, "other")
	f.bump(t, b, a.ID)

	e1 := ir.Edge{Dest: ir.At(a.ID, 0), Source: ir.At(src.ID, 0), Type: ir.DataInput}
	e2 := ir.Edge{Dest: ir.At(a.ID, 1), Source: ir.At(src.ID, 0), Type: ir.DataInput}
	e3 := ir.Edge{Dest: ir.At(a.ID, 0), Source: ir.At(other.ID, 0), Type: ir.ControlOp}

	for _, e := range []ir.Edge{e1, e2, e3} {
		inserted, err := b.AddEdge(ctx, e)
		require.NoError(t, err)
		assert.True(t, inserted, "first insert of %v", e)
	}
	inserted, err := b.AddEdge(ctx, e1)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate edge is suppressed")

	sameEndsOtherType := ir.Edge{Dest: e1.Dest, Source: e1.Source, Type: ir.DataCopy}
	inserted, err = b.AddEdge(ctx, sameEndsOtherType)
	require.NoError(t, err)
	assert.True(t, inserted, "type is part of the edge identity")

	edges, err := b.Edges(ctx, queryir.EdgeQuery{Anchor: ir.At(a.ID, 0), Direction: ir.Ancestors})
	require.NoError(t, err)
	assert.Equal(t, []ir.Edge{e1, e3, sameEndsOtherType}, edges)

	edges, err = b.Edges(ctx, queryir.EdgeQuery{Anchor: ir.At(a.ID, ir.AllVersions), Direction: ir.Ancestors})
	require.NoError(t, err)
	assert.Equal(t, []ir.Edge{e1, e3, sameEndsOtherType, e2}, edges, "grouped by anchor version, then insertion order")

	edges, err = b.Edges(ctx, queryir.EdgeQuery{Anchor: ir.At(src.ID, 0), Direction: ir.Descendants})
	require.NoError(t, err)
	assert.Equal(t, []ir.Edge{e1, e2, sameEndsOtherType}, edges)

	edges, err = b.Edges(ctx, queryir.EdgeQuery{Anchor: ir.At(other.ID, 0), Direction: ir.Ancestors})
	require.NoError(t, err)
	assert.NotNil(t, edges)
	assert.Empty(t, edges)
}

func testEdgeFilters(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()
	a := f.create(t, b, "a")
	d := f.create(t, b, "data-src")
	c := f.create(t, b, "control-src")

	data := ir.Edge{Dest: ir.At(a.ID, 0), Source: ir.At(d.ID, 0), Type: ir.DataIPC}
	ctrl := ir.Edge{Dest: ir.At(a.ID, 0), Source: ir.At(c.ID, 0), Type: ir.ControlStart}
	for _, e := range []ir.Edge{data, ctrl} {
		_, err := b.AddEdge(ctx, e)
		require.NoError(t, err)
	}

	edges, err := b.Edges(ctx, queryir.EdgeQuery{Anchor: ir.At(a.ID, 0), Direction: ir.Ancestors, ExcludeData: true})
	require.NoError(t, err)
	assert.Equal(t, []ir.Edge{ctrl}, edges)

	edges, err = b.Edges(ctx, queryir.EdgeQuery{Anchor: ir.At(a.ID, 0), Direction: ir.Ancestors, ExcludeControl: true})
	require.NoError(t, err)
	assert.Equal(t, []ir.Edge{data}, edges)
}

func testProperties(t *testing.T, b store.Backend) {
	ctx := context.Background()
	f := newFixture()
	a := f.create(t, b, "a")
	other := f.create(t, b, "other")
	f.bump(t, b, a.ID)

	props := []ir.Property{
		{ObjectVersion: ir.At(a.ID, 0), Key: "owner", Value: "alice"},
		{ObjectVersion: ir.At(a.ID, 1), Key: "owner", Value: "bob"},
		{ObjectVersion: ir.At(a.ID, 0), Key: "stage", Value: "raw"},
		{ObjectVersion: ir.At(a.ID, 0), Key: "owner", Value: "alice"},
		{ObjectVersion: ir.At(other.ID, 0), Key: "owner", Value: "alice"},
	}
	for _, p := range props {
		require.NoError(t, b.AddProperty(ctx, p))
	}

	got, err := b.Properties(ctx, queryir.PropertyQuery{Object: ir.At(a.ID, ir.AllVersions)})
	require.NoError(t, err)
	assert.Equal(t, props[:4], got, "append-only, insertion order, duplicates kept")

	got, err = b.Properties(ctx, queryir.PropertyQuery{Object: ir.At(a.ID, 0), Key: "owner"})
	require.NoError(t, err)
	assert.Equal(t, []ir.Property{props[0], props[3]}, got)

	got, err = b.Properties(ctx, queryir.PropertyQuery{Object: ir.At(a.ID, 1), Key: "stage"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	found, err := b.LookupByProperty(ctx, queryir.PropertyLookup{Key: "owner", Value: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []ir.ObjectVersion{ir.At(a.ID, 0), ir.At(a.ID, 0), ir.At(other.ID, 0)}, found)

	found, err = b.LookupByProperty(ctx, queryir.PropertyLookup{Key: "owner", Value: "carol"})
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.AddProperty(ctx, ir.Property{
			ObjectVersion: ir.At(other.ID, 0),
			Key:           fmt.Sprintf("k%d", i),
			Value:         "v",
		}))
	}
	got, err = b.Properties(ctx, queryir.PropertyQuery{Object: ir.At(other.ID, 0)})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "k2", got[3].Key)
}
