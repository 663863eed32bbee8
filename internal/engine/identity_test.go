package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/lineage/internal/ir"
)

func TestCreateObject_LookupRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		container := mustCreate(t, e, "p", "dir", "directory")
		cv := ir.At(container, 0)
		id, err := e.CreateObject(ctx, "p", "file.txt", "file", &cv)
		require.NoError(t, err)

		found, err := e.LookupObject(ctx, "p", "file.txt", "file")
		require.NoError(t, err)
		assert.Equal(t, id, found)

		v, err := e.GetVersion(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ir.Version(0), v)

		info, err := e.GetObjectInfo(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ir.ObjectKey{Originator: "p", Name: "file.txt", Type: "file"}, info.Key)
		require.NotNil(t, info.Container)
		assert.Equal(t, cv, *info.Container)
		assert.Equal(t, e.Session().ID, info.CreationSession)
		assert.Equal(t, ir.Version(0), info.Version)
	})
}

func TestCreateObject_InvalidKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		for _, key := range [][3]string{
			{"", "n", "t"},
			{"o", "", "t"},
			{"o", "n", ""},
			{"  ", "n", "t"},
		} {
			_, err := e.CreateObject(ctx, key[0], key[1], key[2], nil)
			assert.ErrorIs(t, err, ErrInvalidArgument, "key %q", key)
			assert.Equal(t, CodeObjectKeyInvalid, CodeOf(err))
		}
	})
}

func TestCreateObject_InvalidContainer(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		dir := mustCreate(t, e, "p", "dir", "directory")

		for name, container := range map[string]ir.ObjectVersion{
			"missing object":   ir.At(ir.ObjectID{Hi: 1, Lo: 999}, 0),
			"future version":   ir.At(dir, 3),
			"none id":          ir.At(ir.None, 0),
			"negative version": ir.At(dir, ir.NoVersion),
		} {
			container := container
			_, err := e.CreateObject(ctx, "p", "f", "file", &container)
			assert.ErrorIs(t, err, ErrInvalidArgument, name)
			assert.Equal(t, CodeObjectContainerInvalid, CodeOf(err), name)
		}

		// Nothing was created by the rejected calls.
		_, ok, err := e.TryLookupObject(ctx, "p", "f", "file")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLookupObject_NewestWins(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		first := mustCreate(t, e, "p", "f", "file")
		second := mustCreate(t, e, "p", "f", "file")

		found, err := e.LookupObject(ctx, "p", "f", "file")
		require.NoError(t, err)
		assert.Equal(t, second, found)

		stamps, err := e.LookupAllObjects(ctx, "p", "f", "file")
		require.NoError(t, err)
		require.Len(t, stamps, 2)
		assert.Equal(t, first, stamps[0].ID)
		assert.Equal(t, second, stamps[1].ID)
		assert.True(t, stamps[0].CreationTime.Before(stamps[1].CreationTime))
	})
}

func TestLookupObject_Missing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		_, err := e.LookupObject(ctx, "p", "nope", "file")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, CodeObjectLookupNotFound, CodeOf(err))

		id, ok, err := e.TryLookupObject(ctx, "p", "nope", "file")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, id.IsNone())

		_, err = e.LookupAllObjects(ctx, "p", "nope", "file")
		assert.ErrorIs(t, err, ErrNotFound)

		stamps, err := e.TryLookupAllObjects(ctx, "p", "nope", "file")
		require.NoError(t, err)
		assert.NotNil(t, stamps)
		assert.Empty(t, stamps)
	})
}

func TestLookupObject_NormalizesKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		// "café" precomposed and decomposed
		id := mustCreate(t, e, "p", "caf\u00e9", "file")
		found, err := e.LookupObject(ctx, "p", "cafe\u0301", "file")
		require.NoError(t, err)
		assert.Equal(t, id, found)
	})
}

func TestLookupOrCreateObject(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		id, outcome, err := e.LookupOrCreateObject(ctx, "p", "f", "file", nil)
		require.NoError(t, err)
		assert.Equal(t, ir.OutcomeObjectCreated, outcome)

		again, outcome, err := e.LookupOrCreateObject(ctx, "p", "f", "file", nil)
		require.NoError(t, err)
		assert.Equal(t, ir.OutcomeOK, outcome)
		assert.Equal(t, id, again)
	})
}

func TestLookupOrCreateObject_ConcurrentCallersShareOneObject(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		const callers = 16

		ids := make([]ir.ObjectID, callers)
		outcomes := make([]ir.Outcome, callers)
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < callers; i++ {
			i := i
			g.Go(func() error {
				var err error
				ids[i], outcomes[i], err = e.LookupOrCreateObject(gctx, "p", "shared", "file", nil)
				return err
			})
		}
		require.NoError(t, g.Wait())

		created := 0
		for i := range ids {
			assert.Equal(t, ids[0], ids[i])
			if outcomes[i] == ir.OutcomeObjectCreated {
				created++
			}
		}
		assert.Equal(t, 1, created)

		stamps, err := e.LookupAllObjects(ctx, "p", "shared", "file")
		require.NoError(t, err)
		assert.Len(t, stamps, 1)
	})
}

// Racing callers with different containers: the first writer's container is
// kept and the losers' containers are ignored.
func TestLookupOrCreateObject_ContainerRaceFirstWriterWins(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		dirA := mustCreate(t, e, "p", "dirA", "directory")
		dirB := mustCreate(t, e, "p", "dirB", "directory")
		containers := []ir.ObjectVersion{ir.At(dirA, 0), ir.At(dirB, 0)}

		var (
			mu     sync.Mutex
			winner *ir.ObjectVersion
			ids    []ir.ObjectID
		)
		g, gctx := errgroup.WithContext(ctx)
		for i := range containers {
			c := containers[i]
			g.Go(func() error {
				id, outcome, err := e.LookupOrCreateObject(gctx, "p", "raced", "file", &c)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				ids = append(ids, id)
				if outcome == ir.OutcomeObjectCreated {
					winner = &c
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		require.Len(t, ids, 2)
		assert.Equal(t, ids[0], ids[1])
		require.NotNil(t, winner)

		info, err := e.GetObjectInfo(ctx, ids[0])
		require.NoError(t, err)
		require.NotNil(t, info.Container)
		assert.Equal(t, *winner, *info.Container)
	})
}

func TestListObjects(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		objs, err := e.ListObjects(ctx)
		require.NoError(t, err)
		assert.Empty(t, objs)

		a := mustCreate(t, e, "p", "a", "file")
		b := mustCreate(t, e, "p", "b", "file")
		mustVersion(t, e, b)

		objs, err = e.ListObjects(ctx)
		require.NoError(t, err)
		require.Len(t, objs, 2)
		assert.Equal(t, a, objs[0].ID)
		assert.Equal(t, b, objs[1].ID)
		assert.Equal(t, ir.Version(1), objs[1].Version)
	})
}

func TestLookupFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "input.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

		_, err := e.LookupFile(ctx, path, FileLookupOnly)
		assert.ErrorIs(t, err, ErrNotFound)

		id, err := e.LookupFile(ctx, path, FileCreateIfMissing)
		require.NoError(t, err)

		again, err := e.LookupFile(ctx, path, FileCreateIfMissing)
		require.NoError(t, err)
		assert.Equal(t, id, again)

		fresh, err := e.LookupFile(ctx, path, FileAlwaysCreate)
		require.NoError(t, err)
		assert.NotEqual(t, id, fresh)

		found, err := e.LookupFile(ctx, path, FileLookupOnly)
		require.NoError(t, err)
		assert.Equal(t, fresh, found)

		info, err := e.GetObjectInfo(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, ir.OriginatorFilesystem, info.Key.Originator)
		assert.Equal(t, ir.TypeFile, info.Key.Type)
		assert.True(t, filepath.IsAbs(info.Key.Name))
	})
}

func TestLookupFile_MissingFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		_, err := e.LookupFile(context.Background(), filepath.Join(t.TempDir(), "absent"), FileCreateIfMissing)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, CodeFileInvalid, CodeOf(err))
	})
}

func TestLookup_KeysWithNULBytesStayDistinct(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustCreate(t, e, "p\x00q", "r", "file")
		b := mustCreate(t, e, "p", "q\x00r", "file")

		stamps, err := e.TryLookupAllObjects(ctx, "p\x00q", "r", "file")
		require.NoError(t, err)
		require.Len(t, stamps, 1)
		assert.Equal(t, a, stamps[0].ID)

		got, outcome, err := e.LookupOrCreateObject(ctx, "p", "q\x00r", "file", nil)
		require.NoError(t, err)
		assert.Equal(t, ir.OutcomeOK, outcome)
		assert.Equal(t, b, got)

		c, outcome, err := e.LookupOrCreateObject(ctx, "p\x00", "q\x00r", "file", nil)
		require.NoError(t, err)
		assert.Equal(t, ir.OutcomeObjectCreated, outcome)
		assert.NotEqual(t, a, c)
		assert.NotEqual(t, b, c)
	})
}
