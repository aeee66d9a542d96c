package cosfs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cosfs/pkg/store"
)

func newTreeFixture(t *testing.T) *fixture {
	t.Helper()
	fx := newFixture(t)
	for _, key := range []string{
		"tree/a.txt",
		"tree/b.log",
		"tree/x/c.txt",
		"tree/x/y/d.txt",
		"tree/z/e.txt",
	} {
		fx.put(t, "bucket", key, key)
	}
	return fx
}

func TestFindAll(t *testing.T) {
	fx := newTreeFixture(t)

	found, err := fx.fs.Find(context.Background(), "cos://bucket/tree", FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bucket/tree/a.txt",
		"bucket/tree/b.log",
		"bucket/tree/x/c.txt",
		"bucket/tree/x/y/d.txt",
		"bucket/tree/z/e.txt",
	}, names(found))
}

func TestFindWholeBucket(t *testing.T) {
	fx := newTreeFixture(t)
	fx.put(t, "bucket", "top", "t")

	found, err := fx.fs.Find(context.Background(), "bucket", FindOptions{})
	require.NoError(t, err)
	assert.Len(t, found, 6)
}

func TestFindMaxDepth(t *testing.T) {
	fx := newTreeFixture(t)
	ctx := context.Background()

	found, err := fx.fs.Find(ctx, "bucket/tree", FindOptions{MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/tree/a.txt", "bucket/tree/b.log"}, names(found))

	found, err = fx.fs.Find(ctx, "bucket/tree", FindOptions{MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bucket/tree/a.txt",
		"bucket/tree/b.log",
		"bucket/tree/x/c.txt",
		"bucket/tree/z/e.txt",
	}, names(found))
}

func TestFindWithDirs(t *testing.T) {
	fx := newTreeFixture(t)

	found, err := fx.fs.Find(context.Background(), "bucket/tree", FindOptions{WithDirs: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bucket/tree/a.txt",
		"bucket/tree/b.log",
		"bucket/tree/x",
		"bucket/tree/x/c.txt",
		"bucket/tree/x/y",
		"bucket/tree/x/y/d.txt",
		"bucket/tree/z",
		"bucket/tree/z/e.txt",
	}, names(found))
}

func TestFindPrefix(t *testing.T) {
	fx := newTreeFixture(t)
	ctx := context.Background()

	found, err := fx.fs.Find(ctx, "bucket/tree", FindOptions{Prefix: "x/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/tree/x/c.txt", "bucket/tree/x/y/d.txt"}, names(found))

	found, err = fx.fs.Find(ctx, "bucket/tree", FindOptions{Prefix: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/tree/b.log"}, names(found))
}

func TestFindRejections(t *testing.T) {
	fx := newTreeFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		opts FindOptions
	}{
		{"root", "", FindOptions{}},
		{"root with protocol", "cos://", FindOptions{}},
		{"prefix and depth", "bucket/tree", FindOptions{Prefix: "x", MaxDepth: 2}},
		{"prefix and dirs", "bucket/tree", FindOptions{Prefix: "x", WithDirs: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.fs.Find(ctx, tt.path, tt.opts)
			assert.True(t, store.IsCode(err, store.ErrInvalidArgument))
		})
	}
}

func TestFindSingleObject(t *testing.T) {
	fx := newTreeFixture(t)
	ctx := context.Background()

	found, err := fx.fs.Find(ctx, "bucket/tree/a.txt", FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/tree/a.txt"}, names(found))

	found, err = fx.fs.Find(ctx, "bucket/nothing", FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestWalk(t *testing.T) {
	fx := newTreeFixture(t)
	ctx := context.Background()

	visited := map[string][]string{}
	err := fx.fs.Walk(ctx, "bucket/tree", 0, func(dir string, dirs, files []store.ObjectInfo) error {
		visited[dir] = append(names(dirs), names(files)...)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"bucket/tree":     {"bucket/tree/x", "bucket/tree/z", "bucket/tree/a.txt", "bucket/tree/b.log"},
		"bucket/tree/x":   {"bucket/tree/x/y", "bucket/tree/x/c.txt"},
		"bucket/tree/x/y": {"bucket/tree/x/y/d.txt"},
		"bucket/tree/z":   {"bucket/tree/z/e.txt"},
	}, visited)
}

func TestWalkStopsOnError(t *testing.T) {
	fx := newTreeFixture(t)
	stop := errors.New("stop")

	calls := 0
	err := fx.fs.Walk(context.Background(), "bucket/tree", 0, func(string, []store.ObjectInfo, []store.ObjectInfo) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestWalkRejectsRoot(t *testing.T) {
	fx := newTreeFixture(t)
	err := fx.fs.Walk(context.Background(), "", 0, func(string, []store.ObjectInfo, []store.ObjectInfo) error {
		return nil
	})
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))
}

func TestWalkUsesListingCache(t *testing.T) {
	fx := newTreeFixture(t)
	ctx := context.Background()
	noop := func(string, []store.ObjectInfo, []store.ObjectInfo) error { return nil }

	require.NoError(t, fx.fs.Walk(ctx, "bucket/tree", 0, noop))
	first := fx.fs.CacheStats()

	require.NoError(t, fx.fs.Walk(ctx, "bucket/tree", 0, noop))
	second := fx.fs.CacheStats()

	assert.Equal(t, first.Misses, second.Misses)
	assert.Equal(t, first.Hits+4, second.Hits)
}
