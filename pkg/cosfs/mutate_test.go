package cosfs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cosfs/pkg/store"
	storetesting "github.com/marmos91/cosfs/pkg/store/testing"
)

func TestRmNonRecursive(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "a", "1")
	fx.put(t, "bucket", "b", "2")
	fx.put(t, "bucket", "keep", "3")

	require.NoError(t, fx.fs.Rm(ctx, []string{"cos://bucket/a", "bucket/b"}, false))

	batches := fx.rec.DeleteBatches()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b"}, batches[0])

	entries, err := fx.fs.Ls(ctx, "bucket")
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/keep"}, names(entries))
}

func TestRmRejectsRootAndBareBucket(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	err := fx.fs.Rm(ctx, []string{""}, true)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))

	err = fx.fs.Rm(ctx, []string{"bucket"}, false)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))

	err = fx.fs.Rm(ctx, nil, false)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))

	assert.Equal(t, 0, fx.rec.Count(storetesting.OpDeleteBatch))
}

func TestRmValidatesAllPathsFirst(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "dir/a", "1")

	err := fx.fs.Rm(ctx, []string{"bucket/dir", "cos://"}, true)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))

	err = fx.fs.Rm(ctx, []string{"bucket/dir/a", "bucket"}, false)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))

	assert.Empty(t, fx.rec.Calls(), "rejected before any store request")
}

func TestRmRecursiveChunksLargeDirectories(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 1500; i++ {
		fx.put(t, "bucket", fmt.Sprintf("big/%04d", i), "x")
	}
	fx.put(t, "bucket", "other", "y")

	require.NoError(t, fx.fs.Rm(ctx, []string{"bucket/big"}, true))

	batches := fx.rec.DeleteBatches()
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 1000)
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), store.MaxBatchDelete)
	}

	entries, err := fx.mem.List(ctx, "bucket", "", true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "other", entries[0].Key)
}

func TestRmRecursiveRemovesMarkers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "dir/", "")
	fx.put(t, "bucket", "dir/sub/", "")
	fx.put(t, "bucket", "dir/sub/file", "z")

	require.NoError(t, fx.fs.Rm(ctx, []string{"bucket/dir/"}, true))

	entries, err := fx.mem.List(ctx, "bucket", "", true)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRmMultipleBuckets(t *testing.T) {
	fx := newFixture(t, "one", "two")
	ctx := context.Background()
	fx.put(t, "one", "x", "1")
	fx.put(t, "two", "y", "2")

	require.NoError(t, fx.fs.Rm(ctx, []string{"one/x", "two/y"}, false))
	assert.Len(t, fx.rec.DeleteBatches(), 2, "one batch per bucket")

	for _, b := range []string{"one", "two"} {
		entries, err := fx.mem.List(ctx, b, "", true)
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestRmPartialFailureStillInvalidates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 1200; i++ {
		fx.put(t, "bucket", fmt.Sprintf("dir/%04d", i), "x")
	}

	_, err := fx.fs.Ls(ctx, "bucket/dir")
	require.NoError(t, err)
	_, err = fx.fs.Ls(ctx, "bucket")
	require.NoError(t, err)
	require.Equal(t, 2, fx.fs.CacheStats().Entries)

	boom := errors.New("service unavailable")
	fx.rec.FailOn(storetesting.OpDeleteBatch, 2, boom)

	err = fx.fs.Rm(ctx, []string{"bucket/dir"}, true)
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrTransport))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to delete")

	assert.Equal(t, 0, fx.fs.CacheStats().Entries, "listings are not restored after a failure")

	remaining, err := fx.mem.List(ctx, "bucket", "dir/", true)
	require.NoError(t, err)
	assert.NotEmpty(t, remaining, "keys of the failed batch survive")
}

func TestRmFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "dir/file", "x")

	require.NoError(t, fx.fs.RmFile(ctx, "cos://bucket/dir/file"))
	exists, err := fx.mem.Exists(ctx, "bucket", "dir/file")
	require.NoError(t, err)
	assert.False(t, exists)

	err = fx.fs.RmFile(ctx, "bucket")
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))
}

func TestCopyObject(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "src/file.txt", "payload")

	require.NoError(t, fx.fs.Copy(ctx, "bucket/src/file.txt", "bucket/dst/copy.txt", false))
	data, err := fx.fs.Cat(ctx, "bucket/dst/copy.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, fx.fs.Copy(ctx, "bucket/src/file.txt", "bucket/into/", false))
	data, err = fx.fs.Cat(ctx, "bucket/into/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data), "a directory destination keeps the base name")
}

func TestCopyRejections(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	err := fx.fs.Copy(ctx, "bucket", "bucket/x", false)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))

	err = fx.fs.Copy(ctx, "bucket/x", "", false)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))

	err = fx.fs.Copy(ctx, "bucket/missing", "bucket/y", false)
	assert.True(t, store.IsNotFound(err))
}

func TestCopyRecursive(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "src/a", "1")
	fx.put(t, "bucket", "src/sub/b", "2")

	_, err := fx.fs.Ls(ctx, "bucket/dst")
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, fx.fs.Copy(ctx, "bucket/src", "bucket/dst", true))

	found, err := fx.fs.Find(ctx, "bucket/dst", FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/dst/a", "bucket/dst/sub/b"}, names(found))

	original, err := fx.fs.Find(ctx, "bucket/src", FindOptions{})
	require.NoError(t, err)
	assert.Len(t, original, 2)
}

func TestMove(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "old.txt", "content")

	_, err := fx.fs.Ls(ctx, "bucket")
	require.NoError(t, err)

	require.NoError(t, fx.fs.Move(ctx, "bucket/old.txt", "bucket/new.txt", false))

	entries, err := fx.fs.Ls(ctx, "bucket")
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/new.txt"}, names(entries))
}

func TestMoveRecursive(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "bucket", "from/a", "1")
	fx.put(t, "bucket", "from/deep/b", "2")

	require.NoError(t, fx.fs.Move(ctx, "bucket/from", "bucket/to", true))

	exists, err := fx.fs.Exists(ctx, "bucket/from")
	require.NoError(t, err)
	assert.False(t, exists)

	found, err := fx.fs.Find(ctx, "bucket/to", FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket/to/a", "bucket/to/deep/b"}, names(found))
}
