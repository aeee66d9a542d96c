// Package testing provides a conformance suite for store.Client
// implementations and a recording wrapper for failure injection.
package testing

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cosfs/pkg/store"
)

// minPartSize is the smallest non-final part S3-compatible stores accept.
const minPartSize = 5 * 1024 * 1024

// StoreTestSuite tests the store.Client contract, not implementation
// details, so it runs unchanged against memory and S3 clients.
//
// Usage:
//
//	func TestMyClient(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewClient: func() store.Client { return myclient.New() },
//	        Bucket:    "test-bucket",
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewClient creates the client under test. Bucket must already exist.
	NewClient func() store.Client

	// Bucket is the bucket every test writes into. Tests use unique key
	// prefixes so the bucket can be shared.
	Bucket string
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("PutGet", suite.testPutGet)
	t.Run("RangeReads", suite.testRangeReads)
	t.Run("HeadAndExists", suite.testHeadAndExists)
	t.Run("NotFound", suite.testNotFound)
	t.Run("DelimitedList", suite.testDelimitedList)
	t.Run("RecursiveList", suite.testRecursiveList)
	t.Run("ListBuckets", suite.testListBuckets)
	t.Run("HeadBucket", suite.testHeadBucket)
	t.Run("Multipart", suite.testMultipart)
	t.Run("AbortMultipart", suite.testAbortMultipart)
	t.Run("DeleteBatch", suite.testDeleteBatch)
	t.Run("Copy", suite.testCopy)
}

func testContext() context.Context {
	return context.Background()
}

// prefix returns a unique key prefix for one test.
func prefix(name string) string {
	return "suite-" + name + "-" + uuid.NewString() + "/"
}

func mustPut(t *testing.T, c store.Client, bucket, key string, data []byte) {
	t.Helper()
	require.NoError(t, c.Put(testContext(), bucket, key, data), "Put %s", key)
}

// GenerateTestData creates deterministic data of the given size.
func GenerateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func (suite *StoreTestSuite) testPutGet(t *testing.T) {
	c := suite.NewClient()
	key := prefix("putget") + "file.txt"

	mustPut(t, c, suite.Bucket, key, []byte("hello world"))

	data, err := c.Get(testContext(), suite.Bucket, key, "", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)

	// overwrite
	mustPut(t, c, suite.Bucket, key, []byte("bye"))
	data, err = c.Get(testContext(), suite.Bucket, key, "", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []byte("bye"), data)
}

func (suite *StoreTestSuite) testRangeReads(t *testing.T) {
	c := suite.NewClient()
	key := prefix("range") + "data.bin"
	content := GenerateTestData(4096)
	mustPut(t, c, suite.Bucket, key, content)

	tests := []struct {
		name       string
		start, end int64
		want       []byte
	}{
		{"head", 0, 10, content[:10]},
		{"middle", 1000, 2000, content[1000:2000]},
		{"to end", 4000, -1, content[4000:]},
		{"past end clamps", 4090, 9000, content[4090:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Get(testContext(), suite.Bucket, key, "", tt.start, tt.end)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.want, got), "range [%d,%d)", tt.start, tt.end)
		})
	}
}

func (suite *StoreTestSuite) testHeadAndExists(t *testing.T) {
	c := suite.NewClient()
	key := prefix("head") + "obj"
	mustPut(t, c, suite.Bucket, key, GenerateTestData(123))

	info, err := c.Head(testContext(), suite.Bucket, key, "")
	require.NoError(t, err)
	assert.Equal(t, int64(123), info.Size)
	assert.Equal(t, store.EntryFile, info.Type)
	assert.Equal(t, suite.Bucket+"/"+key, info.Name)

	exists, err := c.Exists(testContext(), suite.Bucket, key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.Exists(testContext(), suite.Bucket, key+"-missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func (suite *StoreTestSuite) testNotFound(t *testing.T) {
	c := suite.NewClient()
	key := prefix("missing") + "nothing"

	_, err := c.Head(testContext(), suite.Bucket, key, "")
	assert.True(t, store.IsNotFound(err), "Head: %v", err)

	_, err = c.Get(testContext(), suite.Bucket, key, "", 0, -1)
	assert.True(t, store.IsNotFound(err), "Get: %v", err)

	err = c.Copy(testContext(), suite.Bucket, key, "", suite.Bucket, key+"-copy")
	assert.True(t, store.IsNotFound(err), "Copy: %v", err)
}

func (suite *StoreTestSuite) testDelimitedList(t *testing.T) {
	c := suite.NewClient()
	p := prefix("list")
	for _, k := range []string{"a.txt", "b.txt", "dir/c.txt", "dir/sub/d.txt"} {
		mustPut(t, c, suite.Bucket, p+k, []byte(k))
	}

	entries, err := c.List(testContext(), suite.Bucket, p, false)
	require.NoError(t, err)

	byName := make(map[string]store.ObjectInfo)
	for _, e := range entries {
		byName[e.Name] = e
	}
	require.Len(t, byName, 3)

	base := suite.Bucket + "/" + p
	assert.Equal(t, store.EntryFile, byName[base+"a.txt"].Type)
	assert.Equal(t, int64(5), byName[base+"a.txt"].Size)
	assert.Equal(t, store.EntryFile, byName[base+"b.txt"].Type)
	assert.Equal(t, store.EntryDirectory, byName[base+"dir"].Type)
	assert.Equal(t, p+"dir", byName[base+"dir"].Key)
}

func (suite *StoreTestSuite) testRecursiveList(t *testing.T) {
	c := suite.NewClient()
	p := prefix("rlist")
	keys := []string{"x", "d/y", "d/e/z"}
	for _, k := range keys {
		mustPut(t, c, suite.Bucket, p+k, []byte(k))
	}

	entries, err := c.List(testContext(), suite.Bucket, p, true)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		assert.Equal(t, store.EntryFile, e.Type)
		names = append(names, e.Key)
	}
	assert.ElementsMatch(t, []string{p + "x", p + "d/y", p + "d/e/z"}, names)
}

func (suite *StoreTestSuite) testListBuckets(t *testing.T) {
	c := suite.NewClient()

	buckets, err := c.ListBuckets(testContext())
	require.NoError(t, err)

	found := false
	for _, b := range buckets {
		assert.Equal(t, store.EntryBucket, b.Type)
		if b.Name == suite.Bucket {
			found = true
		}
	}
	assert.True(t, found, "bucket %s not listed", suite.Bucket)
}

func (suite *StoreTestSuite) testHeadBucket(t *testing.T) {
	c := suite.NewClient()

	require.NoError(t, c.HeadBucket(testContext(), suite.Bucket))

	err := c.HeadBucket(testContext(), "cosfs-missing-"+uuid.NewString()[:8])
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func (suite *StoreTestSuite) testMultipart(t *testing.T) {
	c := suite.NewClient()
	key := prefix("multipart") + "big.bin"

	part1 := GenerateTestData(minPartSize)
	part2 := []byte("tail")

	uploadID, err := c.InitiateMultipart(testContext(), suite.Bucket, key)
	require.NoError(t, err)
	require.NotEmpty(t, uploadID)

	p1, err := c.UploadPart(testContext(), suite.Bucket, key, uploadID, 1, part1)
	require.NoError(t, err)
	p2, err := c.UploadPart(testContext(), suite.Bucket, key, uploadID, 2, part2)
	require.NoError(t, err)
	assert.Equal(t, 1, p1.Number)
	assert.Equal(t, 2, p2.Number)

	require.NoError(t, c.CompleteMultipart(testContext(), suite.Bucket, key, uploadID, []store.Part{p1, p2}))

	info, err := c.Head(testContext(), suite.Bucket, key, "")
	require.NoError(t, err)
	assert.Equal(t, int64(len(part1)+len(part2)), info.Size)

	tail, err := c.Get(testContext(), suite.Bucket, key, "", int64(len(part1)), -1)
	require.NoError(t, err)
	assert.Equal(t, part2, tail)
}

func (suite *StoreTestSuite) testAbortMultipart(t *testing.T) {
	c := suite.NewClient()
	key := prefix("abort") + "never.bin"

	uploadID, err := c.InitiateMultipart(testContext(), suite.Bucket, key)
	require.NoError(t, err)

	_, err = c.UploadPart(testContext(), suite.Bucket, key, uploadID, 1, []byte("data"))
	require.NoError(t, err)

	require.NoError(t, c.AbortMultipart(testContext(), suite.Bucket, key, uploadID))
	require.NoError(t, c.AbortMultipart(testContext(), suite.Bucket, key, uploadID), "abort must be idempotent")

	exists, err := c.Exists(testContext(), suite.Bucket, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func (suite *StoreTestSuite) testDeleteBatch(t *testing.T) {
	c := suite.NewClient()
	p := prefix("delete")
	mustPut(t, c, suite.Bucket, p+"one", []byte("1"))
	mustPut(t, c, suite.Bucket, p+"two", []byte("2"))
	mustPut(t, c, suite.Bucket, p+"keep", []byte("3"))

	results, err := c.DeleteBatch(testContext(), suite.Bucket, []string{p + "one", p + "two", p + "ghost"})
	require.NoError(t, err)
	assert.Empty(t, store.FailedDeletes(results))

	for key, want := range map[string]bool{p + "one": false, p + "two": false, p + "keep": true} {
		exists, err := c.Exists(testContext(), suite.Bucket, key)
		require.NoError(t, err)
		assert.Equal(t, want, exists, key)
	}
}

func (suite *StoreTestSuite) testCopy(t *testing.T) {
	c := suite.NewClient()
	p := prefix("copy")
	mustPut(t, c, suite.Bucket, p+"src", []byte("payload"))

	require.NoError(t, c.Copy(testContext(), suite.Bucket, p+"src", "", suite.Bucket, p+"dst"))

	data, err := c.Get(testContext(), suite.Bucket, p+"dst", "", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	exists, err := c.Exists(testContext(), suite.Bucket, p+"src")
	require.NoError(t, err)
	assert.True(t, exists, "copy must keep the source")
}
