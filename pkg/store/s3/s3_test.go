package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cosfs/pkg/store"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	api := s3.New(s3.Options{Region: "us-east-1"})
	c, err := New(Config{API: api, Endpoint: endpoint})
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPI(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestEndpointNotSet(t *testing.T) {
	c := newTestClient(t, "")
	ctx := context.Background()

	_, err := c.Head(ctx, "bucket", "key", "")
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrTransport))
	assert.ErrorIs(t, err, ErrEndpointNotSet)

	err = c.Put(ctx, "bucket", "key", []byte("x"))
	assert.ErrorIs(t, err, ErrEndpointNotSet)

	_, err = c.ListBuckets(ctx)
	assert.ErrorIs(t, err, ErrEndpointNotSet)

	err = c.HeadBucket(ctx, "bucket")
	assert.ErrorIs(t, err, ErrEndpointNotSet)
}

func TestSetEndpoint(t *testing.T) {
	c := newTestClient(t, "")
	assert.Equal(t, "", c.Endpoint())

	c.SetEndpoint("https://cos.ap-guangzhou.myqcloud.com")
	assert.Equal(t, "https://cos.ap-guangzhou.myqcloud.com", c.Endpoint())
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "b", "k", "", 0, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeleteBatchLimit(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")
	keys := make([]string, store.MaxBatchDelete+1)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}

	_, err := c.DeleteBatch(context.Background(), "b", keys)
	assert.True(t, store.IsCode(err, store.ErrInvalidArgument))
}

func TestByteRange(t *testing.T) {
	assert.Equal(t, "bytes=0-9", byteRange(0, 10))
	assert.Equal(t, "bytes=100-", byteRange(100, -1))
	assert.Equal(t, "bytes=5-5", byteRange(5, 6))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code store.ErrorCode
	}{
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, store.ErrNotFound},
		{"head not found", &smithy.GenericAPIError{Code: "NotFound"}, store.ErrNotFound},
		{"no such bucket", &smithy.GenericAPIError{Code: "NoSuchBucket"}, store.ErrNotFound},
		{"typed no such key", &types.NoSuchKey{}, store.ErrNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, store.ErrTransport},
		{"network", errors.New("dial tcp: connection refused"), store.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("GetObject", "bucket", "key", tt.err)
			assert.True(t, store.IsCode(err, tt.code), "got %v", err)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classify("GetObject", "b", "k", nil))
	assert.ErrorIs(t, classify("GetObject", "b", "k", context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestObjectInfoDirectoryMarker(t *testing.T) {
	info := objectInfo("bucket", "dir/", types.Object{Key: aws.String("dir/"), Size: aws.Int64(0)})
	assert.Equal(t, store.EntryDirectory, info.Type)
	assert.Equal(t, "bucket/dir", info.Name)

	info = objectInfo("bucket", "dir/file", types.Object{
		Key:  aws.String("dir/file"),
		Size: aws.Int64(42),
		ETag: aws.String(`"abc"`),
	})
	assert.Equal(t, store.EntryFile, info.Type)
	assert.Equal(t, int64(42), info.Size)
	assert.Equal(t, "abc", info.ETag)
}
