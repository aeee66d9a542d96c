//go:build integration
// +build integration

package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cosfs/pkg/cosfile"
	"github.com/marmos91/cosfs/pkg/cosfs"
)

func localstackEndpoint() string {
	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "http://localhost:4566"
}

// setupBucket creates a bucket on Localstack and returns a cleanup function
// that empties and removes it.
func setupBucket(t *testing.T, bucket string) func() {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(DefaultS3Region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(localstackEndpoint())
	})

	if _, err := api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	return func() {
		paginator := s3.NewListObjectsV2Paginator(api, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				break
			}
			for _, obj := range page.Contents {
				_, _ = api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
			}
		}
		_, _ = api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	}
}

func newIntegrationFileSystem(t *testing.T) *cosfs.FileSystem {
	t.Helper()

	cfg := GetDefaultConfig()
	cfg.Store.Endpoint = localstackEndpoint()
	cfg.Store.S3 = map[string]any{
		"region":            DefaultS3Region,
		"access_key_id":     "test",
		"secret_access_key": "test",
		"force_path_style":  true,
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Invalid config: %v", err)
	}

	fs, err := CreateFileSystem(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	return fs
}

// TestFileSystem_Integration drives the whole stack (config factory, S3
// store client, listing cache, file objects) against Localstack.
//
// Run with: go test -tags=integration ./pkg/config/...
func TestFileSystem_Integration(t *testing.T) {
	ctx := context.Background()
	const bucket = "cosfs-fs-test"
	cleanup := setupBucket(t, bucket)
	defer cleanup()

	fs := newIntegrationFileSystem(t)

	t.Run("PipeCatAndList", func(t *testing.T) {
		require.NoError(t, fs.Pipe(ctx, bucket+"/docs/readme.txt", []byte("hello cos")))
		require.NoError(t, fs.Touch(ctx, bucket+"/docs/empty", true))

		data, err := fs.Cat(ctx, "cos://"+bucket+"/docs/readme.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello cos", string(data))

		part, err := fs.CatRange(ctx, bucket+"/docs/readme.txt", 6, 9)
		require.NoError(t, err)
		assert.Equal(t, "cos", string(part))

		entries, err := fs.Ls(ctx, bucket+"/docs")
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		isDir, err := fs.IsDir(ctx, bucket+"/docs")
		require.NoError(t, err)
		assert.True(t, isDir)
	})

	t.Run("StagedWriteCommit", func(t *testing.T) {
		err := fs.WithFile(ctx, bucket+"/staged.bin", cosfile.ModeWrite, func(f *cosfile.File) error {
			_, err := f.Write([]byte("staged payload"))
			return err
		}, cosfile.WithAutocommit(false))
		require.NoError(t, err)

		data, err := fs.Cat(ctx, bucket+"/staged.bin")
		require.NoError(t, err)
		assert.Equal(t, "staged payload", string(data))
	})

	t.Run("MultipartUpload", func(t *testing.T) {
		size := int(cosfile.SimpleTransferThreshold) + 3*1024*1024
		payload := bytes.Repeat([]byte("0123456789abcdef"), size/16)

		n, err := fs.PutFrom(ctx, bucket+"/large.bin", bytes.NewReader(payload))
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), n)

		info, err := fs.Info(ctx, bucket+"/large.bin")
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), info.Size)

		var out bytes.Buffer
		_, err = fs.GetTo(ctx, bucket+"/large.bin", &out, cosfile.WithCacheType(cosfile.CacheBlock))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(payload, out.Bytes()))
	})

	t.Run("CopyMoveFind", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, fs.Pipe(ctx, fmt.Sprintf("%s/src/f%d", bucket, i), []byte("x")))
		}

		require.NoError(t, fs.Copy(ctx, bucket+"/src", bucket+"/copy", true))
		require.NoError(t, fs.Move(ctx, bucket+"/copy", bucket+"/moved", true))

		found, err := fs.Find(ctx, bucket+"/moved", cosfs.FindOptions{})
		require.NoError(t, err)
		assert.Len(t, found, 3)

		exists, err := fs.Exists(ctx, bucket+"/copy")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("RecursiveRm", func(t *testing.T) {
		for i := 0; i < 1050; i++ {
			require.NoError(t, fs.Pipe(ctx, fmt.Sprintf("%s/bulk/%04d", bucket, i), []byte("b")))
		}

		require.NoError(t, fs.Rm(ctx, []string{bucket + "/bulk"}, true))

		exists, err := fs.Exists(ctx, bucket+"/bulk")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
