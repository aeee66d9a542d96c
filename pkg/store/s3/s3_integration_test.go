//go:build integration
// +build integration

package s3

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/cosfs/pkg/store"
	storetesting "github.com/marmos91/cosfs/pkg/store/testing"
)

// TestS3Client_Integration runs the store.Client suite against a real
// S3-compatible service (Localstack or MinIO).
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./pkg/store/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Client_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for Localstack
		o.BaseEndpoint = aws.String(endpoint)
	})

	bucketName := "cosfs-test-bucket"
	if _, err := api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	newClient := func() store.Client {
		c, err := New(Config{API: api, Endpoint: endpoint})
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		return c
	}

	t.Cleanup(func() {
		c := newClient()
		entries, err := c.List(ctx, bucketName, "", true)
		if err != nil {
			t.Logf("cleanup list failed: %v", err)
			return
		}
		var keys []string
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		for len(keys) > 0 {
			n := min(len(keys), store.MaxBatchDelete)
			if _, err := c.DeleteBatch(ctx, bucketName, keys[:n]); err != nil {
				t.Logf("cleanup delete failed: %v", err)
			}
			keys = keys[n:]
		}
		_, _ = api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	})

	suite := &storetesting.StoreTestSuite{
		NewClient: newClient,
		Bucket:    bucketName,
	}
	suite.Run(t)
}
