package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// Put uploads data in a single PutObject request.
func (c *Client) Put(ctx context.Context, bucket, key string, data []byte) (err error) {
	opt, err := c.begin(ctx, "PutObject", cospath.Join(bucket, key))
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { c.observe("PutObject", start, err) }()

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}, opt)
	if err != nil {
		return classify("PutObject", bucket, key, err)
	}

	c.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// Copy issues a server-side CopyObject.
func (c *Client) Copy(ctx context.Context, srcBucket, srcKey, srcVersionID, dstBucket, dstKey string) (err error) {
	opt, err := c.begin(ctx, "CopyObject", cospath.Join(dstBucket, dstKey))
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { c.observe("CopyObject", start, err) }()

	source := url.PathEscape(srcBucket + "/" + srcKey)
	if srcVersionID != "" {
		source += "?versionId=" + url.QueryEscape(srcVersionID)
	}

	_, err = c.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	}, opt)
	if err != nil {
		return classify("CopyObject", srcBucket, srcKey, err)
	}
	return nil
}

// DeleteBatch removes up to store.MaxBatchDelete keys with one
// DeleteObjects request and reports per-key outcomes.
func (c *Client) DeleteBatch(ctx context.Context, bucket string, keys []string) (results []store.DeleteResult, err error) {
	if len(keys) > store.MaxBatchDelete {
		return nil, store.InvalidArgument("batch of %d keys exceeds limit of %d", len(keys), store.MaxBatchDelete)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	opt, err := c.begin(ctx, "DeleteObjects", bucket)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.observe("DeleteObjects", start, err) }()

	objects := make([]types.ObjectIdentifier, len(keys))
	for i, key := range keys {
		objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
	}

	result, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	}, opt)
	if err != nil {
		return nil, classify("DeleteObjects", bucket, "", err)
	}

	// Quiet mode only reports failures
	failed := make(map[string]error, len(result.Errors))
	for _, deleteErr := range result.Errors {
		key := aws.ToString(deleteErr.Key)
		failed[key] = store.Transport("DeleteObject", cospath.Join(bucket, key),
			fmt.Errorf("%s: %s", aws.ToString(deleteErr.Code), aws.ToString(deleteErr.Message)))
	}
	if len(failed) > 0 {
		logger.Warn("DeleteObjects on %s: %d of %d keys failed", bucket, len(failed), len(keys))
	}

	results = make([]store.DeleteResult, len(keys))
	for i, key := range keys {
		results[i] = store.DeleteResult{Key: key, Err: failed[key]}
	}
	return results, nil
}
