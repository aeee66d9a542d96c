package s3

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// InitiateMultipart creates a multipart upload session.
func (c *Client) InitiateMultipart(ctx context.Context, bucket, key string) (uploadID string, err error) {
	opt, err := c.begin(ctx, "CreateMultipartUpload", cospath.Join(bucket, key))
	if err != nil {
		return "", err
	}

	start := time.Now()
	defer func() { c.observe("CreateMultipartUpload", start, err) }()

	result, err := c.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, opt)
	if err != nil {
		return "", classify("CreateMultipartUpload", bucket, key, err)
	}

	uploadID = aws.ToString(result.UploadId)
	c.metrics.RecordMultipartUpload("initiated")
	logger.Debug("multipart upload %s started for %s", uploadID, cospath.Join(bucket, key))
	return uploadID, nil
}

// UploadPart uploads one part. Part numbers range from 1 to 10000.
func (c *Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, data []byte) (part store.Part, err error) {
	opt, err := c.begin(ctx, "UploadPart", cospath.Join(bucket, key))
	if err != nil {
		return store.Part{}, err
	}

	start := time.Now()
	defer func() { c.observe("UploadPart", start, err) }()

	result, err := c.api.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(int32(partNumber)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}, opt)
	if err != nil {
		return store.Part{}, classify("UploadPart", bucket, key, err)
	}

	c.metrics.RecordBytes("write", int64(len(data)))
	return store.Part{
		Number: partNumber,
		ETag:   aws.ToString(result.ETag),
		Size:   int64(len(data)),
	}, nil
}

// CompleteMultipart assembles the parts in the order given.
func (c *Client) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []store.Part) (err error) {
	opt, err := c.begin(ctx, "CompleteMultipartUpload", cospath.Join(bucket, key))
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { c.observe("CompleteMultipartUpload", start, err) }()

	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(int32(p.Number)),
		}
	}

	_, err = c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	}, opt)
	if err != nil {
		return classify("CompleteMultipartUpload", bucket, key, err)
	}

	c.metrics.RecordMultipartUpload("completed")
	return nil
}

// AbortMultipart cancels an upload. A missing upload is not an error.
func (c *Client) AbortMultipart(ctx context.Context, bucket, key, uploadID string) (err error) {
	opt, err := c.begin(ctx, "AbortMultipartUpload", cospath.Join(bucket, key))
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { c.observe("AbortMultipartUpload", start, err) }()

	_, err = c.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	}, opt)
	if err != nil {
		if apiErrorCode(err) == "NoSuchUpload" {
			return nil
		}
		return classify("AbortMultipartUpload", bucket, key, err)
	}

	c.metrics.RecordMultipartUpload("aborted")
	logger.Debug("multipart upload %s aborted for %s", uploadID, cospath.Join(bucket, key))
	return nil
}
