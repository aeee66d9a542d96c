package s3

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// ListBuckets returns every bucket owned by the credentials.
func (c *Client) ListBuckets(ctx context.Context) (entries []store.ObjectInfo, err error) {
	opt, err := c.begin(ctx, "ListBuckets", cospath.RootMarker)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.observe("ListBuckets", start, err) }()

	result, err := c.api.ListBuckets(ctx, &s3.ListBucketsInput{}, opt)
	if err != nil {
		return nil, classify("ListBuckets", "", "", err)
	}

	entries = make([]store.ObjectInfo, 0, len(result.Buckets))
	for _, b := range result.Buckets {
		name := aws.ToString(b.Name)
		entries = append(entries, store.ObjectInfo{
			Name:         name,
			Bucket:       name,
			Type:         store.EntryBucket,
			LastModified: aws.ToTime(b.CreationDate),
		})
	}
	return entries, nil
}

// List pages through ListObjectsV2 under prefix.
//
// With recursive=false the listing uses "/" as delimiter and each common
// prefix becomes an EntryDirectory. The directory marker object equal to
// prefix itself is skipped.
func (c *Client) List(ctx context.Context, bucket, prefix string, recursive bool) (entries []store.ObjectInfo, err error) {
	opt, err := c.begin(ctx, "ListObjectsV2", cospath.Join(bucket, prefix))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.observe("ListObjectsV2", start, err) }()

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx, opt)
		if err != nil {
			return nil, classify("ListObjectsV2", bucket, prefix, err)
		}

		for _, cp := range page.CommonPrefixes {
			key := strings.TrimSuffix(aws.ToString(cp.Prefix), "/")
			entries = append(entries, store.ObjectInfo{
				Name:   cospath.Join(bucket, key),
				Bucket: bucket,
				Key:    key,
				Type:   store.EntryDirectory,
			})
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || key == prefix {
				continue
			}
			entries = append(entries, objectInfo(bucket, key, obj))
		}
	}

	return entries, nil
}

func objectInfo(bucket, key string, obj types.Object) store.ObjectInfo {
	info := store.ObjectInfo{
		Name:         cospath.Join(bucket, key),
		Bucket:       bucket,
		Key:          key,
		Type:         store.EntryFile,
		Size:         aws.ToInt64(obj.Size),
		LastModified: aws.ToTime(obj.LastModified),
		ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
	}
	if strings.HasSuffix(key, "/") {
		info.Key = strings.TrimSuffix(key, "/")
		info.Name = cospath.Join(bucket, info.Key)
		info.Type = store.EntryDirectory
	}
	return info
}

// HeadBucket issues HeadBucket.
func (c *Client) HeadBucket(ctx context.Context, bucket string) (err error) {
	opt, err := c.begin(ctx, "HeadBucket", bucket)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { c.observe("HeadBucket", start, err) }()

	if _, err = c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}, opt); err != nil {
		return classify("HeadBucket", bucket, "", err)
	}
	return nil
}

// Head issues HeadObject, optionally for a specific version.
func (c *Client) Head(ctx context.Context, bucket, key, versionID string) (info store.ObjectInfo, err error) {
	opt, err := c.begin(ctx, "HeadObject", cospath.Join(bucket, key))
	if err != nil {
		return store.ObjectInfo{}, err
	}

	start := time.Now()
	defer func() { c.observe("HeadObject", start, err) }()

	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}

	result, err := c.api.HeadObject(ctx, input, opt)
	if err != nil {
		return store.ObjectInfo{}, classify("HeadObject", bucket, key, err)
	}

	return store.ObjectInfo{
		Name:         cospath.Join(bucket, key),
		Bucket:       bucket,
		Key:          key,
		Type:         store.EntryFile,
		Size:         aws.ToInt64(result.ContentLength),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         strings.Trim(aws.ToString(result.ETag), `"`),
		VersionID:    aws.ToString(result.VersionId),
	}, nil
}

// Get reads bytes [start, end) with a Range request. end < 0 reads to the
// end of the object.
func (c *Client) Get(ctx context.Context, bucket, key, versionID string, startOffset, end int64) (data []byte, err error) {
	opt, err := c.begin(ctx, "GetObject", cospath.Join(bucket, key))
	if err != nil {
		return nil, err
	}
	if end >= 0 && end <= startOffset {
		return []byte{}, nil
	}

	start := time.Now()
	defer func() { c.observe("GetObject", start, err) }()

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(byteRange(startOffset, end)),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}

	result, err := c.api.GetObject(ctx, input, opt)
	if err != nil {
		if apiErrorCode(err) == "InvalidRange" {
			// reading at or past the end of the object
			return []byte{}, nil
		}
		return nil, classify("GetObject", bucket, key, err)
	}
	defer result.Body.Close()

	data, err = io.ReadAll(result.Body)
	if err != nil {
		return nil, store.Transport("GetObject", cospath.Join(bucket, key), err)
	}

	c.metrics.RecordBytes("read", int64(len(data)))
	return data, nil
}

// byteRange renders an HTTP Range header for [start, end).
func byteRange(start, end int64) string {
	if end < 0 {
		return fmt.Sprintf("bytes=%d-", start)
	}
	return fmt.Sprintf("bytes=%d-%d", start, end-1)
}

// Exists reports whether key exists, mapping NotFound to false.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.Head(ctx, bucket, key, "")
	if err == nil {
		return true, nil
	}
	if store.IsNotFound(err) {
		return false, nil
	}
	return false, err
}
