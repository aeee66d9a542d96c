// Package store defines the object store capability consumed by cosfs.
//
// A Client speaks to one object store (COS, S3, or the in-process memory
// implementation) in terms of buckets and keys. It knows nothing about
// directories: the hierarchical view, listing cache and buffered file
// handles are built on top of it by pkg/cosfs and pkg/cosfile.
//
// Error Contract:
// Implementations return *StoreError values. A missing bucket, key, version
// or upload is reported with ErrNotFound; every other failure of the
// underlying transport (network, auth, throttling) is reported with
// ErrTransport wrapping the original error. Implementations never retry on
// their own beyond what their transport is configured to do.
package store

import (
	"context"
	"time"
)

// EntryType is the kind of an entry returned by listings.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
	EntryBucket    EntryType = "bucket"
)

// ObjectInfo describes a bucket, a directory (common prefix) or an object.
type ObjectInfo struct {
	// Name is the full protocol-less path ("bucket/dir/file").
	Name string

	Bucket string
	Key    string

	Type EntryType

	// Size in bytes. Zero for buckets and directories.
	Size int64

	LastModified time.Time
	ETag         string
	VersionID    string
}

// IsDir reports whether the entry can hold children.
func (o ObjectInfo) IsDir() bool {
	return o.Type == EntryDirectory || o.Type == EntryBucket
}

// Part identifies one uploaded part of a multipart upload.
type Part struct {
	Number int
	ETag   string
	Size   int64
}

// DeleteResult is the per-key outcome of DeleteBatch.
type DeleteResult struct {
	Key string
	Err error
}

// Client is the object store capability.
//
// Thread safety:
// Implementations must be safe for concurrent use.
type Client interface {
	// ListBuckets returns every bucket visible to the credentials.
	ListBuckets(ctx context.Context) ([]ObjectInfo, error)

	// HeadBucket checks that bucket exists and is reachable. A missing
	// bucket is reported as ErrNotFound.
	HeadBucket(ctx context.Context, bucket string) error

	// List returns entries under prefix. With recursive=false the listing is
	// delimited on "/" and common prefixes are returned as EntryDirectory.
	List(ctx context.Context, bucket, prefix string, recursive bool) ([]ObjectInfo, error)

	// Head returns metadata of one object (optionally a specific version).
	Head(ctx context.Context, bucket, key, versionID string) (ObjectInfo, error)

	// Get returns bytes [start, end) of an object. end < 0 means "to the end".
	Get(ctx context.Context, bucket, key, versionID string, start, end int64) ([]byte, error)

	// Put stores data as the whole object in a single request.
	Put(ctx context.Context, bucket, key string, data []byte) error

	// InitiateMultipart begins a multipart upload and returns its upload ID.
	InitiateMultipart(ctx context.Context, bucket, key string) (string, error)

	// UploadPart uploads one part (numbered from 1).
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, data []byte) (Part, error)

	// CompleteMultipart assembles parts, in the given order, into the object.
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []Part) error

	// AbortMultipart discards an upload and its parts. Idempotent.
	AbortMultipart(ctx context.Context, bucket, key, uploadID string) error

	// DeleteBatch deletes up to MaxBatchDelete keys of one bucket. The error
	// return is reserved for failures of the whole request; per-key failures
	// are reported in the results.
	DeleteBatch(ctx context.Context, bucket string, keys []string) ([]DeleteResult, error)

	// Exists reports whether an object exists.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Copy copies an object server-side.
	Copy(ctx context.Context, srcBucket, srcKey, srcVersionID, dstBucket, dstKey string) error
}

// EndpointSetter is implemented by clients whose endpoint can be changed
// after construction.
type EndpointSetter interface {
	SetEndpoint(endpoint string)
	Endpoint() string
}

// MaxBatchDelete is the largest number of keys one DeleteBatch call accepts.
const MaxBatchDelete = 1000

// FailedDeletes returns the results that carry an error.
func FailedDeletes(results []DeleteResult) []DeleteResult {
	var failed []DeleteResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
