// Package memory implements store.Client in process memory.
//
// The memory client is used by tests and by the "memory" backend of the
// CLI. It mirrors the observable behavior of an S3-compatible store closely
// enough for the cosfs layers above it: delimited listings with common
// prefixes, byte-range reads, versioned objects, multipart uploads and
// batch deletes that ignore missing keys.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// version is one stored revision of an object.
type version struct {
	id       string
	data     []byte
	modified time.Time
}

// object keeps every version of a key, newest last.
type object struct {
	versions []version
}

func (o *object) latest() version {
	return o.versions[len(o.versions)-1]
}

func (o *object) find(versionID string) (version, bool) {
	if versionID == "" {
		return o.latest(), true
	}
	for _, v := range o.versions {
		if v.id == versionID {
			return v, true
		}
	}
	return version{}, false
}

type bucket struct {
	created time.Time
	objects map[string]*object
}

type upload struct {
	bucket string
	key    string
	parts  map[int][]byte
}

// Client is an in-memory store.Client.
//
// Thread Safety:
// All state is guarded by a single RWMutex. Data is copied on the way in
// and on the way out so callers may reuse their buffers.
type Client struct {
	mu       sync.RWMutex
	buckets  map[string]*bucket
	uploads  map[string]*upload
	endpoint string

	// now is replaceable in tests
	now func() time.Time
}

// New creates an empty memory client with the given buckets.
func New(buckets ...string) *Client {
	c := &Client{
		buckets: make(map[string]*bucket),
		uploads: make(map[string]*upload),
		now:     time.Now,
	}
	for _, b := range buckets {
		c.CreateBucket(b)
	}
	return c
}

// CreateBucket adds an empty bucket. Existing buckets are left untouched.
func (c *Client) CreateBucket(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.buckets[name]; ok {
		return
	}
	c.buckets[name] = &bucket{created: c.now(), objects: make(map[string]*object)}
}

// SetEndpoint records the endpoint. The memory client does not use it.
func (c *Client) SetEndpoint(endpoint string) {
	c.mu.Lock()
	c.endpoint = endpoint
	c.mu.Unlock()
}

// Endpoint returns the last endpoint passed to SetEndpoint.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// PendingUploads returns the number of multipart uploads neither completed
// nor aborted.
func (c *Client) PendingUploads() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.uploads)
}

// ListBuckets returns all buckets sorted by name.
func (c *Client) ListBuckets(ctx context.Context) ([]store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]store.ObjectInfo, 0, len(c.buckets))
	for name, b := range c.buckets {
		out = append(out, store.ObjectInfo{
			Name:         name,
			Bucket:       name,
			Type:         store.EntryBucket,
			LastModified: b.created,
		})
	}
	sortByName(out)
	return out, nil
}

// HeadBucket reports ErrNotFound for unknown buckets.
func (c *Client) HeadBucket(ctx context.Context, bucketName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.buckets[bucketName]; !ok {
		return store.NotFound(bucketName, nil)
	}
	return nil
}

// List returns the entries of bucket under prefix.
//
// A key equal to prefix (a directory marker) is not reported. With
// recursive=false keys containing further "/" below prefix collapse into a
// single EntryDirectory.
func (c *Client) List(ctx context.Context, bucketName, prefix string, recursive bool) ([]store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.buckets[bucketName]
	if !ok {
		return nil, store.NotFound(bucketName, nil)
	}

	var out []store.ObjectInfo
	seenDirs := make(map[string]bool)

	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) || key == prefix {
			continue
		}
		rest := key[len(prefix):]

		if !recursive {
			if idx := strings.Index(rest, "/"); idx >= 0 {
				dirKey := prefix + rest[:idx]
				if !seenDirs[dirKey] {
					seenDirs[dirKey] = true
					out = append(out, directoryInfo(bucketName, dirKey))
				}
				continue
			}
		}

		if strings.HasSuffix(key, "/") {
			dirKey := strings.TrimSuffix(key, "/")
			if !seenDirs[dirKey] {
				seenDirs[dirKey] = true
				out = append(out, directoryInfo(bucketName, dirKey))
			}
			continue
		}

		out = append(out, fileInfo(bucketName, key, obj.latest()))
	}

	sortByName(out)
	return out, nil
}

// Head returns metadata for one object version.
func (c *Client) Head(ctx context.Context, bucketName, key, versionID string) (store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.ObjectInfo{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	v, err := c.lookup(bucketName, key, versionID)
	if err != nil {
		return store.ObjectInfo{}, err
	}
	return fileInfo(bucketName, key, v), nil
}

// Get returns bytes [start, end) of an object, clamped to its size.
func (c *Client) Get(ctx context.Context, bucketName, key, versionID string, start, end int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	v, err := c.lookup(bucketName, key, versionID)
	if err != nil {
		return nil, err
	}

	size := int64(len(v.data))
	if end < 0 || end > size {
		end = size
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return []byte{}, nil
	}

	out := make([]byte, end-start)
	copy(out, v.data[start:end])
	return out, nil
}

// Put stores data as a new version of key.
func (c *Client) Put(ctx context.Context, bucketName, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.putLocked(bucketName, key, data)
}

func (c *Client) putLocked(bucketName, key string, data []byte) error {
	b, ok := c.buckets[bucketName]
	if !ok {
		return store.NotFound(bucketName, nil)
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	obj, ok := b.objects[key]
	if !ok {
		obj = &object{}
		b.objects[key] = obj
	}
	obj.versions = append(obj.versions, version{
		id:       uuid.NewString(),
		data:     stored,
		modified: c.now(),
	})
	return nil
}

// InitiateMultipart starts a multipart upload.
func (c *Client) InitiateMultipart(ctx context.Context, bucketName, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.buckets[bucketName]; !ok {
		return "", store.NotFound(bucketName, nil)
	}

	id := uuid.NewString()
	c.uploads[id] = &upload{bucket: bucketName, key: key, parts: make(map[int][]byte)}
	return id, nil
}

// UploadPart stores one part of an upload. Re-uploading a part number
// replaces it.
func (c *Client) UploadPart(ctx context.Context, bucketName, key, uploadID string, partNumber int, data []byte) (store.Part, error) {
	if err := ctx.Err(); err != nil {
		return store.Part{}, err
	}
	if partNumber < 1 {
		return store.Part{}, store.InvalidArgument("part number must be >= 1, got %d", partNumber)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.uploadLocked(bucketName, key, uploadID)
	if err != nil {
		return store.Part{}, err
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	u.parts[partNumber] = stored

	return store.Part{Number: partNumber, ETag: uuid.NewString(), Size: int64(len(data))}, nil
}

// CompleteMultipart concatenates the listed parts into the object.
func (c *Client) CompleteMultipart(ctx context.Context, bucketName, key, uploadID string, parts []store.Part) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.uploadLocked(bucketName, key, uploadID)
	if err != nil {
		return err
	}

	var data []byte
	for _, p := range parts {
		chunk, ok := u.parts[p.Number]
		if !ok {
			return store.InvalidArgument("upload %s has no part %d", uploadID, p.Number)
		}
		data = append(data, chunk...)
	}

	delete(c.uploads, uploadID)
	return c.putLocked(bucketName, key, data)
}

// AbortMultipart drops an upload. Unknown uploads are ignored.
func (c *Client) AbortMultipart(ctx context.Context, bucketName, key, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.uploads, uploadID)
	return nil
}

// DeleteBatch removes keys from one bucket. Missing keys count as deleted.
func (c *Client) DeleteBatch(ctx context.Context, bucketName string, keys []string) ([]store.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(keys) > store.MaxBatchDelete {
		return nil, store.InvalidArgument("batch of %d keys exceeds limit of %d", len(keys), store.MaxBatchDelete)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[bucketName]
	if !ok {
		return nil, store.NotFound(bucketName, nil)
	}

	results := make([]store.DeleteResult, len(keys))
	for i, key := range keys {
		delete(b.objects, key)
		results[i] = store.DeleteResult{Key: key}
	}
	return results, nil
}

// Exists reports whether the latest version of key exists.
func (c *Client) Exists(ctx context.Context, bucketName, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.buckets[bucketName]
	if !ok {
		return false, nil
	}
	_, ok = b.objects[key]
	return ok, nil
}

// Copy duplicates an object version under a new key.
func (c *Client) Copy(ctx context.Context, srcBucket, srcKey, srcVersionID, dstBucket, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.lookup(srcBucket, srcKey, srcVersionID)
	if err != nil {
		return err
	}
	return c.putLocked(dstBucket, dstKey, v.data)
}

// lookup must be called with mu held.
func (c *Client) lookup(bucketName, key, versionID string) (version, error) {
	path := cospath.Join(bucketName, key)

	b, ok := c.buckets[bucketName]
	if !ok {
		return version{}, store.NotFound(path, nil)
	}
	obj, ok := b.objects[key]
	if !ok {
		return version{}, store.NotFound(path, nil)
	}
	v, ok := obj.find(versionID)
	if !ok {
		return version{}, store.NotFound(path+"?versionId="+versionID, nil)
	}
	return v, nil
}

func (c *Client) uploadLocked(bucketName, key, uploadID string) (*upload, error) {
	u, ok := c.uploads[uploadID]
	if !ok || u.bucket != bucketName || u.key != key {
		return nil, store.NotFound(cospath.Join(bucketName, key)+" (upload "+uploadID+")", nil)
	}
	return u, nil
}

func fileInfo(bucketName, key string, v version) store.ObjectInfo {
	return store.ObjectInfo{
		Name:         cospath.Join(bucketName, key),
		Bucket:       bucketName,
		Key:          key,
		Type:         store.EntryFile,
		Size:         int64(len(v.data)),
		LastModified: v.modified,
		ETag:         v.id,
		VersionID:    v.id,
	}
}

func directoryInfo(bucketName, key string) store.ObjectInfo {
	return store.ObjectInfo{
		Name:   cospath.Join(bucketName, key),
		Bucket: bucketName,
		Key:    key,
		Type:   store.EntryDirectory,
	}
}

func sortByName(entries []store.ObjectInfo) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

var (
	_ store.Client         = (*Client)(nil)
	_ store.EndpointSetter = (*Client)(nil)
)
