// Package cosfile implements buffered file handles over a store.Client.
//
// A File is opened either for reading or for writing, never both.
//
// Reads know the object size from a HEAD request at open and serve data
// through one of three cache policies (see CacheType). Seeking is free and
// only moves the offset.
//
// Writes are buffered locally. An object that stays within
// SimpleTransferThreshold is uploaded with a single Put at Close. Once the
// buffer grows past the threshold a multipart upload is started and full
// blocks are shipped as parts while writing continues. Close uploads the
// remaining bytes as the final part and completes the upload. Any failure
// aborts the upload exactly once before the error is returned.
//
// With autocommit disabled the object is written under a staging key and
// only becomes visible at its final path after Commit.
//
// A File is owned by one goroutine; it is not safe for concurrent use.
package cosfile

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// File is an open remote object.
type File struct {
	ctx    context.Context
	client store.Client
	path   cospath.Path
	mode   Mode
	opts   Options

	closed bool

	// read state
	info   store.ObjectInfo
	offset int64
	cache  readCache

	// write state
	written    int64
	buf        []byte
	stagingKey string
	uploadID   string
	partNumber int
	group      *errgroup.Group
	groupCtx   context.Context
	partsMu    sync.Mutex
	parts      []store.Part
	failure    error
	staged     bool
	committed  bool
}

// Open opens path on client.
//
// The context is kept for the lifetime of the handle and used by every
// store call it makes, including those behind io.Reader and io.Writer.
func Open(ctx context.Context, client store.Client, path string, mode Mode, opts ...Option) (*File, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.MaxUploadConcurrency <= 0 {
		o.MaxUploadConcurrency = DefaultMaxUploadConcurrency
	}

	p := cospath.Split(path)
	if p.IsRoot() || p.Key == "" {
		return nil, store.InvalidArgument("cannot open %q: path must name an object inside a bucket", path)
	}

	f := &File{
		ctx:    ctx,
		client: client,
		path:   p,
		mode:   mode,
		opts:   o,
	}

	switch mode {
	case ModeRead:
		if err := f.openRead(); err != nil {
			return nil, err
		}
	case ModeWrite:
		if p.VersionID != "" {
			return nil, store.InvalidArgument("cannot write to a specific version: %s", path)
		}
		if !o.Autocommit {
			f.stagingKey = o.StagingPrefix + uuid.NewString() + "/" + p.Key
		}
	default:
		return nil, store.InvalidArgument("invalid file mode %d", int(mode))
	}

	return f, nil
}

func (f *File) openRead() error {
	info, err := f.client.Head(f.ctx, f.path.Bucket, f.path.Key, f.path.VersionID)
	if err != nil {
		return err
	}
	f.info = info

	fetch := func(ctx context.Context, start, end int64) ([]byte, error) {
		return f.client.Get(ctx, f.path.Bucket, f.path.Key, f.path.VersionID, start, end)
	}
	f.cache = newReadCache(f.opts.CacheType, fetch, info.Size, f.opts.BlockSize, f.opts.CacheOptions)
	return nil
}

// Path returns the protocol-less path of the file.
func (f *File) Path() string {
	return f.path.String()
}

// Mode returns the access mode.
func (f *File) Mode() Mode {
	return f.mode
}

// Size returns the object size (read mode) or the bytes written so far.
func (f *File) Size() int64 {
	if f.mode == ModeWrite {
		return f.written
	}
	return f.info.Size
}

// Info returns the metadata fetched at open (read mode only).
func (f *File) Info() store.ObjectInfo {
	return f.info
}

// BlockSize returns the effective block size.
func (f *File) BlockSize() int64 {
	return f.opts.BlockSize
}

// Autocommit reports whether Close publishes the object.
func (f *File) Autocommit() bool {
	return f.opts.Autocommit
}

// targetKey is where the bytes are uploaded: the staging key when
// autocommit is off, otherwise the final key.
func (f *File) targetKey() string {
	if f.stagingKey != "" {
		return f.stagingKey
	}
	return f.path.Key
}

// Close releases a read handle, or flushes a write handle.
//
// For writes Close uploads everything buffered and, with autocommit,
// makes the object visible. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.mode == ModeRead {
		f.cache = nil
		return nil
	}

	if err := f.flush(); err != nil {
		return err
	}
	f.staged = f.stagingKey != ""

	if f.opts.Autocommit {
		f.committed = true
		f.invalidate()
	}
	return nil
}

// Commit publishes a staged write at its final path.
//
// The staged object is copied server-side and the staging key deleted.
// Once the copy succeeds the object is published and Commit returns nil;
// a staging key that cannot be removed is only logged. If the copy fails
// the staged object is kept and Discard removes it. Commit closes the file
// first if needed. With autocommit it is equivalent to Close.
func (f *File) Commit() error {
	if f.mode != ModeWrite {
		return store.InvalidArgument("commit on a file opened for reading: %s", f.Path())
	}
	if err := f.Close(); err != nil {
		return err
	}
	if f.committed {
		return nil
	}
	if !f.staged {
		return store.InvalidArgument("nothing staged to commit for %s", f.Path())
	}

	bucket := f.path.Bucket
	if err := f.client.Copy(f.ctx, bucket, f.stagingKey, "", bucket, f.path.Key); err != nil {
		return err
	}
	f.committed = true
	f.invalidate()

	if err := f.deleteStaging(); err != nil {
		logger.Warn("Committed %s but could not remove staging object %s: %v",
			f.Path(), cospath.Join(bucket, f.stagingKey), err)
		return nil
	}
	logger.Debug("Committed %s", f.Path())
	return nil
}

// Discard drops a write without publishing it.
//
// Before Close the buffer is dropped and an in-flight multipart upload is
// aborted. After Close with autocommit off the staged object is deleted.
// Discarding an already published file does nothing.
func (f *File) Discard() error {
	if f.mode != ModeWrite {
		return f.Close()
	}

	if !f.closed {
		f.closed = true
		f.buf = nil
		if f.group != nil {
			_ = f.group.Wait()
		}
		return f.abort()
	}

	if f.staged && !f.committed {
		f.staged = false
		return f.deleteStaging()
	}
	return nil
}

func (f *File) deleteStaging() error {
	results, err := f.client.DeleteBatch(f.ctx, f.path.Bucket, []string{f.stagingKey})
	if err != nil {
		return err
	}
	if failed := store.FailedDeletes(results); len(failed) > 0 {
		return failed[0].Err
	}
	return nil
}

func (f *File) invalidate() {
	if f.opts.Invalidator != nil {
		f.opts.Invalidator.Invalidate(cospath.Join(f.path.Bucket, f.path.Key))
	}
}
