package cosfs

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/cosfs/pkg/cosfile"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// Open opens path with the filesystem defaults, overridden by opts.
func (fs *FileSystem) Open(ctx context.Context, path string, mode cosfile.Mode, opts ...cosfile.Option) (*cosfile.File, error) {
	all := append([]cosfile.Option{
		cosfile.WithBlockSize(fs.cfg.DefaultBlockSize),
		cosfile.WithCacheType(fs.cfg.DefaultCacheType),
		cosfile.WithCacheOptions(fs.cfg.DefaultCacheOptions),
		cosfile.WithUploadConcurrency(fs.cfg.MaxUploadConcurrency),
		cosfile.WithStagingPrefix(fs.cfg.StagingPrefix),
		cosfile.WithInvalidator(fs.cache),
	}, opts...)

	return cosfile.Open(ctx, fs.client, cospath.StripProtocol(path), mode, all...)
}

// WithFile opens path, runs fn and finalizes the file.
//
// When fn succeeds a write is committed (published even with autocommit
// off) and a read is closed. When fn fails or panics, or the commit
// fails, the write is discarded: an in-flight multipart upload is aborted
// and a staged object deleted. The error or panic is passed on.
func (fs *FileSystem) WithFile(ctx context.Context, path string, mode cosfile.Mode, fn func(*cosfile.File) error, opts ...cosfile.Option) (err error) {
	f, err := fs.Open(ctx, path, mode, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = f.Discard()
			panic(r)
		}
	}()

	if err := fn(f); err != nil {
		if discardErr := f.Discard(); discardErr != nil {
			return fmt.Errorf("%w (discard also failed: %v)", err, discardErr)
		}
		return err
	}

	if mode == cosfile.ModeWrite {
		if err := f.Commit(); err != nil {
			if discardErr := f.Discard(); discardErr != nil {
				return fmt.Errorf("%w (discard also failed: %v)", err, discardErr)
			}
			return err
		}
		return nil
	}
	return f.Close()
}

// Touch creates an empty object at path.
//
// With truncate, or when nothing exists at path, the parent listing is
// invalidated and an empty object written. Updating only the timestamp of
// an existing object is not possible on an object store and fails with
// ErrNotImplemented.
func (fs *FileSystem) Touch(ctx context.Context, path string, truncate bool) error {
	path = cospath.StripProtocol(path)

	if !truncate {
		exists, err := fs.Exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			return store.NotImplemented("cannot update the timestamp of an existing object", path)
		}
	}

	fs.cache.Invalidate(cospath.Parent(path))
	return fs.WithFile(ctx, path, cosfile.ModeWrite, func(*cosfile.File) error { return nil })
}

// Cat returns the whole content of path.
func (fs *FileSystem) Cat(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := fs.WithFile(ctx, path, cosfile.ModeRead, func(f *cosfile.File) error {
		var err error
		data, err = io.ReadAll(f)
		return err
	}, cosfile.WithCacheType(cosfile.CacheNone))
	return data, err
}

// CatRange returns bytes [start, end) of path. end < 0 reads to the end.
func (fs *FileSystem) CatRange(ctx context.Context, path string, start, end int64) ([]byte, error) {
	p := cospath.Split(path)
	if p.Key == "" {
		return nil, store.InvalidArgument("cannot read %q: not an object", path)
	}
	return fs.client.Get(ctx, p.Bucket, p.Key, p.VersionID, start, end)
}

// Pipe writes data as the whole content of path.
func (fs *FileSystem) Pipe(ctx context.Context, path string, data []byte) error {
	return fs.WithFile(ctx, path, cosfile.ModeWrite, func(f *cosfile.File) error {
		_, err := f.Write(data)
		return err
	})
}

// PutFrom streams r into path.
func (fs *FileSystem) PutFrom(ctx context.Context, path string, r io.Reader, opts ...cosfile.Option) (int64, error) {
	var n int64
	err := fs.WithFile(ctx, path, cosfile.ModeWrite, func(f *cosfile.File) error {
		var err error
		n, err = io.Copy(f, r)
		return err
	}, opts...)
	return n, err
}

// GetTo streams path into w.
func (fs *FileSystem) GetTo(ctx context.Context, path string, w io.Writer, opts ...cosfile.Option) (int64, error) {
	var n int64
	err := fs.WithFile(ctx, path, cosfile.ModeRead, func(f *cosfile.File) error {
		var err error
		n, err = io.Copy(w, f)
		return err
	}, opts...)
	return n, err
}
