package cosfs

import (
	"context"
	"sort"
	"strings"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// Ls lists the children of path.
//
// The root lists buckets. A path naming an object returns that object
// alone. Directory listings are cached; single-object results are not.
func (fs *FileSystem) Ls(ctx context.Context, path string) ([]store.ObjectInfo, error) {
	norm := cospath.Normalize(path)

	if entries, ok := fs.cache.Get(norm); ok {
		logger.Debug("Listing cache hit for %q", norm)
		return entries, nil
	}

	if norm == cospath.RootMarker {
		buckets, err := fs.client.ListBuckets(ctx)
		if err != nil {
			return nil, err
		}
		fs.cache.Put(norm, buckets)
		return buckets, nil
	}

	bucket, key := cospath.SplitPath(norm)
	entries, err := fs.client.List(ctx, bucket, dirPrefix(key), false)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 && key != "" {
		// not a directory with children: an object, an empty directory
		// marker, or nothing
		info, err := fs.client.Head(ctx, bucket, key, "")
		if err == nil {
			return []store.ObjectInfo{info}, nil
		}
		if !store.IsNotFound(err) {
			return nil, err
		}
		marker, err := fs.client.Exists(ctx, bucket, dirPrefix(key))
		if err != nil {
			return nil, err
		}
		if !marker {
			return nil, store.NotFound(norm, nil)
		}
	}

	logger.Debug("Listing cache miss for %q: %d entries", norm, len(entries))
	fs.cache.Put(norm, entries)
	return entries, nil
}

// dirPrefix turns a key into the prefix of its children.
func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSuffix(key, "/") + "/"
}

// Info returns the metadata of path.
//
// The cached listing of the parent directory is consulted first. Paths
// that are not objects but have children are reported as directories.
func (fs *FileSystem) Info(ctx context.Context, path string) (store.ObjectInfo, error) {
	p := cospath.Split(path)
	norm := cospath.Join(p.Bucket, strings.TrimSuffix(p.Key, "/"))

	if p.IsRoot() {
		return store.ObjectInfo{Type: store.EntryDirectory}, nil
	}

	if p.VersionID == "" {
		if siblings, ok := fs.cache.Get(cospath.Parent(norm)); ok {
			for _, e := range siblings {
				if e.Name == norm {
					return e, nil
				}
			}
		}
	}

	if p.IsBucket() {
		if err := fs.client.HeadBucket(ctx, p.Bucket); err != nil {
			return store.ObjectInfo{}, err
		}
		return store.ObjectInfo{Name: p.Bucket, Bucket: p.Bucket, Type: store.EntryBucket}, nil
	}

	key := strings.TrimSuffix(p.Key, "/")
	info, err := fs.client.Head(ctx, p.Bucket, key, p.VersionID)
	if err == nil {
		return info, nil
	}
	if !store.IsNotFound(err) || p.VersionID != "" {
		return store.ObjectInfo{}, err
	}

	children, err := fs.Ls(ctx, norm)
	if err != nil {
		return store.ObjectInfo{}, err
	}
	if len(children) == 1 && children[0].Name == norm && children[0].Type == store.EntryFile {
		// created between the HEAD and the listing
		return children[0], nil
	}
	return store.ObjectInfo{Name: norm, Bucket: p.Bucket, Key: key, Type: store.EntryDirectory}, nil
}

// Exists reports whether path names the root, a bucket, a directory or an
// object.
func (fs *FileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := fs.Info(ctx, path)
	if err == nil {
		return true, nil
	}
	if store.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether path is the root, a bucket or a directory.
func (fs *FileSystem) IsDir(ctx context.Context, path string) (bool, error) {
	info, err := fs.Info(ctx, path)
	if store.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// IsFile reports whether path is an object.
func (fs *FileSystem) IsFile(ctx context.Context, path string) (bool, error) {
	info, err := fs.Info(ctx, path)
	if store.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Type == store.EntryFile, nil
}

// FindOptions filter Find results.
type FindOptions struct {
	// MaxDepth limits recursion (1 = direct children). Zero is unlimited.
	MaxDepth int

	// WithDirs includes directories in the result.
	WithDirs bool

	// Prefix restricts results to keys starting with path + "/" + Prefix.
	// It is applied by the store and cannot be combined with MaxDepth or
	// WithDirs.
	Prefix string
}

// Find returns every object below path, sorted by name.
//
// A path naming a single object returns that object.
func (fs *FileSystem) Find(ctx context.Context, path string, opts FindOptions) ([]store.ObjectInfo, error) {
	path, err := fs.planner.ValidateFind(path, opts.MaxDepth, opts.WithDirs, opts.Prefix)
	if err != nil {
		return nil, err
	}

	bucket, key := cospath.SplitPath(path)
	key = strings.TrimSuffix(key, "/")

	var out []store.ObjectInfo
	switch {
	case opts.Prefix != "":
		entries, err := fs.client.List(ctx, bucket, dirPrefix(key)+opts.Prefix, true)
		if err != nil {
			return nil, err
		}
		out = filesOnly(entries)

	case opts.MaxDepth == 0 && !opts.WithDirs:
		entries, err := fs.client.List(ctx, bucket, dirPrefix(key), true)
		if err != nil {
			return nil, err
		}
		out = filesOnly(entries)

	default:
		err := fs.Walk(ctx, path, opts.MaxDepth, func(_ string, dirs, files []store.ObjectInfo) error {
			if opts.WithDirs {
				out = append(out, dirs...)
			}
			out = append(out, files...)
			return nil
		})
		if err != nil && !store.IsNotFound(err) {
			return nil, err
		}
	}

	if len(out) == 0 && key != "" {
		info, err := fs.client.Head(ctx, bucket, key, "")
		if err == nil {
			return []store.ObjectInfo{info}, nil
		}
		if !store.IsNotFound(err) {
			return nil, err
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func filesOnly(entries []store.ObjectInfo) []store.ObjectInfo {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Type == store.EntryFile {
			out = append(out, e)
		}
	}
	return out
}

// WalkFunc is called once per directory with its subdirectories and files.
// Returning an error stops the walk.
type WalkFunc func(dir string, dirs, files []store.ObjectInfo) error

// Walk visits path and its subdirectories top-down using cached listings.
// maxDepth limits the number of levels visited (1 = path only); zero is
// unlimited. Walking the root is refused.
func (fs *FileSystem) Walk(ctx context.Context, path string, maxDepth int, fn WalkFunc) error {
	path, err := fs.planner.ValidateFind(path, maxDepth, false, "")
	if err != nil {
		return err
	}
	return fs.walk(ctx, cospath.Normalize(path), 1, maxDepth, fn)
}

func (fs *FileSystem) walk(ctx context.Context, dir string, depth, maxDepth int, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := fs.Ls(ctx, dir)
	if err != nil {
		return err
	}

	var dirs, files []store.ObjectInfo
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		} else if e.Name != dir {
			files = append(files, e)
		}
	}

	if err := fn(dir, dirs, files); err != nil {
		return err
	}

	if maxDepth > 0 && depth >= maxDepth {
		return nil
	}
	for _, d := range dirs {
		if err := fs.walk(ctx, d.Name, depth+1, maxDepth, fn); err != nil {
			return err
		}
	}
	return nil
}
