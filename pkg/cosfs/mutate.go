package cosfs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/batch"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// Rm deletes paths.
//
// With recursive, each path is expanded to every object below it,
// including directory marker objects. Keys are grouped per bucket and
// removed in batches of at most batch.MaxKeys. Parent listings are
// invalidated before each batch is sent and are not restored if the store
// then reports a failure. Failures of individual keys or whole batches are
// collected and returned together as one ErrTransport error.
func (fs *FileSystem) Rm(ctx context.Context, paths []string, recursive bool) error {
	if len(paths) == 0 {
		return store.InvalidArgument("no paths to delete")
	}

	grouped, order, err := fs.expandForDelete(ctx, paths, recursive)
	if err != nil {
		return err
	}

	var failures []error
	failedKeys := 0
	total := 0

	for _, bucket := range order {
		for _, chunk := range batch.Chunk(grouped[bucket], batch.MaxKeys) {
			total += len(chunk)
			chunkPaths := make([]string, len(chunk))
			for i, key := range chunk {
				chunkPaths[i] = cospath.Join(bucket, key)
			}

			req, err := fs.planner.PlanDelete(chunkPaths)
			if err != nil {
				return err
			}

			results, err := fs.client.DeleteBatch(ctx, req.Bucket, req.Keys)
			if err != nil {
				failures = append(failures, err)
				failedKeys += len(req.Keys)
				continue
			}
			for _, r := range store.FailedDeletes(results) {
				failures = append(failures, fmt.Errorf("%s: %w", cospath.Join(req.Bucket, r.Key), r.Err))
				failedKeys++
			}
		}
	}

	for _, p := range paths {
		fs.cache.Invalidate(cospath.StripProtocol(p))
	}

	if len(failures) > 0 {
		logger.Warn("Delete finished with %d of %d keys failed", failedKeys, total)
		return &store.StoreError{
			Code:    store.ErrTransport,
			Message: fmt.Sprintf("failed to delete %d of %d keys", failedKeys, total),
			Err:     errors.Join(failures...),
		}
	}

	logger.Debug("Deleted %d keys", total)
	return nil
}

// expandForDelete resolves paths into keys grouped by bucket. order lists
// buckets in first-seen order. Every path is validated before the first
// listing request.
func (fs *FileSystem) expandForDelete(ctx context.Context, paths []string, recursive bool) (map[string][]string, []string, error) {
	grouped := make(map[string][]string)
	var order []string

	add := func(bucket, key string) {
		if _, ok := grouped[bucket]; !ok {
			order = append(order, bucket)
		}
		grouped[bucket] = append(grouped[bucket], key)
	}

	split := make([]cospath.Path, len(paths))
	for i, path := range paths {
		p := cospath.Split(path)
		if p.IsRoot() {
			return nil, nil, store.InvalidArgument("cannot delete the root")
		}
		if !recursive && p.Key == "" {
			return nil, nil, store.InvalidArgument("cannot delete bucket %q without recursive", p.Bucket)
		}
		split[i] = p
	}

	for _, p := range split {
		if !recursive {
			add(p.Bucket, p.Key)
			continue
		}

		key := strings.TrimSuffix(p.Key, "/")
		entries, err := fs.client.List(ctx, p.Bucket, dirPrefix(key), true)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range entries {
			if e.Type == store.EntryDirectory {
				add(p.Bucket, e.Key+"/")
			} else {
				add(p.Bucket, e.Key)
			}
		}
		if key != "" {
			// the object itself, or the directory marker
			add(p.Bucket, key)
			add(p.Bucket, key+"/")
		}
	}

	return grouped, order, nil
}

// RmFile deletes one object.
func (fs *FileSystem) RmFile(ctx context.Context, path string) error {
	req, err := fs.planner.PlanDelete([]string{cospath.StripProtocol(path)})
	if err != nil {
		return err
	}
	if len(req.Keys) == 1 && req.Keys[0] == "" {
		return store.InvalidArgument("%q is a bucket, not a file", path)
	}

	results, err := fs.client.DeleteBatch(ctx, req.Bucket, req.Keys)
	if err != nil {
		return err
	}
	if failed := store.FailedDeletes(results); len(failed) > 0 {
		return failed[0].Err
	}
	return nil
}

// Copy copies src to dst server-side.
//
// With recursive and a directory src, every object below src is copied to
// the same relative key below dst.
func (fs *FileSystem) Copy(ctx context.Context, src, dst string, recursive bool) error {
	s := cospath.Split(src)
	d := cospath.Split(dst)
	if s.Key == "" && !recursive {
		return store.InvalidArgument("cannot copy bucket %q without recursive", s.Bucket)
	}
	if d.IsRoot() {
		return store.InvalidArgument("copy destination must be inside a bucket")
	}

	if !recursive {
		return fs.copyObject(ctx, s, d.Bucket, d.Key)
	}

	srcKey := strings.TrimSuffix(s.Key, "/")
	entries, err := fs.client.List(ctx, s.Bucket, dirPrefix(srcKey), true)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		// a plain object
		return fs.copyObject(ctx, s, d.Bucket, d.Key)
	}

	dstKey := strings.TrimSuffix(d.Key, "/")
	for _, e := range entries {
		if e.Type != store.EntryFile {
			continue
		}
		rel := strings.TrimPrefix(e.Key, dirPrefix(srcKey))
		target := dirPrefix(dstKey) + rel
		if err := fs.copyObject(ctx, cospath.Path{Bucket: s.Bucket, Key: e.Key}, d.Bucket, target); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileSystem) copyObject(ctx context.Context, src cospath.Path, dstBucket, dstKey string) error {
	if dstKey == "" || strings.HasSuffix(dstKey, "/") {
		dstKey = dirPrefix(strings.TrimSuffix(dstKey, "/")) + cospath.Base(src.Key)
	}
	if err := fs.client.Copy(ctx, src.Bucket, src.Key, src.VersionID, dstBucket, dstKey); err != nil {
		return err
	}
	fs.cache.Invalidate(cospath.Join(dstBucket, dstKey))
	logger.Debug("Copied %s to %s", src.String(), cospath.Join(dstBucket, dstKey))
	return nil
}

// Move copies src to dst and then deletes src.
func (fs *FileSystem) Move(ctx context.Context, src, dst string, recursive bool) error {
	if err := fs.Copy(ctx, src, dst, recursive); err != nil {
		return err
	}
	p := cospath.Split(src)
	return fs.Rm(ctx, []string{cospath.Join(p.Bucket, p.Key)}, recursive)
}
