// Package batch validates traversal arguments and turns path lists into
// delete requests the object store accepts.
//
// Every check runs before any side effect: a rejected call neither touches
// the listing cache nor reaches the network.
package batch

import (
	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/listing"
	"github.com/marmos91/cosfs/pkg/store"
)

// MaxKeys is the largest number of keys a single Request may carry.
const MaxKeys = store.MaxBatchDelete

// Request is one bulk delete against a single bucket.
type Request struct {
	Bucket string

	// Keys in input order. Duplicates are kept.
	Keys []string
}

// Planner validates find arguments and plans batch deletes.
type Planner struct {
	cache listing.Invalidator
}

// NewPlanner creates a Planner that invalidates through cache.
// A nil cache disables invalidation.
func NewPlanner(cache listing.Invalidator) *Planner {
	return &Planner{cache: cache}
}

// ValidateFind checks the arguments of a find traversal and returns the
// protocol-less path to traverse.
//
// The prefix filter is applied by the store while maxDepth and withDirs are
// applied locally to a delimited walk, so the two cannot be combined.
// Traversing the root (every bucket) is refused.
func (p *Planner) ValidateFind(path string, maxDepth int, withDirs bool, prefix string) (string, error) {
	path = cospath.StripProtocol(path)

	if cospath.Normalize(path) == cospath.RootMarker {
		return "", store.InvalidArgument("cannot traverse all buckets; specify a bucket")
	}
	if prefix != "" && (withDirs || maxDepth > 0) {
		return "", store.InvalidArgument("can not specify 'prefix' option alongside 'maxdepth' or 'withdirs' options")
	}

	return path, nil
}

// PlanDelete builds a Request for paths.
//
// It fails with ErrInvalidArgument when paths is empty, holds more than
// MaxKeys entries, or spans more than one bucket. On success the parent
// of every path is invalidated before the request is returned, so the
// invalidation happens whether or not the store later confirms every key.
func (p *Planner) PlanDelete(paths []string) (Request, error) {
	if len(paths) == 0 {
		return Request{}, store.InvalidArgument("no paths to delete")
	}
	if len(paths) > MaxKeys {
		return Request{}, store.InvalidArgument("cannot delete more than %d files at once, got %d", MaxKeys, len(paths))
	}

	req := Request{Keys: make([]string, 0, len(paths))}
	for i, path := range paths {
		bucket, key := cospath.SplitPath(path)
		if i == 0 {
			req.Bucket = bucket
		} else if bucket != req.Bucket {
			return Request{}, store.InvalidArgument("delete batch spans buckets %q and %q; all paths must share one bucket", req.Bucket, bucket)
		}
		req.Keys = append(req.Keys, key)
	}

	if p.cache != nil {
		for _, parent := range DistinctParents(paths) {
			p.cache.Invalidate(parent)
		}
	}

	logger.Debug("Planned delete of %d keys in bucket %s", len(req.Keys), req.Bucket)
	return req, nil
}

// DistinctParents returns the parent of each path, without duplicates, in
// first-seen order.
func DistinctParents(paths []string) []string {
	seen := make(map[string]bool)
	var parents []string
	for _, path := range paths {
		parent := cospath.Parent(path)
		if !seen[parent] {
			seen[parent] = true
			parents = append(parents, parent)
		}
	}
	return parents
}

// Chunk splits keys into slices of at most size elements.
func Chunk(keys []string, size int) [][]string {
	if size <= 0 {
		size = MaxKeys
	}
	var chunks [][]string
	for len(keys) > 0 {
		n := min(len(keys), size)
		chunks = append(chunks, keys[:n:n])
		keys = keys[n:]
	}
	return chunks
}
