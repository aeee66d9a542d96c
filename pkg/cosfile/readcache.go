package cosfile

import (
	"context"
	"strconv"
	"time"

	"github.com/orca-zhang/ecache"
)

// fetchFunc reads bytes [start, end) of the remote object.
type fetchFunc func(ctx context.Context, start, end int64) ([]byte, error)

// readCache serves reads of an object of known size.
//
// read returns at most n bytes starting at off; fewer only at end of file.
type readCache interface {
	read(ctx context.Context, off int64, n int) ([]byte, error)
}

func newReadCache(t CacheType, fetch fetchFunc, size, blockSize int64, opts CacheOptions) readCache {
	switch t {
	case CacheNone:
		return &noCache{fetch: fetch, size: size}
	case CacheBlock:
		return newBlockCache(fetch, size, blockSize, opts.MaxBlocks)
	default:
		return &readaheadCache{fetch: fetch, size: size, blockSize: blockSize}
	}
}

// clampEnd returns min(off+n, size).
func clampEnd(off int64, n int, size int64) int64 {
	return min(off+int64(n), size)
}

type noCache struct {
	fetch fetchFunc
	size  int64
}

func (c *noCache) read(ctx context.Context, off int64, n int) ([]byte, error) {
	end := clampEnd(off, n, c.size)
	if off >= end {
		return nil, nil
	}
	return c.fetch(ctx, off, end)
}

// readaheadCache keeps the last fetched contiguous window.
type readaheadCache struct {
	fetch     fetchFunc
	size      int64
	blockSize int64

	start  int64
	window []byte
}

func (c *readaheadCache) read(ctx context.Context, off int64, n int) ([]byte, error) {
	end := clampEnd(off, n, c.size)
	if off >= end {
		return nil, nil
	}

	if off >= c.start && end <= c.start+int64(len(c.window)) {
		return c.window[off-c.start : end-c.start], nil
	}

	fetchEnd := min(end+c.blockSize, c.size)
	data, err := c.fetch(ctx, off, fetchEnd)
	if err != nil {
		return nil, err
	}
	c.start = off
	c.window = data

	if int64(len(data)) < end-off {
		return data, nil
	}
	return data[:end-off], nil
}

// blockCache keeps up to maxBlocks aligned blocks in an LRU.
type blockCache struct {
	fetch     fetchFunc
	size      int64
	blockSize int64
	blocks    *ecache.Cache
}

// blockCacheTTL outlives any open file handle; eviction is by LRU.
const blockCacheTTL = 24 * time.Hour

func newBlockCache(fetch fetchFunc, size, blockSize int64, maxBlocks int) *blockCache {
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxBlocks
	}
	if maxBlocks > 65535 {
		maxBlocks = 65535
	}
	return &blockCache{
		fetch:     fetch,
		size:      size,
		blockSize: blockSize,
		blocks:    ecache.NewLRUCache(1, uint16(maxBlocks), blockCacheTTL),
	}
}

func (c *blockCache) block(ctx context.Context, idx int64) ([]byte, error) {
	key := strconv.FormatInt(idx, 10)
	if v, ok := c.blocks.Get(key); ok {
		return v.([]byte), nil
	}

	start := idx * c.blockSize
	data, err := c.fetch(ctx, start, min(start+c.blockSize, c.size))
	if err != nil {
		return nil, err
	}
	c.blocks.Put(key, data)
	return data, nil
}

func (c *blockCache) read(ctx context.Context, off int64, n int) ([]byte, error) {
	end := clampEnd(off, n, c.size)
	if off >= end {
		return nil, nil
	}

	out := make([]byte, 0, end-off)
	for pos := off; pos < end; {
		idx := pos / c.blockSize
		data, err := c.block(ctx, idx)
		if err != nil {
			return nil, err
		}

		blockStart := idx * c.blockSize
		from := pos - blockStart
		to := min(end-blockStart, int64(len(data)))
		if from >= to {
			break
		}
		out = append(out, data[from:to]...)
		pos = blockStart + to
	}
	return out, nil
}
