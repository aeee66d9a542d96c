package cosfile

import (
	"strings"

	"github.com/marmos91/cosfs/pkg/listing"
	"github.com/marmos91/cosfs/pkg/store"
)

const (
	// DefaultBlockSize is the read block and upload part size.
	DefaultBlockSize int64 = 5 * 1024 * 1024

	// SimpleTransferThreshold is the largest object written with a single
	// Put. Anything larger goes through a multipart upload.
	SimpleTransferThreshold int64 = 100 * 1024 * 1024

	// DefaultMaxUploadConcurrency bounds in-flight part uploads per file.
	DefaultMaxUploadConcurrency = 4

	// DefaultMaxBlocks is the block cache capacity when none is given.
	DefaultMaxBlocks = 32

	// DefaultStagingPrefix is where non-autocommit writes land first.
	DefaultStagingPrefix = ".cosfs-staging/"
)

// Mode is the access mode of a File.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "wb"
	}
	return "rb"
}

// ParseMode accepts "r", "rb", "w" and "wb". Append and update modes are
// not supported by object stores.
func ParseMode(s string) (Mode, error) {
	if strings.ContainsAny(s, "a+") {
		return 0, store.NotImplemented("append and update modes are not supported", s)
	}
	switch s {
	case "r", "rb", "":
		return ModeRead, nil
	case "w", "wb":
		return ModeWrite, nil
	default:
		return 0, store.InvalidArgument("invalid file mode %q", s)
	}
}

// CacheType selects the read caching policy.
type CacheType string

const (
	// CacheNone fetches exactly the requested ranges.
	CacheNone CacheType = "none"

	// CacheReadahead keeps one contiguous window and prefetches one block
	// past every miss.
	CacheReadahead CacheType = "readahead"

	// CacheBlock keeps an LRU of aligned blocks.
	CacheBlock CacheType = "blockcache"
)

// ParseCacheType validates a cache type name. Empty means readahead.
func ParseCacheType(s string) (CacheType, error) {
	switch CacheType(s) {
	case "":
		return CacheReadahead, nil
	case CacheNone, CacheReadahead, CacheBlock:
		return CacheType(s), nil
	default:
		return "", store.InvalidArgument("unknown cache type %q (want none, readahead or blockcache)", s)
	}
}

// CacheOptions tunes the read cache.
type CacheOptions struct {
	// MaxBlocks is the block cache capacity (blockcache only).
	MaxBlocks int
}

// Options configure one open file.
type Options struct {
	BlockSize            int64
	CacheType            CacheType
	CacheOptions         CacheOptions
	Autocommit           bool
	MaxUploadConcurrency int
	StagingPrefix        string

	// Invalidator is notified of the published path after a write.
	Invalidator listing.Invalidator
}

// DefaultOptions returns the per-file defaults.
func DefaultOptions() Options {
	return Options{
		BlockSize:            DefaultBlockSize,
		CacheType:            CacheReadahead,
		CacheOptions:         CacheOptions{MaxBlocks: DefaultMaxBlocks},
		Autocommit:           true,
		MaxUploadConcurrency: DefaultMaxUploadConcurrency,
		StagingPrefix:        DefaultStagingPrefix,
	}
}

// Option overrides one field of Options.
type Option func(*Options)

// WithBlockSize sets the block size. Non-positive values are ignored.
func WithBlockSize(size int64) Option {
	return func(o *Options) {
		if size > 0 {
			o.BlockSize = size
		}
	}
}

// WithCacheType sets the read cache policy.
func WithCacheType(t CacheType) Option {
	return func(o *Options) {
		if t != "" {
			o.CacheType = t
		}
	}
}

// WithCacheOptions sets the read cache tuning.
func WithCacheOptions(c CacheOptions) Option {
	return func(o *Options) { o.CacheOptions = c }
}

// WithAutocommit controls whether Close publishes the object.
func WithAutocommit(autocommit bool) Option {
	return func(o *Options) { o.Autocommit = autocommit }
}

// WithUploadConcurrency bounds concurrent part uploads.
func WithUploadConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxUploadConcurrency = n
		}
	}
}

// WithStagingPrefix sets the key prefix used by non-autocommit writes.
func WithStagingPrefix(prefix string) Option {
	return func(o *Options) {
		if prefix != "" {
			o.StagingPrefix = prefix
		}
	}
}

// WithInvalidator registers the listing cache to notify after publishing.
func WithInvalidator(inv listing.Invalidator) Option {
	return func(o *Options) { o.Invalidator = inv }
}
