// Package cosfs presents buckets, directories and objects of a COS/S3 store
// as one hierarchical filesystem.
//
// A FileSystem combines a store.Client with an instance-owned listing
// cache and a batch planner. Paths may be written as "cos://bucket/key",
// "/bucket/key" or "bucket/key"; the empty path is the root, whose
// children are the buckets.
//
// Metadata operations (Ls, Info, Find, Walk) are served from the listing
// cache when possible. Mutations (Rm, Copy, Move, Touch and file writes)
// invalidate the affected directory and all of its ancestors.
package cosfs

import (
	"os"
	"sync"
	"time"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/batch"
	"github.com/marmos91/cosfs/pkg/cosfile"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/listing"
	"github.com/marmos91/cosfs/pkg/store"
)

// EndpointEnvVar is consulted when Config.Endpoint is empty.
const EndpointEnvVar = "COS_ENDPOINT"

// Config holds the filesystem tunables.
type Config struct {
	// Endpoint is the store endpoint URL. Empty falls back to COS_ENDPOINT.
	Endpoint string

	// DefaultCacheType is the read cache of files opened without an
	// explicit cosfile.WithCacheType.
	DefaultCacheType cosfile.CacheType

	// DefaultCacheOptions tunes the default read cache.
	DefaultCacheOptions cosfile.CacheOptions

	// DefaultBlockSize is the block size of files opened without an
	// explicit cosfile.WithBlockSize.
	DefaultBlockSize int64

	// UseListingsCache enables the listing cache.
	UseListingsCache bool

	// ListingsExpiryTime is the listing cache TTL. Zero never expires.
	ListingsExpiryTime time.Duration

	// MaxPaths bounds the number of cached listings. Zero is unbounded.
	MaxPaths int

	// StagingPrefix is the key prefix of non-autocommit writes.
	StagingPrefix string

	// MaxUploadConcurrency bounds concurrent part uploads per file.
	MaxUploadConcurrency int
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		DefaultCacheType:     cosfile.CacheReadahead,
		DefaultCacheOptions:  cosfile.CacheOptions{MaxBlocks: cosfile.DefaultMaxBlocks},
		DefaultBlockSize:     cosfile.DefaultBlockSize,
		UseListingsCache:     true,
		StagingPrefix:        cosfile.DefaultStagingPrefix,
		MaxUploadConcurrency: cosfile.DefaultMaxUploadConcurrency,
	}
}

// applyDefaults fills zero values. UseListingsCache is left as given.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.DefaultCacheType == "" {
		c.DefaultCacheType = defaults.DefaultCacheType
	}
	if c.DefaultCacheOptions.MaxBlocks <= 0 {
		c.DefaultCacheOptions = defaults.DefaultCacheOptions
	}
	if c.DefaultBlockSize <= 0 {
		c.DefaultBlockSize = defaults.DefaultBlockSize
	}
	if c.StagingPrefix == "" {
		c.StagingPrefix = defaults.StagingPrefix
	}
	if c.MaxUploadConcurrency <= 0 {
		c.MaxUploadConcurrency = defaults.MaxUploadConcurrency
	}
}

func (c *Config) validate() error {
	if _, err := cosfile.ParseCacheType(string(c.DefaultCacheType)); err != nil {
		return err
	}
	if c.ListingsExpiryTime < 0 {
		return store.InvalidArgument("listings_expiry_time must not be negative")
	}
	if c.MaxPaths < 0 {
		return store.InvalidArgument("max_paths must not be negative")
	}
	return nil
}

// Option customizes New.
type Option func(*FileSystem)

// WithCacheMetrics reports listing cache activity to m.
func WithCacheMetrics(m listing.Metrics) Option {
	return func(fs *FileSystem) { fs.cacheMetrics = m }
}

// FileSystem is the hierarchical view over one object store.
//
// Thread Safety:
// A FileSystem is safe for concurrent use. Files it opens are not.
type FileSystem struct {
	client  store.Client
	cfg     Config
	cache   *listing.Cache
	planner *batch.Planner

	cacheMetrics listing.Metrics

	mu       sync.RWMutex
	endpoint string
}

// New creates a FileSystem over client.
//
// The endpoint is resolved from cfg.Endpoint, then COS_ENDPOINT. Without
// either the FileSystem is still returned; store calls that need an
// endpoint fail later.
func New(client store.Client, cfg Config, opts ...Option) (*FileSystem, error) {
	if client == nil {
		return nil, store.InvalidArgument("store client is required")
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	fs := &FileSystem{client: client, cfg: cfg}
	for _, opt := range opts {
		opt(fs)
	}

	fs.cache = listing.New(listing.Config{
		Enabled:  cfg.UseListingsCache,
		TTL:      cfg.ListingsExpiryTime,
		MaxPaths: cfg.MaxPaths,
	}, fs.cacheMetrics)
	fs.planner = batch.NewPlanner(fs.cache)

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv(EndpointEnvVar)
	}
	if endpoint == "" {
		logger.Warn("No endpoint configured: pass one explicitly or set %s; store requests will fail until SetEndpoint is called", EndpointEnvVar)
	} else {
		fs.applyEndpoint(endpoint)
	}

	return fs, nil
}

// Endpoint returns the current endpoint ("" when unset).
func (fs *FileSystem) Endpoint() string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.endpoint
}

// SetEndpoint changes the endpoint used by subsequent store calls.
func (fs *FileSystem) SetEndpoint(endpoint string) error {
	if endpoint == "" {
		return store.InvalidArgument("endpoint must not be empty")
	}
	fs.applyEndpoint(endpoint)
	logger.Info("Endpoint set to %s", endpoint)
	return nil
}

func (fs *FileSystem) applyEndpoint(endpoint string) {
	fs.mu.Lock()
	fs.endpoint = endpoint
	fs.mu.Unlock()

	if setter, ok := fs.client.(store.EndpointSetter); ok {
		setter.SetEndpoint(endpoint)
	}
}

// Config returns the effective configuration.
func (fs *FileSystem) Config() Config {
	return fs.cfg
}

// Client returns the underlying store client.
func (fs *FileSystem) Client() store.Client {
	return fs.client
}

// InvalidateCache drops the cached listings of paths and their ancestors.
// Without arguments the whole cache is cleared.
func (fs *FileSystem) InvalidateCache(paths ...string) {
	if len(paths) == 0 {
		fs.cache.Clear()
		return
	}
	for _, p := range paths {
		fs.cache.Invalidate(cospath.StripProtocol(p))
	}
}

// CacheStats returns the listing cache counters.
func (fs *FileSystem) CacheStats() listing.Stats {
	return fs.cache.Stats()
}
