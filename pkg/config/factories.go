package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/internal/ratelimiter"
	"github.com/marmos91/cosfs/pkg/cosfile"
	"github.com/marmos91/cosfs/pkg/cosfs"
	"github.com/marmos91/cosfs/pkg/store"
	"github.com/marmos91/cosfs/pkg/store/memory"
	storeS3 "github.com/marmos91/cosfs/pkg/store/s3"
)

// S3StoreConfig is the decoded store.s3 section.
type S3StoreConfig struct {
	// Region used for request signing
	Region string `mapstructure:"region" validate:"required"`

	// Static credentials (empty = default AWS credential chain)
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`

	// Anonymous sends unsigned requests (public buckets)
	Anonymous bool `mapstructure:"anonymous"`

	// ForcePathStyle uses bucket-in-path addressing (MinIO, Localstack)
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// MaxAttempts bounds the SDK retryer (transient 5xx, timeouts)
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=0"`

	// RequestsPerSecond throttles outgoing requests (0 = unlimited)
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`

	// Burst is the rate limiter burst (0 = derived from the rate)
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// MemoryStoreConfig is the decoded store.memory section.
type MemoryStoreConfig struct {
	// Buckets created at startup
	Buckets []string `mapstructure:"buckets"`
}

// decodeS3Config decodes the store.s3 section, accepting string values
// coming from environment variables.
func decodeS3Config(options map[string]any) (*S3StoreConfig, error) {
	var cfg S3StoreConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode s3 store config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = DefaultS3Region
	}
	return &cfg, nil
}

// decodeMemoryConfig decodes the store.memory section.
func decodeMemoryConfig(options map[string]any) (*MemoryStoreConfig, error) {
	var cfg MemoryStoreConfig
	if err := mapstructure.Decode(options, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory store config: %w", err)
	}
	return &cfg, nil
}

// CreateStoreClient creates an object store client based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "s3": Uses pkg/store/s3 (COS, Amazon S3 or compatible storage)
//   - "memory": Uses pkg/store/memory (ephemeral, for tests and dry runs)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Store configuration
//   - metrics: Optional store metrics (nil = no metrics)
//
// Returns:
//   - store.Client: Initialized store client
//   - error: Configuration or initialization error
func CreateStoreClient(ctx context.Context, cfg *StoreConfig, metrics store.Metrics) (store.Client, error) {
	switch cfg.Type {
	case "s3":
		return createS3StoreClient(ctx, cfg, metrics)
	case "memory":
		return createMemoryStoreClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: s3, memory)", cfg.Type)
	}
}

// createMemoryStoreClient creates an in-memory store.
func createMemoryStoreClient(ctx context.Context, cfg *StoreConfig) (store.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	memCfg, err := decodeMemoryConfig(cfg.Memory)
	if err != nil {
		return nil, err
	}

	client := memory.New(memCfg.Buckets...)
	logger.Debug("Memory store initialized: buckets=%v", memCfg.Buckets)
	return client, nil
}

// createS3StoreClient creates an S3/COS-backed store client.
func createS3StoreClient(ctx context.Context, cfg *StoreConfig, metrics store.Metrics) (store.Client, error) {
	s3Cfg, err := decodeS3Config(cfg.S3)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(s3Cfg.Region),
	}

	switch {
	case s3Cfg.Anonymous:
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case s3Cfg.AccessKeyID != "" && s3Cfg.SecretAccessKey != "":
		credProvider := credentials.NewStaticCredentialsProvider(
			s3Cfg.AccessKeyID,
			s3Cfg.SecretAccessKey,
			s3Cfg.SessionToken,
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxAttempts := s3Cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultS3MaxAttempts
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxAttempts
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create SDK client
	// ========================================================================

	// The endpoint is not set here: the store client applies it per request
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = s3Cfg.ForcePathStyle
	})

	// ========================================================================
	// Step 3: Create store client
	// ========================================================================

	limiter := ratelimiter.New(s3Cfg.RequestsPerSecond, s3Cfg.Burst)
	client, err := storeS3.New(storeS3.Config{
		API:      api,
		Endpoint: cfg.Endpoint,
		Limiter:  limiter,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store client: %w", err)
	}

	logger.Debug("S3 store initialized: region=%s, path_style=%v, max_attempts=%d, rate_limit=%.1f/s",
		s3Cfg.Region, s3Cfg.ForcePathStyle, maxAttempts, limiter.Limit())

	return client, nil
}

// FileSystemOptions converts the filesystem section into cosfs.Config.
func FileSystemOptions(cfg *Config) cosfs.Config {
	fs := cfg.FileSystem
	return cosfs.Config{
		Endpoint:             cfg.Store.Endpoint,
		DefaultCacheType:     cosfile.CacheType(fs.DefaultCacheType),
		DefaultCacheOptions:  cosfile.CacheOptions{MaxBlocks: fs.MaxBlocks},
		DefaultBlockSize:     fs.DefaultBlockSize,
		UseListingsCache:     fs.UseListingsCache,
		ListingsExpiryTime:   fs.ListingsExpiryTime,
		MaxPaths:             fs.MaxPaths,
		StagingPrefix:        fs.StagingPrefix,
		MaxUploadConcurrency: fs.MaxUploadConcurrency,
	}
}

// CreateFileSystem creates the store client and the FileSystem over it.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: The complete cosfs configuration
//   - m: Metrics components (nil = no metrics)
func CreateFileSystem(ctx context.Context, cfg *Config, m *MetricsResult) (*cosfs.FileSystem, error) {
	var storeMetrics store.Metrics
	var opts []cosfs.Option
	if m != nil {
		storeMetrics = m.StoreMetrics
		if m.CacheMetrics != nil {
			opts = append(opts, cosfs.WithCacheMetrics(m.CacheMetrics))
		}
	}

	client, err := CreateStoreClient(ctx, &cfg.Store, storeMetrics)
	if err != nil {
		return nil, err
	}

	fs, err := cosfs.New(client, FileSystemOptions(cfg), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem: %w", err)
	}
	return fs, nil
}
