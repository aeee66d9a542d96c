package config

import (
	"strings"

	"github.com/marmos91/cosfs/pkg/cosfile"
)

// Default values for the s3 store section.
const (
	DefaultS3Region      = "us-east-1"
	DefaultS3MaxAttempts = 10
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; their defaults are seeded into viper by Load
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyFileSystemDefaults(&cfg.FileSystem)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyStoreDefaults sets object store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "s3"
	}

	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = DefaultS3Region
	}
	if _, ok := cfg.S3["max_attempts"]; !ok {
		cfg.S3["max_attempts"] = DefaultS3MaxAttempts
	}
	if _, ok := cfg.Memory["buckets"]; !ok {
		cfg.Memory["buckets"] = []string{}
	}
}

// applyFileSystemDefaults sets filesystem defaults.
func applyFileSystemDefaults(cfg *FileSystemConfig) {
	if cfg.DefaultCacheType == "" {
		cfg.DefaultCacheType = string(cosfile.CacheReadahead)
	}
	if cfg.MaxBlocks == 0 {
		cfg.MaxBlocks = cosfile.DefaultMaxBlocks
	}
	if cfg.DefaultBlockSize == 0 {
		cfg.DefaultBlockSize = cosfile.DefaultBlockSize
	}
	if cfg.StagingPrefix == "" {
		cfg.StagingPrefix = cosfile.DefaultStagingPrefix
	}
	if cfg.MaxUploadConcurrency == 0 {
		cfg.MaxUploadConcurrency = cosfile.DefaultMaxUploadConcurrency
	}
	// ListingsExpiryTime 0 never expires, MaxPaths 0 is unbounded
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		FileSystem: FileSystemConfig{
			UseListingsCache: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
