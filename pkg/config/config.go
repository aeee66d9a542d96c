package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete cosfs configuration.
//
// This structure captures all configurable aspects of cosfs including:
//   - Logging configuration
//   - Object store selection and configuration (store-specific)
//   - Filesystem tunables (read caches, block size, listing cache)
//   - Metrics collection
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (COSFS_*, plus COS_ENDPOINT for the endpoint)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type, decoded by
// its factory function. The Config struct holds type-specific sections
// (store.s3, store.memory) and only the section matching the selected type
// is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Store specifies the object store type and type-specific configuration
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// FileSystem contains the hierarchical view tunables
	FileSystem FileSystemConfig `mapstructure:"filesystem" yaml:"filesystem"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StoreConfig specifies object store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: s3, memory
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=s3 memory"`

	// Endpoint is the store endpoint URL
	// Empty falls back to the COS_ENDPOINT environment variable
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`

	// S3 contains S3/COS-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`
}

// FileSystemConfig contains the tunables of the hierarchical view and of
// the files it opens.
type FileSystemConfig struct {
	// DefaultCacheType is the read cache of opened files
	// Valid values: none, readahead, blockcache
	DefaultCacheType string `mapstructure:"default_cache_type" yaml:"default_cache_type" validate:"required,oneof=none readahead blockcache"`

	// MaxBlocks bounds the blockcache of each open file
	MaxBlocks int `mapstructure:"max_blocks" yaml:"max_blocks" validate:"gte=1,lte=65535"`

	// DefaultBlockSize is the read block and upload part size in bytes
	DefaultBlockSize int64 `mapstructure:"default_block_size" yaml:"default_block_size" validate:"gte=1"`

	// UseListingsCache enables the directory listing cache
	UseListingsCache bool `mapstructure:"use_listings_cache" yaml:"use_listings_cache"`

	// ListingsExpiryTime is the listing cache TTL (0 = never expires)
	ListingsExpiryTime time.Duration `mapstructure:"listings_expiry_time" yaml:"listings_expiry_time" validate:"gte=0"`

	// MaxPaths bounds the number of cached listings (0 = unbounded)
	MaxPaths int `mapstructure:"max_paths" yaml:"max_paths" validate:"gte=0"`

	// StagingPrefix is the key prefix of writes opened without autocommit
	StagingPrefix string `mapstructure:"staging_prefix" yaml:"staging_prefix" validate:"required"`

	// MaxUploadConcurrency bounds concurrent part uploads per file
	MaxUploadConcurrency int `mapstructure:"max_upload_concurrency" yaml:"max_upload_concurrency" validate:"gte=1"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port serves /metrics while a command runs (0 = no HTTP server)
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COSFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use COSFS_ prefix and underscores
	// Example: COSFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("COSFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about
	registerDefaults(v)
	_ = v.BindEnv("store.endpoint", "COSFS_STORE_ENDPOINT", "COS_ENDPOINT")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/cosfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// registerDefaults seeds viper with the scalar defaults.
func registerDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("store.type", d.Store.Type)

	v.SetDefault("filesystem.default_cache_type", d.FileSystem.DefaultCacheType)
	v.SetDefault("filesystem.max_blocks", d.FileSystem.MaxBlocks)
	v.SetDefault("filesystem.default_block_size", d.FileSystem.DefaultBlockSize)
	v.SetDefault("filesystem.use_listings_cache", d.FileSystem.UseListingsCache)
	v.SetDefault("filesystem.listings_expiry_time", d.FileSystem.ListingsExpiryTime)
	v.SetDefault("filesystem.max_paths", d.FileSystem.MaxPaths)
	v.SetDefault("filesystem.staging_prefix", d.FileSystem.StagingPrefix)
	v.SetDefault("filesystem.max_upload_concurrency", d.FileSystem.MaxUploadConcurrency)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is not an error either
		if configPath != "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cosfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "cosfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

