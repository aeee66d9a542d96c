package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "unknown store type",
			mutate:  func(c *Config) { c.Store.Type = "gcs" },
			wantErr: "Type",
		},
		{
			name:    "endpoint is not a url",
			mutate:  func(c *Config) { c.Store.Endpoint = "not a url" },
			wantErr: "Endpoint",
		},
		{
			name:    "unknown cache type",
			mutate:  func(c *Config) { c.FileSystem.DefaultCacheType = "mmap" },
			wantErr: "DefaultCacheType",
		},
		{
			name:    "negative expiry",
			mutate:  func(c *Config) { c.FileSystem.ListingsExpiryTime = -1 },
			wantErr: "ListingsExpiryTime",
		},
		{
			name:    "negative upload concurrency",
			mutate:  func(c *Config) { c.FileSystem.MaxUploadConcurrency = -1 },
			wantErr: "MaxUploadConcurrency",
		},
		{
			name:    "half credentials",
			mutate:  func(c *Config) { c.Store.S3["access_key_id"] = "AKID" },
			wantErr: "must be set together",
		},
		{
			name: "anonymous with credentials",
			mutate: func(c *Config) {
				c.Store.S3["access_key_id"] = "AKID"
				c.Store.S3["secret_access_key"] = "secret"
				c.Store.S3["anonymous"] = true
			},
			wantErr: "anonymous",
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.Store.S3["requests_per_second"] = -5 },
			wantErr: "RequestsPerSecond",
		},
		{
			name: "duplicate memory bucket",
			mutate: func(c *Config) {
				c.Store.Type = "memory"
				c.Store.Memory["buckets"] = []string{"a", "a"}
			},
			wantErr: "duplicate bucket",
		},
		{
			name:    "metrics port without metrics",
			mutate:  func(c *Config) { c.Metrics.Port = 9090 },
			wantErr: "metrics are disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_AcceptsValidVariants(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Store.Endpoint = "http://localhost:4566"
	cfg.Store.S3["access_key_id"] = "AKID"
	cfg.Store.S3["secret_access_key"] = "secret"
	cfg.Store.S3["requests_per_second"] = 50
	cfg.FileSystem.DefaultCacheType = "none"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9090

	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
}
