package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for the type-specific
// store sections that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	switch cfg.Store.Type {
	case "s3":
		s3Cfg, err := decodeS3Config(cfg.Store.S3)
		if err != nil {
			return err
		}
		if err := validate.Struct(s3Cfg); err != nil {
			return fmt.Errorf("store.s3: %w", formatValidationError(err))
		}
		if (s3Cfg.AccessKeyID == "") != (s3Cfg.SecretAccessKey == "") {
			return fmt.Errorf("store.s3: access_key_id and secret_access_key must be set together")
		}
		if s3Cfg.Anonymous && s3Cfg.AccessKeyID != "" {
			return fmt.Errorf("store.s3: anonymous cannot be combined with static credentials")
		}

	case "memory":
		memCfg, err := decodeMemoryConfig(cfg.Store.Memory)
		if err != nil {
			return err
		}
		seen := make(map[string]bool)
		for i, b := range memCfg.Buckets {
			if b == "" {
				return fmt.Errorf("store.memory.buckets[%d]: bucket name must not be empty", i)
			}
			if seen[b] {
				return fmt.Errorf("store.memory.buckets[%d]: duplicate bucket %q", i, b)
			}
			seen[b] = true
		}
	}

	if cfg.Metrics.Port > 0 && !cfg.Metrics.Enabled {
		return fmt.Errorf("metrics: port is set but metrics are disabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
