package config

import (
	"fmt"
)

// Validator validates configuration comprehensively with clear error
// messages (fail-fast: stops at the first error encountered).
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation: queuePopulator, then each
// configured source bucket.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueuePopulator(); err != nil {
		return fmt.Errorf("queuePopulator validation failed: %w", err)
	}

	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}

	if len(v.cfg.Sources) == 0 {
		return fmt.Errorf("%w: at least one source bucket must be configured", ErrMissingRequiredField)
	}

	for id, src := range v.cfg.Sources {
		if err := v.validateSource(id, src); err != nil {
			return fmt.Errorf("source '%s' validation failed: %w", id, err)
		}
	}

	return nil
}

func (v *Validator) validateQueuePopulator() error {
	q := v.cfg.QueuePopulator
	if q == nil {
		return fmt.Errorf("queuePopulator configuration is nil")
	}

	if q.ZookeeperPath == "" {
		return NewValidationError("queuePopulator", "", "zookeeperPath", ErrMissingRequiredField)
	}
	if q.BatchMaxRead < 1 {
		return NewValidationError("queuePopulator", "", "batchMaxRead",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, q.BatchMaxRead))
	}
	if q.CronRule == "" {
		return NewValidationError("queuePopulator", "", "cronRule", ErrMissingRequiredField)
	}
	if q.MaxParallelReaders < 1 {
		return NewValidationError("queuePopulator", "", "maxParallelReaders",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, q.MaxParallelReaders))
	}
	if q.MetadataFanOut < 1 {
		return NewValidationError("queuePopulator", "", "metadataFanOut",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, q.MetadataFanOut))
	}
	if q.Topic == "" {
		return NewValidationError("queuePopulator", "", "topic", ErrMissingRequiredField)
	}
	if len(q.Brokers) == 0 {
		return NewValidationError("queuePopulator", "", "brokers", ErrMissingRequiredField)
	}
	if len(q.ZookeeperServers) == 0 {
		return NewValidationError("queuePopulator", "", "zookeeperServers", ErrMissingRequiredField)
	}

	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("retention configuration is nil")
	}
	if r.BatchRunRetentionDays < 1 {
		return NewValidationError("retention", "", "batchRunRetentionDays",
			fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, r.BatchRunRetentionDays))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "", "cleanupInterval",
			fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateSource(id string, src SourceConfig) error {
	if src.Bucket == "" {
		return NewValidationError("source", id, "bucket", ErrMissingRequiredField)
	}
	if src.Host == "" {
		return NewValidationError("source", id, "host", ErrMissingRequiredField)
	}
	if src.Port < 1 || src.Port > 65535 {
		return NewValidationError("source", id, "port",
			fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidValue, src.Port))
	}
	if src.Auth.AccessKey == "" {
		return NewValidationError("source", id, "auth.accessKey", ErrMissingRequiredField)
	}
	if src.Auth.SecretKey == "" {
		return NewValidationError("source", id, "auth.secretKey", ErrMissingRequiredField)
	}
	// Decryption runs upstream of this package, so an unresolved-looking
	// reference here means it never ran; the reader must refuse to start
	// rather than sign requests with a ciphertext key.
	if looksLikeUnresolvedEnvRef(src.Auth.SecretKey) {
		return NewValidationError("source", id, "auth.secretKey", ErrSecretUnresolved)
	}

	return nil
}
