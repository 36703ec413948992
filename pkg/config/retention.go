package config

import "time"

// RetentionConfig controls how long pkg/auditlog keeps finished batch-run
// rows before pkg/cleanup prunes them.
type RetentionConfig struct {
	// BatchRunRetentionDays is how many days to keep finished batch-run
	// rows before deletion.
	BatchRunRetentionDays int `yaml:"batchRunRetentionDays,omitempty" validate:"omitempty,min=1"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanupInterval,omitempty"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		BatchRunRetentionDays: 30,
		CleanupInterval:       12 * time.Hour,
	}
}
