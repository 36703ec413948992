package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ingestdYAMLConfig mirrors the complete ingestd.yaml file structure.
type ingestdYAMLConfig struct {
	QueuePopulator *QueuePopulatorConfig   `yaml:"queuePopulator"`
	Retention      *RetentionConfig        `yaml:"retention"`
	Sources        map[string]SourceConfig `yaml:"sources"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load ingestd.yaml from configDir
//  2. Expand environment variables
//  3. Merge built-in queuePopulator defaults with user overrides
//  4. Validate all configuration
//  5. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "sources", stats.Sources)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	raw, err := loader.loadIngestdYAML()
	if err != nil {
		return nil, NewLoadError("ingestd.yaml", err)
	}

	queuePopulator := DefaultQueuePopulatorConfig()
	if raw.QueuePopulator != nil {
		if err := mergo.Merge(queuePopulator, raw.QueuePopulator, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queuePopulator config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if raw.Retention != nil {
		if err := mergo.Merge(retention, raw.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	return &Config{
		configDir:      configDir,
		QueuePopulator: queuePopulator,
		Retention:      retention,
		Sources:        raw.Sources,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables (e.g. ${ZK_HOST}, ${BUS_BROKERS}).
	// secretKey is expected to already be plaintext by the time it reaches
	// this file (decryption happens upstream), so ${VAR} expansion here
	// only covers ordinary deployment-environment substitution.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadIngestdYAML() (*ingestdYAMLConfig, error) {
	var cfg ingestdYAMLConfig
	cfg.Sources = make(map[string]SourceConfig)

	if err := l.loadYAML("ingestd.yaml", &cfg); err != nil {
		return nil, err
	}

	// bucketId is both the map key and each source's Name; fill Name in
	// when the YAML author omitted the redundant field.
	for id, src := range cfg.Sources {
		if src.Name == "" {
			src.Name = id
			cfg.Sources[id] = src
		}
	}

	return &cfg, nil
}

// looksLikeUnresolvedEnvRef reports whether s still contains an
// unexpanded ${VAR}/$VAR reference, the signature of a secret that never
// made it through decryption/substitution.
func looksLikeUnresolvedEnvRef(s string) bool {
	return strings.Contains(s, "${") || strings.HasPrefix(s, "$")
}
