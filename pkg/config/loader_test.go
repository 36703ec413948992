package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ingestd.yaml"), []byte(yaml), 0o600))
	return dir
}

const minimalYAML = `
queuePopulator:
  brokers: ["broker-1:9092"]
  zookeeperServers: ["zk-1:2181"]
sources:
  bucket1:
    bucket: bucket1
    host: source.example.com
    port: 8000
    auth:
      accessKey: AKIDEXAMPLE
      secretKey: verysecret
`

func TestInitializeMergesDefaults(t *testing.T) {
	dir := writeConfig(t, minimalYAML)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	// Fields absent from the YAML come from the built-in defaults.
	assert.Equal(t, "/ingestd", cfg.QueuePopulator.ZookeeperPath)
	assert.EqualValues(t, 10000, cfg.QueuePopulator.BatchMaxRead)
	assert.Equal(t, "zenkobucket", cfg.QueuePopulator.TargetBucketPrefix)
	assert.EqualValues(t, 5, cfg.QueuePopulator.MaxParallelReaders)
	assert.Equal(t, 30, cfg.Retention.BatchRunRetentionDays)

	src, err := cfg.GetSource("bucket1")
	require.NoError(t, err)
	// Name falls back to the map key when the YAML omits it.
	assert.Equal(t, "bucket1", src.Name)
	assert.Equal(t, 8000, src.Port)
}

func TestInitializeOverridesDefaults(t *testing.T) {
	dir := writeConfig(t, `
queuePopulator:
  zookeeperPath: /custom
  batchMaxRead: 500
  brokers: ["broker-1:9092"]
  zookeeperServers: ["zk-1:2181"]
sources:
  bucket1:
    bucket: bucket1
    host: source.example.com
    port: 8000
    auth:
      accessKey: AKIDEXAMPLE
      secretKey: verysecret
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "/custom", cfg.QueuePopulator.ZookeeperPath)
	assert.EqualValues(t, 500, cfg.QueuePopulator.BatchMaxRead)
}

func TestInitializeExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_SOURCE_HOST", "expanded.example.com")
	dir := writeConfig(t, `
queuePopulator:
  brokers: ["broker-1:9092"]
  zookeeperServers: ["zk-1:2181"]
sources:
  bucket1:
    bucket: bucket1
    host: ${TEST_SOURCE_HOST}
    port: 8000
    auth:
      accessKey: AKIDEXAMPLE
      secretKey: verysecret
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	src, err := cfg.GetSource("bucket1")
	require.NoError(t, err)
	assert.Equal(t, "expanded.example.com", src.Host)
}

func TestInitializeMissingFileFails(t *testing.T) {
	_, err := Initialize(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	dir := writeConfig(t, `
queuePopulator:
  brokers: ["broker-1:9092"]
  zookeeperServers: ["zk-1:2181"]
sources:
  bucket1:
    bucket: bucket1
    host: source.example.com
    port: 8000
    auth:
      accessKey: AKIDEXAMPLE
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestValidateRejectsUnresolvedSecret(t *testing.T) {
	cfg := &Config{
		QueuePopulator: DefaultQueuePopulatorConfig(),
		Retention:      DefaultRetentionConfig(),
		Sources: map[string]SourceConfig{
			"bucket1": {
				Name:   "bucket1",
				Bucket: "bucket1",
				Host:   "source.example.com",
				Port:   8000,
				Auth:   SourceAuth{AccessKey: "AKIDEXAMPLE", SecretKey: "${NEVER_DECRYPTED}"},
			},
		},
	}

	err := validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSecretUnresolved)
}

func TestGetSourceUnknownBucket(t *testing.T) {
	cfg := &Config{Sources: map[string]SourceConfig{}}
	_, err := cfg.GetSource("nope")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestEditableFingerprintChangesWithCredentials(t *testing.T) {
	src := SourceConfig{
		Host: "source.example.com",
		Port: 8000,
		Auth: SourceAuth{AccessKey: "AKIDEXAMPLE", SecretKey: "secret-1"},
	}
	fp := src.EditableFingerprint()

	rotated := src
	rotated.Auth.SecretKey = "secret-2"
	assert.NotEqual(t, fp, rotated.EditableFingerprint())

	// LocationConstraint is not an editable field; changing it must not
	// force a client rebuild.
	relocated := src
	relocated.LocationConstraint = "us-west-1"
	assert.Equal(t, fp, relocated.EditableFingerprint())
}
