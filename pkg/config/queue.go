package config

import "time"

// QueuePopulatorConfig holds the ingestion pipeline's own tuning knobs,
// mirroring the `queuePopulator` section of ingestd.yaml.
type QueuePopulatorConfig struct {
	// ZookeeperPath is the Coordinator root under which every bucket's
	// progress is stored: <zookeeperPath>/<targetBucket>/....
	ZookeeperPath string `yaml:"zookeeperPath" validate:"required"`

	// BatchMaxRead bounds records read per tail batch.
	BatchMaxRead int64 `yaml:"batchMaxRead" validate:"required,min=1"`

	// CronRule drives the top-level scheduler tick, expressed as a
	// standard cron expression.
	CronRule string `yaml:"cronRule" validate:"required"`

	// MaxParallelReaders bounds bucket-level parallelism.
	MaxParallelReaders int64 `yaml:"maxParallelReaders,omitempty" validate:"omitempty,min=1"`

	// MetadataFanOut bounds per-bucket snapshot metadata fetch
	// concurrency.
	MetadataFanOut int64 `yaml:"metadataFanOut,omitempty" validate:"omitempty,min=1"`

	// TargetBucketPrefix is prepended to a source bucket's displayName to
	// form the published target bucket name, keeping many source tenants
	// from colliding in one target catalog.
	TargetBucketPrefix string `yaml:"targetBucketPrefix,omitempty"`

	// BatchPublishTimeout bounds one batch cycle's bus publish call. The
	// source log read itself carries no timeout.
	BatchPublishTimeout time.Duration `yaml:"batchPublishTimeout,omitempty"`

	// Topic is the message bus topic canonical events are published to.
	Topic string `yaml:"topic" validate:"required"`

	// Brokers lists the message bus's seed broker addresses.
	Brokers []string `yaml:"brokers" validate:"required,min=1"`

	// ZookeeperServers lists the Coordinator ensemble's addresses.
	ZookeeperServers []string `yaml:"zookeeperServers" validate:"required,min=1"`

	// BacklogRoot is the Coordinator root under which C8's backlog
	// bookkeeping is stored.
	BacklogRoot string `yaml:"backlogRoot,omitempty"`

	// BacklogConsumerGroups lists the downstream consumer group ids whose
	// lag against Topic is tracked, e.g. the catalog materializer and the
	// cross-region replication processor.
	BacklogConsumerGroups []string `yaml:"backlogConsumerGroups,omitempty"`

	// BacklogReportInterval controls how often consumer backlog state is
	// republished to the Coordinator and to the /metrics gauges.
	BacklogReportInterval time.Duration `yaml:"backlogReportInterval,omitempty"`
}
