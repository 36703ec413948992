package config

import "time"

// DefaultQueuePopulatorConfig returns the built-in queuePopulator defaults.
// User-supplied values in ingestd.yaml override these field by field via
// mergo (see loader.go). The literal defaults mirror the same constants
// pkg/reader and pkg/snapshot fall back to when wired without a config
// file (reader.DefaultMaxParallelReaders, snapshot.DefaultFanOut,
// event.DefaultTargetBucketPrefix), kept here as plain values to avoid a
// config → domain-package import cycle.
func DefaultQueuePopulatorConfig() *QueuePopulatorConfig {
	return &QueuePopulatorConfig{
		ZookeeperPath:         "/ingestd",
		BatchMaxRead:          10000,
		CronRule:              "*/5 * * * * *",
		MaxParallelReaders:    5,
		MetadataFanOut:        10,
		BatchPublishTimeout:   60 * time.Second,
		TargetBucketPrefix:    "zenkobucket",
		Topic:                 "ingestd-events",
		BacklogRoot:           "/backlog",
		BacklogConsumerGroups: []string{"mongo-materializer", "crr-replication"},
		BacklogReportInterval: 30 * time.Second,
	}
}
