// Package bus abstracts the message bus producer: ordered batches of
// {key, value} pairs on a configured topic, at-least-once delivery with
// per-key ordering within a partition. The production implementation is
// backed by github.com/twmb/franz-go.
package bus

import "context"

// Record is one published {key, value} pair.
type Record struct {
	Topic string
	Key   string
	Value []byte
}

// Producer publishes batches all-or-nothing.
type Producer interface {
	// PublishBatch publishes every record or none; an error means none of
	// the batch's records are guaranteed delivered and the caller must not
	// advance progress.
	PublishBatch(ctx context.Context, records []Record) error

	Close()
}

// Admin answers the backlog tracker's questions: per-partition
// high-watermarks and a consumer group's committed offsets.
type Admin interface {
	HighWatermarks(ctx context.Context, topic string) (map[int32]int64, error)
	GroupOffsets(ctx context.Context, topic, group string) (map[int32]int64, error)
}
