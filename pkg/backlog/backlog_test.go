package backlog

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectstream/ingestd/pkg/bus"
	"github.com/objectstream/ingestd/pkg/coordinator"
)

func TestCheckConsumerLag(t *testing.T) {
	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()
	b.Watermarks["T"] = map[int32]int64{0: 100, 1: 200}
	b.GroupOffsetsBy["T/G"] = map[int32]int64{0: 90, 1: 195}

	tracker := NewTracker(fake, b, "/backlog")
	require.NoError(t, tracker.PublishConsumerBacklog(ctx, "T", "G"))

	partition, lag, ok, err := tracker.CheckConsumerLag(ctx, "T", "G", 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, partition)
	assert.EqualValues(t, 10, lag)
}

func TestCheckConsumerProgress(t *testing.T) {
	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()
	b.Watermarks["T"] = map[int32]int64{0: 100, 1: 200}
	b.GroupOffsetsBy["T/G"] = map[int32]int64{0: 100, 1: 199}

	tracker := NewTracker(fake, b, "/backlog")
	require.NoError(t, tracker.PublishConsumerBacklog(ctx, "T", "G"))
	require.NoError(t, tracker.SnapshotTopicOffsets(ctx, "T", "S"))

	partition, ok, err := tracker.CheckConsumerProgress(ctx, "T", "G", "S")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, partition)
}

func TestCheckConsumerLagEmptyGroupUsesSlowestGroup(t *testing.T) {
	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()
	b.Watermarks["T"] = map[int32]int64{0: 100}
	b.GroupOffsetsBy["T/fast"] = map[int32]int64{0: 100}
	b.GroupOffsetsBy["T/slow"] = map[int32]int64{0: 80}

	tracker := NewTracker(fake, b, "/backlog")
	require.NoError(t, tracker.PublishConsumerBacklog(ctx, "T", "fast"))
	require.NoError(t, tracker.PublishConsumerBacklog(ctx, "T", "slow"))

	// The fast group alone is within bounds.
	_, _, ok, err := tracker.CheckConsumerLag(ctx, "T", "fast", 5)
	require.NoError(t, err)
	assert.False(t, ok)

	// Group-agnostic: the slow group's 20-message lag trips the check.
	partition, lag, ok, err := tracker.CheckConsumerLag(ctx, "T", "", 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, partition)
	assert.EqualValues(t, 20, lag)
}

func TestCheckConsumerProgressEmptyGroupRequiresEveryGroup(t *testing.T) {
	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()
	b.Watermarks["T"] = map[int32]int64{0: 100}
	b.GroupOffsetsBy["T/fast"] = map[int32]int64{0: 100}
	b.GroupOffsetsBy["T/slow"] = map[int32]int64{0: 80}

	tracker := NewTracker(fake, b, "/backlog")
	require.NoError(t, tracker.PublishConsumerBacklog(ctx, "T", "fast"))
	require.NoError(t, tracker.PublishConsumerBacklog(ctx, "T", "slow"))
	require.NoError(t, tracker.SnapshotTopicOffsets(ctx, "T", "S"))

	_, ok, err := tracker.CheckConsumerProgress(ctx, "T", "fast", "S")
	require.NoError(t, err)
	assert.False(t, ok)

	partition, ok, err := tracker.CheckConsumerProgress(ctx, "T", "", "S")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, partition)
}

func TestCheckConsumerProgressMissingSnapshotIsProgressed(t *testing.T) {
	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()
	b.Watermarks["T"] = map[int32]int64{0: 100}
	b.GroupOffsetsBy["T/G"] = map[int32]int64{0: 0}

	tracker := NewTracker(fake, b, "/backlog")
	require.NoError(t, tracker.PublishConsumerBacklog(ctx, "T", "G"))

	_, ok, err := tracker.CheckConsumerProgress(ctx, "T", "G", "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReporterUpdatesGauges(t *testing.T) {
	ctx := context.Background()
	fake := coordinator.NewFake()
	b := bus.NewFake()
	b.Watermarks["T"] = map[int32]int64{0: 100, 1: 200}
	b.GroupOffsetsBy["T/G"] = map[int32]int64{0: 90, 1: 195}

	tracker := NewTracker(fake, b, "/backlog")
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	reporter := NewReporter(tracker, metrics, "T", []string{"G"}, 0)

	reporter.reportAll(ctx)

	assert.Equal(t, float64(100), testutil.ToFloat64(metrics.TopicOffset.WithLabelValues("T", "0")))
	assert.Equal(t, float64(90), testutil.ToFloat64(metrics.ConsumerOffset.WithLabelValues("T", "0", "G")))
	assert.Equal(t, float64(10), testutil.ToFloat64(metrics.ConsumerLag.WithLabelValues("T", "0", "G")))
}
