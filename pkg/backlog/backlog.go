// Package backlog maintains published-vs-consumed offsets per topic and
// partition on the Coordinator, and answers lag and progress queries. It
// runs independently alongside whatever consumes the bus, outside the
// per-bucket reader's batch cycle.
package backlog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/objectstream/ingestd/pkg/bus"
	"github.com/objectstream/ingestd/pkg/coordinator"
)

// Tracker persists and queries offset bookkeeping for one message bus.
type Tracker struct {
	coord coordinator.Coordinator
	admin bus.Admin
	root  string
}

// NewTracker builds a Tracker rooted at root (e.g. "/backlog").
func NewTracker(coord coordinator.Coordinator, admin bus.Admin, root string) *Tracker {
	return &Tracker{coord: coord, admin: admin, root: root}
}

func (t *Tracker) topicOffsetPath(topic string, partition int32) string {
	return fmt.Sprintf("%s/%s/%d", t.root, topic, partition)
}

func (t *Tracker) consumerOffsetPath(topic string, partition int32, groupID string) string {
	return fmt.Sprintf("%s/%s/consumers/%d/%s", t.root, topic, partition, groupID)
}

func (t *Tracker) snapshotPath(topic string, partition int32, name string) string {
	return fmt.Sprintf("%s/%s/snapshots/%d/%s", t.root, topic, partition, name)
}

func (t *Tracker) writeOffset(ctx context.Context, path string, offset int64) error {
	// Offset nodes live several levels deep; ancestors must exist before
	// the leaf create succeeds.
	if idx := strings.LastIndex(path, "/"); idx > 0 {
		if err := t.coord.MkdirP(ctx, path[:idx]); err != nil {
			return err
		}
	}
	if err := t.coord.Create(ctx, path, []byte(strconv.FormatInt(offset, 10))); err != nil {
		return err
	}
	_, version, err := t.coord.Get(ctx, path)
	if err != nil {
		return err
	}
	return t.coord.CAS(ctx, path, []byte(strconv.FormatInt(offset, 10)), version)
}

func (t *Tracker) readOffset(ctx context.Context, path string) (int64, bool, error) {
	data, _, err := t.coord.Get(ctx, path)
	if errors.Is(err, coordinator.ErrNoNode) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("backlog: parse offset at %s: %w", path, err)
	}
	return n, true, nil
}

// PublishConsumerBacklog records, for each partition groupID is assigned on
// topic, its current committed offset alongside the bus high-watermark.
// The topic offset is written first so a reader never observes a consumer
// offset newer than its topic offset.
func (t *Tracker) PublishConsumerBacklog(ctx context.Context, topic, groupID string) error {
	watermarks, err := t.admin.HighWatermarks(ctx, topic)
	if err != nil {
		return fmt.Errorf("backlog: high watermarks: %w", err)
	}
	offsets, err := t.admin.GroupOffsets(ctx, topic, groupID)
	if err != nil {
		return fmt.Errorf("backlog: group offsets: %w", err)
	}

	for partition, topicOffset := range watermarks {
		if err := t.writeOffset(ctx, t.topicOffsetPath(topic, partition), topicOffset); err != nil {
			return fmt.Errorf("backlog: write topic offset: %w", err)
		}
		consumerOffset, ok := offsets[partition]
		if !ok {
			continue
		}
		if err := t.writeOffset(ctx, t.consumerOffsetPath(topic, partition, groupID), consumerOffset); err != nil {
			return fmt.Errorf("backlog: write consumer offset: %w", err)
		}
	}
	return nil
}

// SnapshotTopicOffsets records the bus high-watermarks for every partition
// of topic under a named snapshot.
func (t *Tracker) SnapshotTopicOffsets(ctx context.Context, topic, name string) error {
	watermarks, err := t.admin.HighWatermarks(ctx, topic)
	if err != nil {
		return fmt.Errorf("backlog: high watermarks: %w", err)
	}
	for partition, offset := range watermarks {
		if err := t.writeOffset(ctx, t.snapshotPath(topic, partition, name), offset); err != nil {
			return fmt.Errorf("backlog: write snapshot offset: %w", err)
		}
	}
	return nil
}

// partitionIDs lists the numeric partition nodes recorded for topic, in
// ascending order. A topic never written about resolves to an empty list.
func (t *Tracker) partitionIDs(ctx context.Context, topic string) ([]int32, error) {
	children, err := t.coord.Children(ctx, fmt.Sprintf("%s/%s", t.root, topic))
	if errors.Is(err, coordinator.ErrNoNode) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backlog: list partitions: %w", err)
	}

	var ids []int32
	for _, p := range children {
		if p == "consumers" || p == "snapshots" {
			continue
		}
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			continue
		}
		ids = append(ids, int32(n))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// slowestConsumerOffset returns the committed offset the lag/progress
// checks should measure for partition: groupID's own offset when set, or
// the minimum across every group recorded for the partition when groupID
// is empty (the group-agnostic form of the checks, where the slowest
// consumer governs). A group that never committed counts as offset 0.
func (t *Tracker) slowestConsumerOffset(ctx context.Context, topic string, partition int32, groupID string) (int64, error) {
	if groupID != "" {
		off, _, err := t.readOffset(ctx, t.consumerOffsetPath(topic, partition, groupID))
		return off, err
	}

	groups, err := t.coord.Children(ctx, fmt.Sprintf("%s/%s/consumers/%d", t.root, topic, partition))
	if errors.Is(err, coordinator.ErrNoNode) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("backlog: list consumer groups: %w", err)
	}

	slowest := int64(0)
	for i, g := range groups {
		off, _, getErr := t.readOffset(ctx, t.consumerOffsetPath(topic, partition, g))
		if getErr != nil {
			return 0, getErr
		}
		if i == 0 || off < slowest {
			slowest = off
		}
	}
	return slowest, nil
}

// CheckConsumerLag returns the first partition (in ascending order) whose
// lag = max(0, topicOffset - consumerOffset) exceeds maxLag, and ok=true.
// ok=false means every partition is within maxLag. An empty groupID
// checks every group recorded for each partition, slowest first.
func (t *Tracker) CheckConsumerLag(ctx context.Context, topic, groupID string, maxLag int64) (partition int32, lag int64, ok bool, err error) {
	ids, err := t.partitionIDs(ctx, topic)
	if err != nil {
		return 0, 0, false, err
	}

	for _, partition := range ids {
		topicOffset, _, getErr := t.readOffset(ctx, t.topicOffsetPath(topic, partition))
		if getErr != nil {
			return 0, 0, false, getErr
		}
		consumerOffset, getErr := t.slowestConsumerOffset(ctx, topic, partition, groupID)
		if getErr != nil {
			return 0, 0, false, getErr
		}
		partitionLag := topicOffset - consumerOffset
		if partitionLag < 0 {
			partitionLag = 0
		}
		if partitionLag > maxLag {
			return partition, partitionLag, true, nil
		}
	}
	return 0, 0, false, nil
}

// CheckConsumerProgress is CheckConsumerLag with a snapshot as the target
// offset and maxLag fixed at 0. A missing snapshot node counts as
// progressed: no messages were ever produced against it. An empty groupID
// requires every recorded group to have reached the snapshot.
func (t *Tracker) CheckConsumerProgress(ctx context.Context, topic, groupID, snapshotName string) (partition int32, ok bool, err error) {
	ids, err := t.partitionIDs(ctx, topic)
	if err != nil {
		return 0, false, err
	}

	for _, partition := range ids {
		targetOffset, exists, getErr := t.readOffset(ctx, t.snapshotPath(topic, partition, snapshotName))
		if getErr != nil {
			return 0, false, getErr
		}
		if !exists {
			continue
		}
		consumerOffset, getErr := t.slowestConsumerOffset(ctx, topic, partition, groupID)
		if getErr != nil {
			return 0, false, getErr
		}
		if consumerOffset < targetOffset {
			return partition, true, nil
		}
	}
	return 0, false, nil
}
