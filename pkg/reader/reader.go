package reader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/objectstream/ingestd/pkg/bus"
	"github.com/objectstream/ingestd/pkg/coordinator"
	"github.com/objectstream/ingestd/pkg/event"
	"github.com/objectstream/ingestd/pkg/extension"
	"github.com/objectstream/ingestd/pkg/progress"
	"github.com/objectstream/ingestd/pkg/snapshot"
	"github.com/objectstream/ingestd/pkg/sourceclient"
	"github.com/objectstream/ingestd/pkg/tail"
)

// BucketReader is one configured source bucket's state machine.
type BucketReader struct {
	cfg Config

	coord        coordinator.Coordinator
	progressRoot string

	client    *sourceclient.Client
	snapshot  *snapshot.Producer
	tail      *tail.Producer
	progress  *progress.Store
	publisher bus.Producer

	partitionID string
	state       atomic.Int32
	inProgress  atomic.Bool
	lastErr     atomic.Value // always holds a string; "" means no error
}

// New builds a reader not yet set up.
func New(cfg Config, coord coordinator.Coordinator, progressRoot string, publisher bus.Producer) *BucketReader {
	client := sourceclient.NewClient(cfg.Source)
	r := &BucketReader{
		cfg:          cfg,
		coord:        coord,
		progressRoot: progressRoot,
		client:       client,
		snapshot:     snapshot.NewProducer(client, cfg.TargetBucket, cfg.MetadataFanOut),
		tail:         tail.NewProducer(client),
		publisher:    publisher,
	}
	r.state.Store(int32(Uninitialized))
	return r
}

// Setup resolves the source bucket's partition id, derives its Coordinator
// paths, and transitions to Ready.
func (r *BucketReader) Setup(ctx context.Context) error {
	partitionID, err := r.client.LookupPartition(ctx, r.cfg.SourceBucket)
	if err != nil {
		return fmt.Errorf("reader: setup %s: %w", r.cfg.SourceBucket, err)
	}
	r.partitionID = partitionID
	r.progress = progress.NewStore(r.coord, r.progressRoot, r.cfg.TargetBucket, partitionID)
	if err := r.progress.EnsurePaths(ctx); err != nil {
		return fmt.Errorf("reader: setup %s: %w", r.cfg.SourceBucket, err)
	}
	r.state.Store(int32(Ready))
	return nil
}

// Refresh rebuilds the Source Client with new credentials, preserving
// progress. It claims the in-progress flag so the client is never swapped
// out from under a running batch.
func (r *BucketReader) Refresh(cfg sourceclient.Config) {
	for !r.inProgress.CompareAndSwap(false, true) {
		time.Sleep(10 * time.Millisecond)
	}
	defer r.inProgress.Store(false)

	r.state.Store(int32(Refresh))
	r.client.Close()
	r.client = sourceclient.NewClient(cfg)
	r.cfg.Source = cfg
	r.snapshot = snapshot.NewProducer(r.client, r.cfg.TargetBucket, r.cfg.MetadataFanOut)
	r.tail = tail.NewProducer(r.client)
	r.state.Store(int32(Ready))
}

// State returns the reader's current coarse state.
func (r *BucketReader) State() State {
	return State(r.state.Load())
}

// Health reports this reader's liveness.
func (r *BucketReader) Health() Health {
	h := Health{Bucket: r.cfg.SourceBucket, State: r.State().String()}
	if msg, ok := r.lastErr.Load().(string); ok {
		h.LastError = msg
	}
	return h
}

// Tick runs one batch cycle if the reader is idle. If a previous batch is
// still in progress, it returns ErrBatchInProgress immediately without
// blocking; the scheduler is expected to simply skip this tick.
func (r *BucketReader) Tick(ctx context.Context) (BatchOutcome, error) {
	if !r.inProgress.CompareAndSwap(false, true) {
		return BatchOutcome{}, ErrBatchInProgress
	}
	defer r.inProgress.Store(false)

	r.state.Store(int32(Batch))
	defer r.state.Store(int32(Ready))

	start := time.Now()
	outcome, err := r.runBatch(ctx)
	outcome.StartedAt = start
	if r.cfg.Auditor != nil {
		r.cfg.Auditor.RecordBatch(ctx, r.cfg.SourceBucket, r.cfg.TargetBucket, outcome, err)
	}
	if err != nil {
		r.lastErr.Store(err.Error())
		slog.Error("batch aborted", "method", "Tick", "bucket", r.cfg.SourceBucket, "err", err)
		return outcome, err
	}
	r.lastErr.Store("")
	return outcome, nil
}

func (r *BucketReader) runBatch(ctx context.Context) (BatchOutcome, error) {
	init, err := r.progress.ReadInit(ctx)
	if err != nil {
		return BatchOutcome{}, fmt.Errorf("read init: %w", err)
	}

	handle := extension.NewBatchHandle()
	extension.SetBatch(r.cfg.Extensions, handle)
	defer extension.UnsetBatch(r.cfg.Extensions)

	if init.IsStatusComplete {
		return r.runTailBatch(ctx, handle)
	}
	return r.runSnapshotBatch(ctx, handle, init)
}

func (r *BucketReader) runSnapshotBatch(ctx context.Context, handle *extension.BatchHandle, init progress.InitState) (BatchOutcome, error) {
	result, err := r.snapshot.Produce(ctx, r.cfg.SourceBucket, init)
	if err != nil {
		return BatchOutcome{}, fmt.Errorf("snapshot produce: %w", err)
	}

	var nbLogRecordsRead, nbLogEntriesRead int64
	for _, evt := range result.Events {
		nbLogEntriesRead++
		if strings.Contains(evt.Key, event.VIDSep) {
			nbLogRecordsRead++
		}
		stageEvent(r.cfg.Extensions, handle, r.cfg.TargetBucket, evt)
	}

	outcome := BatchOutcome{Phase: "snapshot", NbLogRecordsRead: nbLogRecordsRead, NbLogEntriesRead: nbLogEntriesRead}

	events := handle.Events()
	if len(events) > 0 {
		if err := r.publish(ctx, events); err != nil {
			return outcome, fmt.Errorf("publish: %w", err)
		}
		outcome.EventsPublished = len(events)
	}

	if err := r.progress.WriteInit(ctx, &result.Init); err != nil {
		return outcome, fmt.Errorf("checkpoint init: %w", err)
	}
	// logOffset must land on cseq once the snapshot phase completes even
	// when zero events were staged (empty bucket, or every metadata fetch
	// skipped as missing); otherwise the next batch tails from the default
	// offset and replays the bucket's entire historical log.
	if result.Init.Cseq != nil {
		if err := r.progress.WriteLogOffset(ctx, *result.Init.Cseq); err != nil {
			return outcome, fmt.Errorf("checkpoint log offset: %w", err)
		}
		outcome.NextLogOffset = *result.Init.Cseq
		outcome.Advanced = true
	}
	return outcome, nil
}

func (r *BucketReader) runTailBatch(ctx context.Context, handle *extension.BatchHandle) (BatchOutcome, error) {
	logOffset, err := r.progress.ReadLogOffset(ctx)
	if err != nil {
		return BatchOutcome{}, fmt.Errorf("read log offset: %w", err)
	}

	stream, err := r.tail.Produce(ctx, r.partitionID, logOffset, r.cfg.MaxRead)
	if err != nil {
		return BatchOutcome{}, fmt.Errorf("tail produce: %w", err)
	}
	defer stream.Close()

	outcome := BatchOutcome{Phase: "tail", LogOffsetBefore: logOffset}

	info := stream.Info()
	if info.Start == nil {
		// 404/416: no records available. Batch completes without advancing.
		return outcome, nil
	}

	// nbLogRecordsRead counts every record consumed from the stream
	// (matched or not): it is the raft log's own position counter, so the
	// next read must resume past every record this batch saw, not just the
	// ones that produced events.
	var nbLogRecordsRead, nbLogEntriesRead int64
	for {
		rec, ok, err := stream.Next()
		if err != nil {
			return outcome, fmt.Errorf("stream read: %w", err)
		}
		if !ok {
			break
		}
		nbLogRecordsRead++
		if !rec.Matches(r.cfg.SourceBucket) {
			continue
		}
		for _, entry := range rec.Entries {
			if entry.Key == "" && entry.Type == "" {
				continue
			}
			nbLogEntriesRead++
			key := rec.RewriteKey(entry.Key, r.cfg.TargetBucket)
			bucket := rec.EventBucket(r.cfg.TargetBucket)

			typ := event.Type(entry.EffectiveType())
			evt := event.Canonical{Type: typ, Bucket: bucket, Key: key, Value: entry.Value}
			stageEvent(r.cfg.Extensions, handle, bucket, evt)
		}
	}
	outcome.NbLogRecordsRead = nbLogRecordsRead
	outcome.NbLogEntriesRead = nbLogEntriesRead

	events := handle.Events()
	if len(events) > 0 {
		if err := r.publish(ctx, events); err != nil {
			return outcome, fmt.Errorf("publish: %w", err)
		}
		outcome.EventsPublished = len(events)
	}

	// nextLogOffset must advance past every record this batch consumed even
	// when none of them produced an event for this bucket (a shared raft
	// partition window may carry only sibling-bucket records); otherwise
	// this reader re-reads the identical stale window on every tick.
	nextLogOffset := *info.Start + nbLogRecordsRead
	if nextLogOffset > logOffset {
		if err := r.progress.WriteLogOffset(ctx, nextLogOffset); err != nil {
			return outcome, fmt.Errorf("checkpoint log offset: %w", err)
		}
		outcome.NextLogOffset = nextLogOffset
		outcome.Advanced = true
	}
	return outcome, nil
}

func (r *BucketReader) publish(ctx context.Context, events []event.Canonical) error {
	if r.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.PublishTimeout)
		defer cancel()
	}
	records := make([]bus.Record, len(events))
	for i, evt := range events {
		records[i] = bus.Record{Topic: r.cfg.Topic, Key: evt.Key, Value: []byte(evt.Value)}
	}
	return r.publisher.PublishBatch(ctx, records)
}

func stageEvent(filters []extension.Filter, handle *extension.BatchHandle, targetBucket string, evt event.Canonical) {
	handle.Stage(targetBucket, evt)
	entry := extension.Entry{Type: string(evt.Type), Bucket: evt.Bucket, Key: evt.Key, Value: evt.Value}
	extension.Chain(filters, targetBucket, entry)
}
