package auditlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/objectstream/ingestd/pkg/reader"
)

// Recorder adapts Store to the reader's batch auditing hook. One row is
// written per completed or aborted batch cycle; write failures are logged
// and never propagate into the cycle itself.
type Recorder struct {
	store *Store
}

// NewRecorder builds a Recorder over store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// RecordBatch persists one batch cycle's outcome.
func (r *Recorder) RecordBatch(ctx context.Context, bucketID, targetBucket string, outcome reader.BatchOutcome, batchErr error) {
	now := time.Now().UTC()
	run := BatchRun{
		BucketID:        bucketID,
		TargetBucket:    targetBucket,
		Phase:           outcome.Phase,
		LogOffsetBefore: outcome.LogOffsetBefore,
		RecordsRead:     outcome.NbLogRecordsRead,
		EntriesRead:     outcome.NbLogEntriesRead,
		EventsPublished: int64(outcome.EventsPublished),
		StartedAt:       outcome.StartedAt,
		FinishedAt:      &now,
	}
	if outcome.Advanced {
		after := outcome.NextLogOffset
		run.LogOffsetAfter = &after
	}
	if batchErr != nil {
		msg := batchErr.Error()
		run.ErrorMessage = &msg
	}
	if err := r.store.Record(ctx, run); err != nil {
		slog.Error("auditlog: record batch failed", "bucket", bucketID, "error", err)
	}
}
