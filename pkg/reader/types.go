// Package reader implements the per-bucket ingestion state machine that
// drives one batch cycle at a time: snapshot or tail, through the
// extension filters, onto the bus, and checkpointed on the Coordinator.
package reader

import (
	"context"
	"errors"
	"time"

	"github.com/objectstream/ingestd/pkg/extension"
	"github.com/objectstream/ingestd/pkg/sourceclient"
)

// ErrBatchInProgress is returned by Tick when the previous batch has not
// yet cleared its in-progress flag; the scheduler should simply retry on
// its next tick.
var ErrBatchInProgress = errors.New("reader: batch already in progress")

// State is the reader's coarse lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
	Batch
	Refresh
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Batch:
		return "batch"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Auditor receives one notification per batch cycle, after it completes
// or aborts. Implementations log their own failures; a failing auditor
// must not fail the batch.
type Auditor interface {
	RecordBatch(ctx context.Context, bucketID, targetBucket string, outcome BatchOutcome, batchErr error)
}

// Config is one source bucket's static wiring: its identity, target
// naming, and batch sizing.
type Config struct {
	SourceBucket string
	TargetBucket string
	Topic        string
	MaxRead      int64
	// MetadataFanOut bounds concurrent snapshot metadata fetches; 0 means
	// the snapshot package's default.
	MetadataFanOut int64
	// PublishTimeout bounds the bus publish call of one batch; 0 means no
	// timeout beyond the caller's context.
	PublishTimeout time.Duration
	Source         sourceclient.Config
	Extensions     []extension.Filter
	Auditor        Auditor
}

// BatchOutcome summarizes one completed batch cycle for logging, metrics,
// and the audit trail.
type BatchOutcome struct {
	Phase            string
	EventsPublished  int
	NbLogRecordsRead int64
	NbLogEntriesRead int64
	LogOffsetBefore  int64
	NextLogOffset    int64
	Advanced         bool
	StartedAt        time.Time
}

// Health reports one bucket reader's liveness for the health surface.
type Health struct {
	Bucket      string
	State       string
	LastBatchAt int64
	LastError   string
}
