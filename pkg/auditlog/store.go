// Package auditlog records one row per completed (or failed) batch cycle,
// snapshot or tail, so operators can inspect ingestion history and
// pkg/cleanup can prune it once it ages out.
package auditlog

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/objectstream/ingestd/pkg/database"
)

//go:embed migrations
var migrationsFS embed.FS

// BatchRun is one recorded batch cycle.
type BatchRun struct {
	ID              uuid.UUID
	BucketID        string
	TargetBucket    string
	Phase           string
	LogOffsetBefore int64
	LogOffsetAfter  *int64
	RecordsRead     int64
	EntriesRead     int64
	EventsPublished int64
	StartedAt       time.Time
	FinishedAt      *time.Time
	ErrorMessage    *string
}

// Store persists BatchRun rows to PostgreSQL.
type Store struct {
	db *database.Client
}

// Open connects to PostgreSQL and applies this package's embedded
// migrations before returning.
func Open(ctx context.Context, cfg database.Config) (*Store, error) {
	client, err := database.NewClient(ctx, cfg, migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("auditlog: failed to open store: %w", err)
	}
	return &Store{db: client}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.db.Close()
}

// Health reports the backing database's connectivity and pool statistics.
func (s *Store) Health(ctx context.Context) (*database.HealthStatus, error) {
	return database.Health(ctx, s.db.Pool)
}

// Record inserts one batch-run row. A zero run.ID is assigned, and a zero
// run.StartedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, run BatchRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO batch_runs (id, bucket_id, target_bucket, phase, log_offset_before, log_offset_after,
		    records_read, entries_read, events_published, started_at, finished_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.BucketID, run.TargetBucket, run.Phase, run.LogOffsetBefore, run.LogOffsetAfter,
		run.RecordsRead, run.EntriesRead, run.EventsPublished, run.StartedAt, run.FinishedAt, run.ErrorMessage)
	if err != nil {
		return fmt.Errorf("auditlog: record batch run: %w", err)
	}
	return nil
}

// Recent returns the most recent batch runs for a bucket, newest first.
func (s *Store) Recent(ctx context.Context, bucketID string, limit int) ([]BatchRun, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, bucket_id, target_bucket, phase, log_offset_before, log_offset_after,
		       records_read, entries_read, events_published, started_at, finished_at, error_message
		FROM batch_runs
		WHERE bucket_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, bucketID, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query recent: %w", err)
	}
	defer rows.Close()

	return scanBatchRuns(rows)
}

// PruneOlderThan deletes every finished batch run older than cutoff and
// returns the number of rows removed. Rows still in progress (finished_at
// IS NULL) are never pruned.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM batch_runs WHERE finished_at IS NOT NULL AND finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auditlog: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanBatchRuns(rows pgx.Rows) ([]BatchRun, error) {
	var out []BatchRun
	for rows.Next() {
		var r BatchRun
		if err := rows.Scan(
			&r.ID, &r.BucketID, &r.TargetBucket, &r.Phase, &r.LogOffsetBefore, &r.LogOffsetAfter,
			&r.RecordsRead, &r.EntriesRead, &r.EventsPublished, &r.StartedAt, &r.FinishedAt, &r.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("auditlog: scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
