// Package cleanup prunes finished batch-run history from pkg/auditlog
// once it ages past the configured retention window.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/objectstream/ingestd/pkg/auditlog"
	"github.com/objectstream/ingestd/pkg/config"
)

// Service periodically deletes batch_runs rows older than the configured
// retention window. Deletion is idempotent and safe to run from multiple
// processes.
type Service struct {
	retention *config.RetentionConfig
	store     *auditlog.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(retention *config.RetentionConfig, store *auditlog.Store) *Service {
	return &Service{retention: retention, store: store}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"batch_run_retention_days", s.retention.BatchRunRetentionDays,
		"interval", s.retention.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.retention.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retention.BatchRunRetentionDays)
	count, err := s.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: batch run prune failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: pruned batch run history", "count", count)
	}
}
