package reader

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxParallelReaders bounds how many bucket readers may run a batch
// concurrently.
const DefaultMaxParallelReaders = 5

// Scheduler fires a batch cycle for every idle, enabled bucket reader on a
// cron-driven tick, bounded by maxParallelReaders. It never blocks waiting
// for a busy reader: a reader still mid-batch is simply skipped, matching
// the Ready/Batch in-progress discipline.
type Scheduler struct {
	registry *Registry
	sem      *semaphore.Weighted
	cronRule string

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds a Scheduler that ticks registry's readers according
// to cronRule, running at most maxParallelReaders batches concurrently.
func NewScheduler(registry *Registry, cronRule string, maxParallelReaders int64) *Scheduler {
	if maxParallelReaders <= 0 {
		maxParallelReaders = DefaultMaxParallelReaders
	}
	return &Scheduler{
		registry: registry,
		sem:      semaphore.NewWeighted(maxParallelReaders),
		cronRule: cronRule,
		// Seconds-granularity rules: batch ticks run far more often than
		// the minute floor of the standard cron format.
		cron: cron.New(cron.WithSeconds()),
	}
}

// Start begins ticking in the background until ctx is canceled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	_, err := s.cron.AddFunc(s.cronRule, func() {
		s.fireAll(runCtx)
	})
	if err != nil {
		cancel()
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts future ticks and waits for in-flight batches to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
}

func (s *Scheduler) fireAll(ctx context.Context) {
	for _, bucket := range s.registry.List() {
		r, ok := s.registry.Get(bucket)
		if !ok {
			continue
		}
		if r.State() != Ready {
			continue
		}
		if !s.sem.TryAcquire(1) {
			continue
		}
		s.wg.Add(1)
		go func(bucket string, r *BucketReader) {
			defer s.wg.Done()
			defer s.sem.Release(1)
			outcome, err := r.Tick(ctx)
			if err != nil {
				return
			}
			slog.Info("batch complete", "method", "Tick", "bucket", bucket, "phase", outcome.Phase,
				"eventsPublished", outcome.EventsPublished, "advanced", outcome.Advanced)
		}(bucket, r)
	}
}
