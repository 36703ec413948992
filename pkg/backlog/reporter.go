package backlog

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Reporter periodically republishes consumer backlog state to the
// Coordinator and mirrors it into the Prometheus gauges, so backlog
// tracking runs continuously instead of only answering on-demand
// lag/progress queries.
type Reporter struct {
	tracker  *Tracker
	metrics  *Metrics
	topic    string
	groups   []string
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// DefaultReportInterval is used when no reporting interval is configured.
const DefaultReportInterval = 30 * time.Second

// NewReporter builds a Reporter that tracks topic's backlog for every
// groupID in groups, reporting every interval (DefaultReportInterval when
// interval is zero or negative).
func NewReporter(tracker *Tracker, metrics *Metrics, topic string, groups []string, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &Reporter{tracker: tracker, metrics: metrics, topic: topic, groups: groups, interval: interval}
}

// Start launches the background reporting loop.
func (r *Reporter) Start(ctx context.Context) {
	if r.cancel != nil || len(r.groups) == 0 {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)

	slog.Info("Backlog reporter started", "topic", r.topic, "groups", r.groups, "interval", r.interval)
}

// Stop signals the reporting loop to exit and waits for it to finish.
func (r *Reporter) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	slog.Info("Backlog reporter stopped")
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	r.reportAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reportAll(ctx)
		}
	}
}

func (r *Reporter) reportAll(ctx context.Context) {
	for _, groupID := range r.groups {
		if err := r.tracker.PublishConsumerBacklog(ctx, r.topic, groupID); err != nil {
			slog.Error("Backlog: publish consumer backlog failed", "topic", r.topic, "group", groupID, "error", err)
			continue
		}
		r.updateGauges(ctx, groupID)
	}
}

func (r *Reporter) updateGauges(ctx context.Context, groupID string) {
	watermarks, err := r.tracker.admin.HighWatermarks(ctx, r.topic)
	if err != nil {
		slog.Error("Backlog: read high watermarks failed", "topic", r.topic, "error", err)
		return
	}
	offsets, err := r.tracker.admin.GroupOffsets(ctx, r.topic, groupID)
	if err != nil {
		slog.Error("Backlog: read group offsets failed", "topic", r.topic, "group", groupID, "error", err)
		return
	}

	for partition, topicOffset := range watermarks {
		p := strconv.Itoa(int(partition))
		r.metrics.TopicOffset.WithLabelValues(r.topic, p).Set(float64(topicOffset))

		consumerOffset, ok := offsets[partition]
		if !ok {
			continue
		}
		r.metrics.ConsumerOffset.WithLabelValues(r.topic, p, groupID).Set(float64(consumerOffset))

		lag := topicOffset - consumerOffset
		if lag < 0 {
			lag = 0
		}
		r.metrics.ConsumerLag.WithLabelValues(r.topic, p, groupID).Set(float64(lag))
	}
}
