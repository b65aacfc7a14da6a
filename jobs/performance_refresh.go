package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/salesdesk/salesdesk/internal/contracts"
	jobmetrics "github.com/salesdesk/salesdesk/internal/jobs"
	"github.com/salesdesk/salesdesk/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SnapshotRefresher recomputes stored performance snapshots.
type SnapshotRefresher interface {
	RefreshActiveSnapshots(ctx context.Context, asOf time.Time) (contracts.RefreshSummary, error)
}

// PerformanceRefreshJob refreshes the performance snapshot of every period
// active on the target day.
type PerformanceRefreshJob struct {
	Refresher SnapshotRefresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewPerformanceRefreshJob wires dependencies for the refresh handler.
func NewPerformanceRefreshJob(refresher SnapshotRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *PerformanceRefreshJob {
	return &PerformanceRefreshJob{
		Refresher: refresher,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskPerformanceRefresh tasks.
func (j *PerformanceRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Refresher == nil {
		return errors.New("performance refresh: handler not configured")
	}
	var payload PerformanceRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("performance refresh payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf := j.now()
	if payload.AsOf != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.AsOf, time.UTC)
		if err != nil {
			return fmt.Errorf("performance refresh as_of %q: %w", payload.AsOf, asynq.SkipRetry)
		}
		asOf = parsed
	}

	started := time.Now()
	tracker := j.metrics().Track(TaskPerformanceRefresh)
	logger := j.logger().With(slog.String("as_of", asOf.Format("2006-01-02")))
	logger.Info("starting performance refresh")

	ctx = shared.ContextWithActor(ctx, shared.SystemActor)
	summary, err := j.Refresher.RefreshActiveSnapshots(ctx, asOf)
	j.metrics().AddItems(TaskPerformanceRefresh, "refreshed", summary.Refreshed)
	j.metrics().AddItems(TaskPerformanceRefresh, "failed", summary.Failed)
	if err != nil {
		logger.Error("performance refresh", slog.Any("error", err))
		return tracker.End(err)
	}

	logger.Info("completed performance refresh",
		slog.Int("refreshed", summary.Refreshed),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", time.Since(started)))
	return tracker.End(nil)
}

func (j *PerformanceRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPerformanceRefresh))
	}
	return slog.Default().With(slog.String("job", TaskPerformanceRefresh))
}

func (j *PerformanceRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PerformanceRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
