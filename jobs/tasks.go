package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPerformanceRefresh recomputes performance snapshots of active periods.
	TaskPerformanceRefresh = "contracts:performance_refresh"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// PerformanceRefreshPayload selects the day whose active periods are
// refreshed. An empty AsOf means the current day at execution time.
type PerformanceRefreshPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewPerformanceRefreshTask constructs an Asynq task.
func NewPerformanceRefreshTask(asOf string) (*asynq.Task, error) {
	data, err := json.Marshal(PerformanceRefreshPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPerformanceRefresh, data), nil
}

// IdempotencyCleanupPayload configures key retention.
type IdempotencyCleanupPayload struct {
	RetentionSeconds int64 `json:"retention_seconds"`
}

// Retention returns the payload retention as a duration.
func (p IdempotencyCleanupPayload) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionSeconds: int64(retention / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
