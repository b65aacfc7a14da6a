package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/contracts"
	jobmetrics "github.com/salesdesk/salesdesk/internal/jobs"
	"github.com/salesdesk/salesdesk/internal/shared"
)

type fakeRefresher struct {
	asOf    time.Time
	actor   shared.Actor
	summary contracts.RefreshSummary
	err     error
	calls   int
}

func (f *fakeRefresher) RefreshActiveSnapshots(ctx context.Context, asOf time.Time) (contracts.RefreshSummary, error) {
	f.calls++
	f.asOf = asOf
	f.actor, _ = shared.ActorFromContext(ctx)
	return f.summary, f.err
}

func newRefreshJob(refresher SnapshotRefresher) *PerformanceRefreshJob {
	job := NewPerformanceRefreshJob(refresher, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2024, 5, 15, 3, 0, 0, 0, time.UTC) }
	return job
}

func TestPerformanceRefreshJobUsesPayloadDate(t *testing.T) {
	refresher := &fakeRefresher{summary: contracts.RefreshSummary{Refreshed: 4, Failed: 1}}
	job := newRefreshJob(refresher)

	task, err := NewPerformanceRefreshTask("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, TaskPerformanceRefresh, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), refresher.asOf)
	assert.Equal(t, shared.RoleSystem, refresher.actor.Role)
}

func TestPerformanceRefreshJobDefaultsToToday(t *testing.T) {
	refresher := &fakeRefresher{}
	job := newRefreshJob(refresher)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskPerformanceRefresh, nil)))
	assert.Equal(t, 15, refresher.asOf.Day())
}

func TestPerformanceRefreshJobErrors(t *testing.T) {
	job := newRefreshJob(&fakeRefresher{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskPerformanceRefresh, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	task, err := NewPerformanceRefreshTask("15/05/2024")
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	boom := errors.New("db down")
	job = newRefreshJob(&fakeRefresher{err: boom})
	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskPerformanceRefresh, nil)), boom)

	var unconfigured *PerformanceRefreshJob
	require.Error(t, unconfigured.Handle(context.Background(), asynq.NewTask(TaskPerformanceRefresh, nil)))
}

type fakePurger struct {
	retention time.Duration
	err       error
}

func (f *fakePurger) Cleanup(ctx context.Context, olderThan time.Duration) error {
	f.retention = olderThan
	return f.err
}

func TestIdempotencyCleanupJob(t *testing.T) {
	purger := &fakePurger{}
	job := NewIdempotencyCleanupJob(purger, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, purger.retention)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, defaultIdempotencyRetention, purger.retention)

	purger.err = errors.New("boom")
	require.Error(t, job.Handle(context.Background(), task))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

type fakeEnqueuer struct {
	asOf string
	err  error
}

func (f *fakeEnqueuer) EnqueuePerformanceRefresh(ctx context.Context, asOf string) (*asynq.TaskInfo, error) {
	f.asOf = asOf
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandlerHealth(t *testing.T) {
	rec := serve(NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Failed: 1}}, nil, nil), http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Pending)
	assert.Equal(t, 1, body.Failed)

	rec = serve(NewHandler(fakeInspector{err: errors.New("redis down")}, nil, nil), http.MethodGet, "/jobs/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(NewHandler(nil, nil, nil), http.MethodGet, "/jobs/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerEnqueueRefresh(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	h := NewHandler(nil, enqueuer, nil)

	rec := serve(h, http.MethodPost, "/jobs/performance-refresh?as_of=2024-03-01")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "2024-03-01", enqueuer.asOf)
	assert.Contains(t, rec.Body.String(), "task-1")

	rec = serve(h, http.MethodPost, "/jobs/performance-refresh?as_of=march")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	enqueuer.err = errors.New("redis down")
	rec = serve(h, http.MethodPost, "/jobs/performance-refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
