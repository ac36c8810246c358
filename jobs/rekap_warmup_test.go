package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/iwkbu-monitor/iwkbu-monitor/internal/jobs"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

type fakeWarmer struct {
	mu       sync.Mutex
	tables   []string
	failing  map[string]error
	degraded map[string]bool
	calls    []string
	windows  []string
}

func (f *fakeWarmer) Tables(context.Context) ([]string, error) {
	return f.tables, nil
}

func (f *fakeWarmer) Rekap(_ context.Context, table string, window rekap.Window) (rekap.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, table)
	f.windows = append(f.windows, window.Key())
	if err := f.failing[table]; err != nil {
		return rekap.Report{}, err
	}
	report := rekap.Report{Table: table}
	if f.degraded[table] {
		report.Failures = []rekap.Failure{{Sequence: 1, Office: "Loket A", Error: "timeout"}}
	}
	return report, nil
}

func newWarmupJob(w Warmer) (*RekapWarmupJob, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	job := NewRekapWarmupJob(w, nil, jobmetrics.NewMetrics(reg)).
		WithClock(func() time.Time { return time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC) })
	return job, reg
}

func warmupTask(t *testing.T, payload RekapWarmupPayload) *asynq.Task {
	t.Helper()
	task, err := NewRekapWarmupTask(payload)
	require.NoError(t, err)
	return task
}

func TestRekapWarmupWarmsEveryTableMonthToDate(t *testing.T) {
	warmer := &fakeWarmer{tables: []string{"rekap", "keliling"}, degraded: map[string]bool{"keliling": true}}
	job, reg := newWarmupJob(warmer)

	require.NoError(t, job.Handle(context.Background(), warmupTask(t, RekapWarmupPayload{})))

	assert.Equal(t, []string{"rekap", "keliling"}, warmer.calls)
	assert.Equal(t, []string{"0105-1705", "0105-1705"}, warmer.windows)
	count, err := testutil.GatherAndCount(reg, "iwkbu_rekap_warmed_tables_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRekapWarmupExplicitPayload(t *testing.T) {
	warmer := &fakeWarmer{tables: []string{"rekap", "keliling"}}
	job, _ := newWarmupJob(warmer)

	task := warmupTask(t, RekapWarmupPayload{Tables: []string{"keliling"}, Start: "20/12", End: "10/01"})
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, []string{"keliling"}, warmer.calls)
	assert.Equal(t, []string{"2012-1001"}, warmer.windows)
}

func TestRekapWarmupContinuesPastFailures(t *testing.T) {
	boom := errors.New("catalogue offline")
	warmer := &fakeWarmer{tables: []string{"a", "b", "c"}, failing: map[string]error{"b": boom}}
	job, _ := newWarmupJob(warmer)

	err := job.Handle(context.Background(), warmupTask(t, RekapWarmupPayload{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b", "c"}, warmer.calls)
}

func TestRekapWarmupRejectsBadPayload(t *testing.T) {
	job, _ := newWarmupJob(&fakeWarmer{})

	err := job.Handle(context.Background(), asynq.NewTask(TaskRekapWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	half, err := json.Marshal(RekapWarmupPayload{Start: "01/05"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), asynq.NewTask(TaskRekapWarmup, half))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, rekap.ErrWindowRequired)
}

func TestRekapWarmupNotConfigured(t *testing.T) {
	var job *RekapWarmupJob
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskRekapWarmup, nil)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, nil).
		health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"scheduled":0,"retry":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).
		health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(nil, nil).health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
