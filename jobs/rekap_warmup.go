package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/iwkbu-monitor/iwkbu-monitor/internal/jobs"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const tableTimeout = 3 * time.Minute

// Warmer is the part of the rekap service the warmup job drives.
type Warmer interface {
	Tables(ctx context.Context) ([]string, error)
	Rekap(ctx context.Context, table string, window rekap.Window) (rekap.Report, error)
}

// RekapWarmupJob fills the rekap cache so dashboards open without waiting on
// every office endpoint.
type RekapWarmupJob struct {
	Rekap   Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRekapWarmupJob wires dependencies for the warmup handler.
func NewRekapWarmupJob(warmer Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *RekapWarmupJob {
	return &RekapWarmupJob{
		Rekap:   warmer,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// WithClock overrides the job clock for testing.
func (j *RekapWarmupJob) WithClock(fn func() time.Time) *RekapWarmupJob {
	if fn != nil {
		j.clock = fn
	}
	return j
}

// Handle processes rekap warmup tasks. One failing table does not stop the
// others; the task fails afterwards so asynq retries it.
func (j *RekapWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Rekap == nil {
		return errors.New("rekap warmup: handler not configured")
	}
	var payload RekapWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("rekap warmup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.metrics().Track(TaskRekapWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	window := rekap.MonthToDate(j.now())
	if payload.Start != "" || payload.End != "" {
		window = rekap.ParseWindow(payload.Start, payload.End)
		if !window.Complete() {
			return fmt.Errorf("rekap warmup: %w: %w", rekap.ErrWindowRequired, asynq.SkipRetry)
		}
	}

	tables := payload.Tables
	if len(tables) == 0 {
		var err error
		if tables, err = j.Rekap.Tables(ctx); err != nil {
			return fmt.Errorf("rekap warmup: list tables: %w", err)
		}
	}

	logger := j.logger().With(slog.String("window", window.Key()))
	logger.Info("starting rekap warmup", slog.Int("tables", len(tables)))
	start := time.Now()

	var errs []error
	for _, table := range tables {
		failures, err := j.warmTable(ctx, table, window)
		if err != nil {
			logger.Error("warm table", slog.String("table", table), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
			continue
		}
		j.metrics().AddWarmed(table, failures > 0)
		if failures > 0 {
			logger.Warn("table warmed with unreachable offices", slog.String("table", table), slog.Int("failures", failures))
		}
	}

	logger.Info("completed rekap warmup", slog.Int("failed_tables", len(errs)), slog.Duration("duration", time.Since(start)))
	return errors.Join(errs...)
}

func (j *RekapWarmupJob) warmTable(ctx context.Context, table string, window rekap.Window) (int, error) {
	tableCtx, cancel := context.WithTimeout(ctx, tableTimeout)
	defer cancel()
	report, err := j.Rekap.Rekap(tableCtx, table, window)
	if err != nil {
		return 0, err
	}
	return len(report.Failures), nil
}

func (j *RekapWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRekapWarmup))
	}
	return slog.Default().With(slog.String("job", TaskRekapWarmup))
}

func (j *RekapWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RekapWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
