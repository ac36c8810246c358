package rekap

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// Catalogue resolves office tables.
type Catalogue interface {
	Table(ctx context.Context, name string) ([]OfficeDescriptor, error)
	Tables(ctx context.Context) ([]string, error)
}

// FetchResult is the outcome of reading one office endpoint. Err is set when
// the source failed; Records is then empty.
type FetchResult struct {
	Records []TransactionRecord
	Err     error
}

// Source fetches the raw records of every office. Results are indexed like
// the descriptors and a failed office never fails the batch.
type Source interface {
	FetchAll(ctx context.Context, offices []OfficeDescriptor) []FetchResult
}

// Failure describes an office whose source could not be read.
type Failure struct {
	Sequence int    `json:"sequence"`
	Office   string `json:"office"`
	Endpoint string `json:"endpoint"`
	Error    string `json:"error"`
}

// Report bundles every projection of one aggregation pass.
type Report struct {
	Table       string             `json:"table"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
	GeneratedAt time.Time          `json:"generated_at"`
	Offices     []OfficeDescriptor `json:"offices"`
	Aggregates  []OfficeAggregate  `json:"aggregates"`
	Rows        []RekapRow         `json:"rows"`
	Anggaran    []AnggaranRow      `json:"anggaran"`
	Konversi    []ConversionRow    `json:"konversi"`
	Notes       []string           `json:"notes"`
	Branches    []BranchMetric     `json:"branches"`
	Quadrants   Quadrants          `json:"quadrants"`
	Failures    []Failure          `json:"failures"`
}

// GrandTotal returns the last rekap row.
func (r Report) GrandTotal() RekapRow {
	if len(r.Rows) == 0 {
		return RekapRow{Kind: RowGrandTotal, Label: "TOTAL"}
	}
	return r.Rows[len(r.Rows)-1]
}

// OfficeDetail is the drill-down of one office.
type OfficeDetail struct {
	Table     string           `json:"table"`
	Start     string           `json:"start"`
	End       string           `json:"end"`
	Office    OfficeDescriptor `json:"office"`
	Aggregate OfficeAggregate  `json:"aggregate"`
	Failure   string           `json:"failure,omitempty"`
}

// Build runs reconciliation and every projection over fetched results. It is
// deterministic for fixed inputs apart from GeneratedAt.
func Build(table string, window Window, offices []OfficeDescriptor, results []FetchResult, now time.Time) Report {
	report := Report{
		Table:       table,
		GeneratedAt: now,
		Offices:     offices,
		Aggregates:  make([]OfficeAggregate, len(offices)),
		Failures:    []Failure{},
	}
	if window.Start != nil {
		report.Start = window.Start.String()
	}
	if window.End != nil {
		report.End = window.End.String()
	}
	for i, office := range offices {
		var res FetchResult
		if i < len(results) {
			res = results[i]
		}
		if res.Err != nil {
			report.Aggregates[i] = ZeroAggregate()
			report.Failures = append(report.Failures, Failure{
				Sequence: office.Sequence,
				Office:   office.Name,
				Endpoint: office.Endpoint,
				Error:    res.Err.Error(),
			})
			continue
		}
		report.Aggregates[i] = Reconcile(res.Records, window)
	}
	report.Rows = Rollup(offices, report.Aggregates)
	report.Anggaran = Anggaran(offices, report.Aggregates, window)
	report.Konversi = Conversion(offices, report.Aggregates)
	report.Notes = ConversionNotes(report.Aggregates)
	report.Branches = BranchMetrics(report.Rows)
	report.Quadrants = Classify(report.Branches)
	return report
}

// Service coordinates catalogue lookups, source fetches and the cache.
type Service struct {
	catalogue Catalogue
	source    Source
	cache     *Cache
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService wires the service dependencies. cache may be nil.
func NewService(catalogue Catalogue, source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalogue: catalogue,
		source:    source,
		cache:     cache,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Tables lists the configured office tables.
func (s *Service) Tables(ctx context.Context) ([]string, error) {
	return s.catalogue.Tables(ctx)
}

// Rekap returns the report of table for window, cached and shared between
// concurrent callers. Once started a pass runs until every fetch settles even
// if the caller goes away.
func (s *Service) Rekap(ctx context.Context, table string, window Window) (Report, error) {
	if !window.Complete() {
		return Report{}, ErrWindowRequired
	}
	key, err := s.cache.BuildKey(ctx, keyReport(table, window))
	if err != nil {
		s.logger.Warn("rekap cache key", slog.Any("error", err))
		key = keyReport(table, window)
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		passCtx := context.WithoutCancel(ctx)
		return cached(passCtx, s.cache, s.logger, key, s.cache.reportTTL, func(ctx context.Context) (Report, error) {
			return s.build(ctx, table, window)
		})
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

func (s *Service) build(ctx context.Context, table string, window Window) (Report, error) {
	offices, err := s.catalogue.Table(ctx, table)
	if err != nil {
		return Report{}, fmt.Errorf("rekap: load table %s: %w", table, err)
	}
	start := time.Now()
	results := s.source.FetchAll(ctx, offices)
	report := Build(table, window, offices, results, s.now())
	s.logger.Info("rekap built",
		slog.String("table", table),
		slog.String("window", window.Key()),
		slog.Int("offices", len(offices)),
		slog.Int("failures", len(report.Failures)),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// Office returns the drill-down of the office with sequence seq.
func (s *Service) Office(ctx context.Context, table string, seq int, window Window) (OfficeDetail, error) {
	report, err := s.Rekap(ctx, table, window)
	if err != nil {
		return OfficeDetail{}, err
	}
	for i, office := range report.Offices {
		if office.Sequence != seq {
			continue
		}
		detail := OfficeDetail{
			Table:     table,
			Start:     report.Start,
			End:       report.End,
			Office:    office,
			Aggregate: report.Aggregates[i],
		}
		for _, f := range report.Failures {
			if f.Sequence == seq {
				detail.Failure = f.Error
			}
		}
		return detail, nil
	}
	return OfficeDetail{}, fmt.Errorf("%w: %s #%s", ErrOfficeNotFound, table, strconv.Itoa(seq))
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
