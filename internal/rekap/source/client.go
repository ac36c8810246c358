// Package source reads transaction records from the per-office endpoints.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
)

// ErrNoEndpoint is returned for an office without a source endpoint.
var ErrNoEndpoint = errors.New("source: endpoint not configured")

const defaultConcurrency = 8

// Config tunes the HTTP source.
type Config struct {
	Timeout     time.Duration
	Concurrency int
}

// Client fetches office records over HTTP.
type Client struct {
	http        *http.Client
	logger      *slog.Logger
	metrics     *Metrics
	concurrency int
}

// NewClient constructs a Client. metrics may be nil.
func NewClient(cfg Config, logger *slog.Logger, metrics *Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

// Fetch reads one endpoint and decodes its {"data": [...]} payload.
func (c *Client) Fetch(ctx context.Context, endpoint string) ([]rekap.TransactionRecord, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: get %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("source: %s responded %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", endpoint, err)
	}
	records := make([]rekap.TransactionRecord, 0, len(payload.Data))
	for _, w := range payload.Data {
		records = append(records, w.toRecord())
	}
	return records, nil
}

// FetchAll reads every office concurrently. A failing office is logged and
// reported in its result; it never cancels the others.
func (c *Client) FetchAll(ctx context.Context, offices []rekap.OfficeDescriptor) []rekap.FetchResult {
	results := make([]rekap.FetchResult, len(offices))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, office := range offices {
		g.Go(func() error {
			start := time.Now()
			records, err := c.Fetch(ctx, office.Endpoint)
			c.metrics.observe(err, time.Since(start))
			if err != nil {
				c.logger.Error("fetch office records",
					slog.Int("sequence", office.Sequence),
					slog.String("office", office.Name),
					slog.String("endpoint", office.Endpoint),
					slog.Any("error", err),
				)
				results[i] = rekap.FetchResult{Records: []rekap.TransactionRecord{}, Err: err}
				return nil
			}
			results[i] = rekap.FetchResult{Records: records}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Metrics counts source fetches.
type Metrics struct {
	fetches  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the source collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iwkbu_source_fetch_total",
		Help: "Office endpoint fetches partitioned by status.",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "iwkbu_source_fetch_duration_seconds",
		Help:    "Duration of office endpoint fetches.",
		Buckets: prometheus.DefBuckets,
	})
	registerer.MustRegister(fetches, duration)
	return &Metrics{fetches: fetches, duration: duration}
}

func (m *Metrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.fetches.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
}
