package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/offices"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap/source"
)

// NewCatalogue opens the office catalogue selected by OFFICES_SOURCE.
func NewCatalogue(cfg *Config, pool *pgxpool.Pool) (rekap.Catalogue, error) {
	switch cfg.OfficesSource {
	case OfficesFromFile:
		return offices.LoadFile(cfg.OfficesFile)
	case OfficesFromPostgres:
		if pool == nil {
			return nil, fmt.Errorf("offices: postgres catalogue needs a pool")
		}
		return offices.NewPGRepository(pool), nil
	default:
		return nil, fmt.Errorf("offices: unknown source %q", cfg.OfficesSource)
	}
}

// NewRekapService assembles the aggregation service shared by the web
// server and the worker.
func NewRekapService(ctx context.Context, cfg *Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, registerer prometheus.Registerer) (*rekap.Service, error) {
	catalogue, err := NewCatalogue(cfg, pool)
	if err != nil {
		return nil, err
	}
	if names, err := catalogue.Tables(ctx); err != nil {
		logger.Warn("list office tables", slog.Any("error", err))
	} else {
		logger.Info("office catalogue ready", slog.String("source", cfg.OfficesSource), slog.Int("tables", len(names)))
	}
	client := source.NewClient(source.Config{
		Timeout:     cfg.SourceTimeout,
		Concurrency: cfg.SourceConcurrency,
	}, logger, source.NewMetrics(registerer))
	cache := rekap.NewCache(redisClient, cfg.RekapCacheTTL)
	return rekap.NewService(catalogue, client, cache, logger), nil
}
