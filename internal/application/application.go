// Package application assembles the detection pipeline from configuration.
// Both the HTTP server and the CLI build their pipeline here.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/csvanomaly/internal/config"
	"github.com/JonMunkholm/csvanomaly/internal/core"
	"github.com/JonMunkholm/csvanomaly/internal/models/catfreq"
	"github.com/JonMunkholm/csvanomaly/internal/models/iforest"
)

// NewForest builds the isolation forest described by cfg.
func NewForest(cfg config.DetectionConfig) (*iforest.Forest, error) {
	forest := iforest.New(
		iforest.WithTrees(cfg.Trees),
		iforest.WithSampleSize(cfg.SampleSize),
		iforest.WithContamination(cfg.Contamination),
		iforest.WithSeed(cfg.Seed),
	)
	if err := forest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection settings: %w", err)
	}
	return forest, nil
}

// NewPipeline wires the default collaborators behind circuit breakers.
// Explainability and categorical detection are only attached when enabled.
func NewPipeline(cfg *config.Config, runs core.RunStore) (*core.Pipeline, error) {
	forest, err := NewForest(cfg.Detection)
	if err != nil {
		return nil, err
	}
	bs := cfg.Breaker.Settings()

	explainer := core.Unavailable[core.Explainer]()
	if cfg.Detection.Explainability {
		explainer = core.Use(core.GuardExplainer(iforest.NewAblation(forest, cfg.Detection.ExplainWorkers), bs))
	}

	reconstruction := core.Unavailable[core.ReconstructionScorer]()
	if cfg.Detection.Categorical {
		reconstruction = core.Use(core.GuardReconstructionScorer(catfreq.New(), bs))
	}

	return core.NewPipeline(core.Options{
		Limits:            cfg.Limits.CoreLimits(),
		Scorer:            core.GuardScorer(forest, bs),
		Explainer:         explainer,
		Reconstruction:    reconstruction,
		DefaultPercentile: cfg.Detection.Percentile,
		Runs:              runs,
	})
}

// OpenRunStore returns the PostgreSQL run store when a database URL is
// configured and an in-memory ring otherwise. The returned close func is
// always non-nil.
func OpenRunStore(ctx context.Context, cfg config.DatabaseConfig) (core.RunStore, func(), error) {
	if !cfg.HistoryEnabled() {
		slog.Info("run history kept in memory", "capacity", cfg.HistoryCapacity)
		return core.NewMemoryRunStore(cfg.HistoryCapacity), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := core.NewPgRunStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	slog.Info("run history stored in database", "name", databaseName(cfg.URL))
	return store, pool.Close, nil
}

// databaseName extracts the database name from a connection URL for logging.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
