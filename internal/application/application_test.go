package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvanomaly/internal/config"
	"github.com/JonMunkholm/csvanomaly/internal/core"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{HistoryCapacity: 5},
		Limits:   config.LimitsConfig{MaxFileSizeMB: 1, MaxRows: 1000, MaxColumns: 20, MinNumericColumns: 1},
		Detection: config.DetectionConfig{
			Contamination:  0.1,
			Trees:          10,
			SampleSize:     16,
			Seed:           1,
			Explainability: true,
			ExplainWorkers: 2,
			Categorical:    true,
			Percentile:     90,
		},
		Breaker: config.BreakerConfig{Failures: 3},
	}
}

func TestNewPipeline(t *testing.T) {
	tests := []struct {
		name            string
		explain         bool
		categorical     bool
		wantExplain     bool
		wantCategorical bool
	}{
		{"everything on", true, true, true, true},
		{"explainability off", false, true, false, true},
		{"categorical off", true, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Detection.Explainability = tt.explain
			cfg.Detection.Categorical = tt.categorical

			p, err := NewPipeline(cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExplain, p.ExplainabilityEnabled())
			assert.Equal(t, tt.wantCategorical, p.CategoricalEnabled())
			assert.Equal(t, 90.0, p.DefaultPercentile())
			assert.Equal(t, int64(1<<20), p.Limits().MaxFileSizeBytes)
		})
	}
}

func TestNewPipeline_InvalidDetection(t *testing.T) {
	cfg := testConfig()
	cfg.Detection.Contamination = 0.9

	_, err := NewPipeline(cfg, nil)
	assert.Error(t, err)
}

func TestOpenRunStore_MemoryWithoutURL(t *testing.T) {
	store, closeFn, err := OpenRunStore(context.Background(), testConfig().Database)
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &core.MemoryRunStore{}, store)
}

func TestOpenRunStore_BadURL(t *testing.T) {
	_, _, err := OpenRunStore(context.Background(), config.DatabaseConfig{URL: "postgres://%zz"})
	assert.Error(t, err)
}

func TestDatabaseName(t *testing.T) {
	assert.Equal(t, "anomalies", databaseName("postgres://u:p@localhost:5432/anomalies?sslmode=disable"))
	assert.Equal(t, "", databaseName("::"))
}
