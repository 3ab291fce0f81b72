// Package catfreq scores categorical rows by how unlikely each value is in
// its column. It is the default ReconstructionScorer: a row's loss is the sum
// over columns of -log p(value | column), with add-one smoothing.
package catfreq

import (
	"context"
	"fmt"
	"math"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

// Scorer is a frequency-table reconstruction scorer. It has no state between
// calls.
type Scorer struct{}

// New creates a Scorer.
func New() *Scorer {
	return &Scorer{}
}

// Name implements core.Named.
func (s *Scorer) Name() string {
	return "categorical_frequency"
}

// FitAndScore implements core.ReconstructionScorer.
func (s *Scorer) FitAndScore(ctx context.Context, t *core.CategoricalTable) ([]core.RowLoss, error) {
	nCols := len(t.Columns)
	for i, row := range t.Rows {
		if len(row) != nCols {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), nCols)
		}
	}

	counts := make([]map[string]int, nCols)
	for j := range counts {
		counts[j] = make(map[string]int)
	}
	for _, row := range t.Rows {
		for j, v := range row {
			counts[j][v]++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := float64(len(t.Rows))
	losses := make([]core.RowLoss, len(t.Rows))
	for i, row := range t.Rows {
		per := make([]float64, nCols)
		total := 0.0
		for j, v := range row {
			// Smoothed over the observed categories plus one unseen slot.
			k := float64(len(counts[j]) + 1)
			p := (float64(counts[j][v]) + 1) / (n + k)
			per[j] = -math.Log(p)
			total += per[j]
		}
		losses[i] = core.RowLoss{Total: total, PerFeature: per}
	}
	return losses, nil
}
