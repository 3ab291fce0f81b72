package iforest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

// Ablation explains forest scores by replacing one feature at a time with its
// column mean. A feature's attribution is how much the row's score drops when
// that feature is neutralized; positive values push the row toward anomalous.
type Ablation struct {
	forest  *Forest
	workers int
}

// NewAblation creates an Explainer over forest. workers bounds the number of
// rows explained in parallel.
func NewAblation(forest *Forest, workers int) *Ablation {
	if workers <= 0 {
		workers = 1
	}
	return &Ablation{forest: forest, workers: workers}
}

// Name implements core.Named.
func (a *Ablation) Name() string {
	return "mean_ablation"
}

// Explain implements core.Explainer.
func (a *Ablation) Explain(ctx context.Context, m *core.FeatureMatrix, rows []int) ([][]core.Attribution, error) {
	for _, r := range rows {
		if r < 0 || r >= m.NumRows() {
			return nil, fmt.Errorf("row %d out of range [0, %d)", r, m.NumRows())
		}
	}

	mdl, err := a.forest.fit(ctx, m.Rows)
	if err != nil {
		return nil, err
	}

	means := make([]float64, m.NumFeatures())
	for j := range means {
		means[j] = stat.Mean(m.Column(j), nil)
	}

	out := make([][]core.Attribution, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for k, r := range rows {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("explaining row %d panicked: %v", r, p)
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			out[k] = explainRowFunc(mdl, m, r, means)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// explainRowFunc is swapped in tests.
var explainRowFunc = explainRow

func explainRow(mdl *model, m *core.FeatureMatrix, r int, means []float64) []core.Attribution {
	row := m.Rows[r]
	base := mdl.score(row)

	ablated := make([]float64, len(row))
	attrs := make([]core.Attribution, len(row))
	for j, name := range m.Columns {
		copy(ablated, row)
		ablated[j] = means[j]
		attrs[j] = core.Attribution{
			Feature:     name,
			Value:       row[j],
			Attribution: base - mdl.score(ablated),
		}
	}
	return attrs
}
