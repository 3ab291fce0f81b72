package core

import "context"

// Scorer fits an anomaly model on m and scores every row.
// labels and scores are row-aligned with m; label 1 means anomalous.
type Scorer interface {
	FitAndScore(ctx context.Context, m *FeatureMatrix) (labels []int, scores []float64, err error)
}

// Attribution is one feature's contribution to a row's anomaly score.
type Attribution struct {
	Feature     string  `json:"feature"`
	Value       float64 `json:"value"`
	Attribution float64 `json:"attribution"`
}

// Explainer attributes the scores of the given matrix rows to features.
// The result has one entry per requested row, in request order.
type Explainer interface {
	Explain(ctx context.Context, m *FeatureMatrix, rows []int) ([][]Attribution, error)
}

// RowLoss is the reconstruction loss of one row, with one entry per column.
type RowLoss struct {
	Total      float64
	PerFeature []float64
}

// ReconstructionScorer fits a reconstruction model on categorical data and
// returns the per-row loss. Thresholding is done by the caller.
type ReconstructionScorer interface {
	FitAndScore(ctx context.Context, t *CategoricalTable) ([]RowLoss, error)
}

// Named is implemented by collaborators that report a name for run metadata.
type Named interface {
	Name() string
}

// Capability is an optional collaborator selected at wiring time.
// The zero value is unavailable.
type Capability[T any] struct {
	impl      T
	available bool
}

// Use returns an available capability backed by impl.
func Use[T any](impl T) Capability[T] {
	return Capability[T]{impl: impl, available: true}
}

// Unavailable returns a capability that is explicitly switched off.
func Unavailable[T any]() Capability[T] {
	return Capability[T]{}
}

// Get returns the implementation and whether the capability is available.
func (c Capability[T]) Get() (T, bool) {
	return c.impl, c.available
}

// Available reports whether the capability is configured.
func (c Capability[T]) Available() bool {
	return c.available
}

// nameOf returns the collaborator's reported name, or fallback.
func nameOf(v any, fallback string) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return fallback
}
