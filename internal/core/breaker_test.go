package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingScorer struct {
	calls int
	err   error
}

func (c *countingScorer) FitAndScore(_ context.Context, m *FeatureMatrix) ([]int, []float64, error) {
	c.calls++
	if c.err != nil {
		return nil, nil, c.err
	}
	return make([]int, m.NumRows()), make([]float64, m.NumRows()), nil
}

func (c *countingScorer) Name() string { return "counting" }

func TestGuardScorer_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingScorer{err: errors.New("model down")}
	s := GuardScorer(inner, BreakerSettings{Failures: 2, Timeout: time.Minute})
	m := &FeatureMatrix{Columns: []string{"a"}, Rows: [][]float64{{1}, {2}}}

	for i := 0; i < 2; i++ {
		_, _, err := s.FitAndScore(context.Background(), m)
		assert.ErrorIs(t, err, inner.err)
	}

	_, _, err := s.FitAndScore(context.Background(), m)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls, "open breaker does not call the scorer")
	assert.Equal(t, "counting", nameOf(s, ""))
}

func TestGuardScorer_CallerCancellationDoesNotTrip(t *testing.T) {
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(cause.Error(), func(t *testing.T) {
			inner := &countingScorer{err: cause}
			s := GuardScorer(inner, BreakerSettings{Failures: 2, Timeout: time.Minute})
			m := &FeatureMatrix{Columns: []string{"a"}, Rows: [][]float64{{1}}}

			for i := 0; i < 5; i++ {
				_, _, err := s.FitAndScore(context.Background(), m)
				assert.ErrorIs(t, err, cause)
			}

			inner.err = nil
			_, _, err := s.FitAndScore(context.Background(), m)
			assert.NoError(t, err)
			assert.Equal(t, 6, inner.calls)
		})
	}
}

func TestGuardScorer_NegativeFailuresNeverTrips(t *testing.T) {
	inner := &countingScorer{err: errors.New("flaky")}
	s := GuardScorer(inner, BreakerSettings{Failures: -1, Timeout: time.Minute})
	m := &FeatureMatrix{Columns: []string{"a"}, Rows: [][]float64{{1}}}

	for i := 0; i < 10; i++ {
		_, _, err := s.FitAndScore(context.Background(), m)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, 10, inner.calls)
}

func TestGuardScorer_PassesResultsThrough(t *testing.T) {
	s := GuardScorer(&stubScorer{cutoff: 1}, BreakerSettings{Failures: 3, Timeout: time.Minute})
	m := &FeatureMatrix{Columns: []string{"a"}, Rows: [][]float64{{0}, {5}}}

	labels, scores, err := s.FitAndScore(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, labels)
	assert.Equal(t, []float64{0, 5}, scores)
}

func TestGuardExplainer_OpenBreakerIsExplanationFailure(t *testing.T) {
	explainer := GuardExplainer(&stubExplainer{err: errors.New("shap down")}, BreakerSettings{Failures: 1, Timeout: time.Minute})
	p, _ := newTestPipeline(t, &stubScorer{cutoff: 100}, Use(explainer))

	for i := 0; i < 2; i++ {
		resp, err := p.DetectNumeric(context.Background(), upload(sampleCSV))
		require.NoError(t, err)
		assert.Equal(t, ExplanationFailed, resp.Metadata.Explainability)
	}
}

func TestGuardReconstructionScorer(t *testing.T) {
	r := GuardReconstructionScorer(&lengthLoss{}, BreakerSettings{Failures: 1, Timeout: time.Minute})
	losses, err := r.FitAndScore(context.Background(), &CategoricalTable{
		Columns: []string{"c"},
		Rows:    [][]string{{"ab"}},
	})
	require.NoError(t, err)
	require.Len(t, losses, 1)
	assert.Equal(t, 2.0, losses[0].Total)
	assert.Equal(t, "length", nameOf(r, ""))
}
