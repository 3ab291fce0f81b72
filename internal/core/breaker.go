package core

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker put around each collaborator.
// Failures < 0 disables tripping.
type BreakerSettings struct {
	Failures int
	Timeout  time.Duration
}

func newBreaker(name string, bs BreakerSettings) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    bs.Timeout,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if bs.Failures < 0 {
				return false
			}
			return counts.ConsecutiveFailures >= uint32(bs.Failures)
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, _ gobreaker.State, to gobreaker.State) {
			recordCircuitBreakerState(name, to)
		},
	})
}

// breakerSuccess treats a cancelled or timed-out caller as success. Those
// errors say nothing about the collaborator's health.
func breakerSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type guardedScorer struct {
	inner   Scorer
	breaker *gobreaker.CircuitBreaker
}

type scoreOutput struct {
	labels []int
	scores []float64
}

// GuardScorer wraps s in a circuit breaker. While the breaker is open calls
// fail fast with gobreaker.ErrOpenState.
func GuardScorer(s Scorer, bs BreakerSettings) Scorer {
	return &guardedScorer{inner: s, breaker: newBreaker("scorer", bs)}
}

func (g *guardedScorer) FitAndScore(ctx context.Context, m *FeatureMatrix) ([]int, []float64, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		labels, scores, err := g.inner.FitAndScore(ctx, m)
		return scoreOutput{labels, scores}, err
	})
	if err != nil {
		return nil, nil, err
	}
	res := out.(scoreOutput)
	return res.labels, res.scores, nil
}

func (g *guardedScorer) Name() string {
	return nameOf(g.inner, "scorer")
}

type guardedExplainer struct {
	inner   Explainer
	breaker *gobreaker.CircuitBreaker
}

// GuardExplainer wraps e in a circuit breaker. An open breaker surfaces as an
// explanation failure, never as a request failure.
func GuardExplainer(e Explainer, bs BreakerSettings) Explainer {
	return &guardedExplainer{inner: e, breaker: newBreaker("explainer", bs)}
}

func (g *guardedExplainer) Explain(ctx context.Context, m *FeatureMatrix, rows []int) ([][]Attribution, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Explain(ctx, m, rows)
	})
	if err != nil {
		return nil, err
	}
	return out.([][]Attribution), nil
}

func (g *guardedExplainer) Name() string {
	return nameOf(g.inner, "explainer")
}

type guardedReconstruction struct {
	inner   ReconstructionScorer
	breaker *gobreaker.CircuitBreaker
}

// GuardReconstructionScorer wraps r in a circuit breaker.
func GuardReconstructionScorer(r ReconstructionScorer, bs BreakerSettings) ReconstructionScorer {
	return &guardedReconstruction{inner: r, breaker: newBreaker("reconstruction_scorer", bs)}
}

func (g *guardedReconstruction) FitAndScore(ctx context.Context, t *CategoricalTable) ([]RowLoss, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.FitAndScore(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return out.([]RowLoss), nil
}

func (g *guardedReconstruction) Name() string {
	return nameOf(g.inner, "reconstruction_scorer")
}
