package core

// pipeline.go drives a numeric detection run:
//
//	ValidateFile -> DecodeTable -> RenameColumns -> SanitizeCells ->
//	CheckNumericColumns -> ApplyValuePolicy -> PrepareFeatures -> Scorer -> Explainer
//
// Every stage returns a classified *Error and the first failure ends the run.
// The Explainer is the only collaborator whose failure is absorbed: the run
// still succeeds, with no explanations and a diagnostic in the metadata.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvanomaly/internal/logging"
)

// AnomalyLabelThreshold is the decision threshold applied to Scorer labels.
// Labels above it are anomalous.
const AnomalyLabelThreshold = 0.5

const (
	MethodNumeric     = "numeric"
	MethodCategorical = "categorical"
)

// Options configures a Pipeline.
type Options struct {
	Limits         Limits
	Scorer         Scorer
	Explainer      Capability[Explainer]
	Reconstruction Capability[ReconstructionScorer]

	// DefaultPercentile is the categorical threshold percentile used when a
	// request does not supply one. Zero means DefaultThresholdPercentile.
	DefaultPercentile float64

	// Runs receives one record per run. Nil disables run history.
	Runs RunStore
}

// Pipeline runs detection requests. It holds no per-request state and is
// safe for concurrent use as long as its collaborators are.
type Pipeline struct {
	limits            Limits
	scorer            Scorer
	explainer         Capability[Explainer]
	reconstruction    Capability[ReconstructionScorer]
	defaultPercentile float64
	runs              RunStore
}

// NewPipeline validates opts and creates a Pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if err := opts.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}
	if opts.Scorer == nil {
		return nil, errors.New("scorer is required")
	}
	pct := opts.DefaultPercentile
	if pct == 0 {
		pct = DefaultThresholdPercentile
	}
	if err := validatePercentile(pct); err != nil {
		return nil, err
	}
	return &Pipeline{
		limits:            opts.Limits,
		scorer:            opts.Scorer,
		explainer:         opts.Explainer,
		reconstruction:    opts.Reconstruction,
		defaultPercentile: pct,
		runs:              opts.Runs,
	}, nil
}

// Limits returns the sanitization limits the pipeline enforces.
func (p *Pipeline) Limits() Limits {
	return p.limits
}

// ExplainabilityEnabled reports whether an Explainer is configured.
func (p *Pipeline) ExplainabilityEnabled() bool {
	return p.explainer.Available()
}

// CategoricalEnabled reports whether a ReconstructionScorer is configured.
func (p *Pipeline) CategoricalEnabled() bool {
	return p.reconstruction.Available()
}

// DefaultPercentile returns the categorical threshold percentile used when a
// request omits one.
func (p *Pipeline) DefaultPercentile() float64 {
	return p.defaultPercentile
}

// Runs returns the run history store, or nil.
func (p *Pipeline) Runs() RunStore {
	return p.runs
}

// DetectNumeric runs the numeric detection pipeline on one upload.
func (p *Pipeline) DetectNumeric(ctx context.Context, up RawUpload) (*NumericResponse, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := logging.WithFields(ctx, "run_id", runID, "method", MethodNumeric)

	resp, err := p.detectNumeric(ctx, up, logger)

	rec := RunRecord{
		ID:       runID,
		Method:   MethodNumeric,
		Filename: SanitizeFilename(up.Filename),
	}
	if resp != nil {
		resp.Metadata.RunID = runID
		md := resp.Metadata
		rec.OriginalRows = md.OriginalRows
		rec.CleanedRows = md.CleanedRows
		rec.RowsRemoved = md.RowsRemoved
		rec.AnomaliesFound = resp.AnomaliesFound
		rec.Explainability = string(md.Explainability)
		rec.DecodeConfig = md.DecodeConfig
		anomaliesFound.WithLabelValues(MethodNumeric).Add(float64(resp.AnomaliesFound))
		rowsRemoved.Add(float64(md.RowsRemoved))
		explanationOutcomes.WithLabelValues(string(md.Explainability)).Inc()
	}
	p.finishRun(ctx, logger, rec, start, err)
	return resp, err
}

func (p *Pipeline) detectNumeric(ctx context.Context, up RawUpload, logger *slog.Logger) (*NumericResponse, error) {
	vf, err := ValidateFile(up, p.limits)
	if err != nil {
		return nil, err
	}
	logger.Debug("upload validated", "filename", vf.Filename, "bytes", vf.Size)

	dec, err := DecodeTable(vf.Data, p.limits)
	if err != nil {
		return nil, err
	}
	decodeConfigUsed.WithLabelValues(dec.Config.Name).Inc()
	t := dec.Table
	logger.Debug("table decoded",
		"config", dec.Config.Name,
		"rows", t.NumRows(),
		"columns", t.NumColumns(),
		"skipped_rows", dec.SkippedRows,
	)

	if err := RenameColumns(t); err != nil {
		return nil, err
	}
	SanitizeCells(t)

	numeric, err := CheckNumericColumns(t, p.limits)
	if err != nil {
		return nil, err
	}

	originalRows := t.NumRows()
	removed, err := ApplyValuePolicy(t, numeric)
	if err != nil {
		return nil, err
	}

	m, dropped, err := PrepareFeatures(t)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		logger.Debug("dropped zero-variance columns", "columns", dropped)
	}

	if err := ctx.Err(); err != nil {
		return nil, wrapError(KindInternal, "Request cancelled", err)
	}

	labels, scores, err := p.scorer.FitAndScore(ctx, m)
	if err != nil {
		return nil, wrapError(KindScorerFailure, "Anomaly scoring failed", err)
	}
	if len(labels) != m.NumRows() || len(scores) != m.NumRows() {
		return nil, newError(KindScorerFailure, fmt.Sprintf(
			"Anomaly scorer returned %d labels and %d scores for %d rows", len(labels), len(scores), m.NumRows()))
	}

	var anomalous []int
	for i, label := range labels {
		if float64(label) > AnomalyLabelThreshold {
			anomalous = append(anomalous, i)
		}
	}

	outcome := p.explain(ctx, m, anomalous)
	if outcome.Status == ExplanationFailed {
		logger.Warn("explanation failed, returning results without explanations",
			"error", outcome.Diagnostic,
		)
	}

	results := make([]DetectionResult, len(anomalous))
	for k, row := range anomalous {
		results[k] = DetectionResult{
			RowIndex: row,
			Fields:   t.Row(row),
			Anomaly:  labels[row],
			Score:    finiteOrZero(scores[row]),
		}
		if outcome.Status == ExplanationProduced {
			results[k].Explanation = outcome.Explanations[k]
		}
	}

	return &NumericResponse{
		TotalRows:      t.NumRows(),
		AnomaliesFound: len(results),
		Anomalies:      results,
		Metadata: RunMetadata{
			Filename:             vf.Filename,
			OriginalRows:         originalRows,
			CleanedRows:          t.NumRows(),
			RowsRemoved:          removed,
			TotalColumns:         t.NumColumns(),
			NumericColumns:       len(numeric),
			NumericColumnNames:   numeric,
			ColumnNames:          t.Names(),
			FeaturesUsed:         m.Columns,
			DroppedZeroVariance:  nonNil(dropped),
			DecodeConfig:         dec.Config.Name,
			MalformedRowsSkipped: dec.SkippedRows,
			Scorer:               nameOf(p.scorer, "scorer"),
			Explainability:       outcome.Status,
			ExplainabilityError:  outcome.Diagnostic,
		},
	}, nil
}

// explain runs the Explainer inside a failure boundary. Errors and panics
// become ExplanationFailed; they never fail the run.
func (p *Pipeline) explain(ctx context.Context, m *FeatureMatrix, rows []int) (out ExplanationOutcome) {
	explainer, ok := p.explainer.Get()
	if !ok {
		return ExplanationOutcome{Status: ExplanationDisabled}
	}
	if len(rows) == 0 {
		return ExplanationOutcome{Status: ExplanationProduced}
	}

	defer func() {
		if r := recover(); r != nil {
			out = ExplanationOutcome{
				Status:     ExplanationFailed,
				Diagnostic: fmt.Sprintf("explainer panicked: %v", r),
			}
		}
	}()

	explanations, err := explainer.Explain(ctx, m, rows)
	if err != nil {
		return ExplanationOutcome{
			Status:     ExplanationFailed,
			Diagnostic: fmt.Sprintf("explanation failed: %v", err),
		}
	}
	if len(explanations) != len(rows) {
		return ExplanationOutcome{
			Status:     ExplanationFailed,
			Diagnostic: fmt.Sprintf("explainer returned %d explanations for %d rows", len(explanations), len(rows)),
		}
	}

	sorted := make([][]Attribution, len(explanations))
	for i, e := range explanations {
		sorted[i] = SortAttributions(e)
	}
	return ExplanationOutcome{Status: ExplanationProduced, Explanations: sorted}
}

// SortAttributions returns a copy of attrs ordered by descending absolute
// attribution. Ties keep their original feature order.
func SortAttributions(attrs []Attribution) []Attribution {
	out := make([]Attribution, len(attrs))
	copy(out, attrs)
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Attribution) > math.Abs(out[j].Attribution)
	})
	return out
}

// finishRun logs, records metrics and stores the run summary.
func (p *Pipeline) finishRun(ctx context.Context, logger *slog.Logger, rec RunRecord, start time.Time, err error) {
	elapsed := time.Since(start)
	recordRun(rec.Method, err, elapsed.Seconds())

	rec.Status = "ok"
	if err != nil {
		kind := KindOf(err)
		rec.Status = string(kind)
		if kind.IsClientError() || kind.IsResourceLimit() {
			logger.Warn("detection rejected", "kind", kind, "error", err)
		} else {
			logger.Error("detection failed", "kind", kind, "error", err)
		}
	} else {
		logger.Info("detection completed",
			"rows", rec.CleanedRows,
			"anomalies", rec.AnomaliesFound,
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	if p.runs == nil {
		return
	}
	rec.ClientIP = ClientIPFromContext(ctx)
	rec.UserAgent = UserAgentFromContext(ctx)
	rec.Duration = elapsed
	rec.CreatedAt = start.UTC()

	// Run history is best effort.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.runs.Record(storeCtx, rec); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
