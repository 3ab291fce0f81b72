package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvanomaly/internal/logging"
)

// DefaultThresholdPercentile is the loss percentile above which a row is anomalous.
const DefaultThresholdPercentile = 95.0

func validatePercentile(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return newError(KindInvalidParameter, fmt.Sprintf("Percentile must be between 0 and 100, got %v", p))
	}
	return nil
}

// DetectCategorical runs the categorical detection path on one upload. A
// percentile of zero uses the pipeline default.
func (p *Pipeline) DetectCategorical(ctx context.Context, up RawUpload, percentile float64) (*CategoricalResponse, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := logging.WithFields(ctx, "run_id", runID, "method", MethodCategorical)

	resp, err := p.detectCategorical(ctx, up, percentile, logger)

	rec := RunRecord{
		ID:       runID,
		Method:   MethodCategorical,
		Filename: SanitizeFilename(up.Filename),
	}
	if resp != nil {
		resp.Metadata.RunID = runID
		rec.OriginalRows = resp.Metadata.OriginalRows
		rec.CleanedRows = resp.TotalRows
		rec.AnomaliesFound = resp.AnomaliesFound
		rec.DecodeConfig = resp.Metadata.DecodeConfig
		anomaliesFound.WithLabelValues(MethodCategorical).Add(float64(resp.AnomaliesFound))
	}
	p.finishRun(ctx, logger, rec, start, err)
	return resp, err
}

func (p *Pipeline) detectCategorical(ctx context.Context, up RawUpload, percentile float64, logger *slog.Logger) (*CategoricalResponse, error) {
	if percentile == 0 {
		percentile = p.defaultPercentile
	}
	if err := validatePercentile(percentile); err != nil {
		return nil, err
	}

	scorer, ok := p.reconstruction.Get()
	if !ok {
		return nil, newError(KindReconstructionScorerFailure, "Categorical detection is not configured")
	}

	vf, err := ValidateFile(up, p.limits)
	if err != nil {
		return nil, err
	}

	dec, err := DecodeTable(vf.Data, p.limits)
	if err != nil {
		return nil, err
	}
	decodeConfigUsed.WithLabelValues(dec.Config.Name).Inc()
	t := dec.Table

	if err := RenameColumns(t); err != nil {
		return nil, err
	}
	SanitizeCells(t)

	catTable, err := CategoricalView(t)
	if err != nil {
		return nil, err
	}
	logger.Debug("categorical table prepared",
		"rows", len(catTable.Rows),
		"columns", catTable.Columns,
	)

	if err := ctx.Err(); err != nil {
		return nil, wrapError(KindInternal, "Request cancelled", err)
	}

	losses, err := scorer.FitAndScore(ctx, catTable)
	if err != nil {
		return nil, wrapError(KindReconstructionScorerFailure, "Categorical reconstruction failed", err)
	}
	if len(losses) != len(catTable.Rows) {
		return nil, newError(KindReconstructionScorerFailure, fmt.Sprintf(
			"Reconstruction scorer returned %d losses for %d rows", len(losses), len(catTable.Rows)))
	}

	totals := make([]float64, len(losses))
	for i, l := range losses {
		if len(l.PerFeature) != len(catTable.Columns) {
			return nil, newError(KindReconstructionScorerFailure, fmt.Sprintf(
				"Reconstruction scorer returned %d feature losses for %d columns", len(l.PerFeature), len(catTable.Columns)))
		}
		totals[i] = l.Total
	}

	threshold := Percentile(totals, percentile)

	results := make([]CategoricalResult, 0)
	for i, l := range losses {
		if !(l.Total > threshold) {
			continue
		}
		per := make([]FeatureLoss, len(catTable.Columns))
		for j, col := range catTable.Columns {
			per[j] = FeatureLoss{Feature: col, Loss: l.PerFeature[j]}
		}
		sort.SliceStable(per, func(a, b int) bool {
			return per[a].Loss > per[b].Loss
		})
		results = append(results, CategoricalResult{
			RowIndex:   i,
			Fields:     t.Row(i),
			Score:      l.Total,
			PerFeature: per,
		})
	}

	return &CategoricalResponse{
		TotalRows:      t.NumRows(),
		AnomaliesFound: len(results),
		Anomalies:      results,
		Metadata: CategoricalMetadata{
			Filename:             vf.Filename,
			Method:               nameOf(scorer, "categorical_reconstruction"),
			Threshold:            threshold,
			ThresholdPercentile:  percentile,
			CategoricalColumns:   catTable.Columns,
			OriginalRows:         t.NumRows(),
			TotalColumns:         t.NumColumns(),
			DecodeConfig:         dec.Config.Name,
			MalformedRowsSkipped: dec.SkippedRows,
		},
	}, nil
}

// CategoricalView selects the string columns of t. Missing cells become MissingCategory.
func CategoricalView(t *Table) (*CategoricalTable, error) {
	var cols []*Column
	for i := range t.Columns {
		if t.Columns[i].Type == ColumnString {
			cols = append(cols, &t.Columns[i])
		}
	}
	if len(cols) == 0 {
		return nil, newError(KindNoCategoricalColumns, "No categorical columns found")
	}

	ct := &CategoricalTable{
		Columns: make([]string, len(cols)),
		Rows:    make([][]string, t.NumRows()),
	}
	for j, c := range cols {
		ct.Columns[j] = c.Name
	}
	for i := range ct.Rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			if c.Cells[i].IsMissing() {
				row[j] = MissingCategory
			} else {
				row[j] = c.Cells[i].Str
			}
		}
		ct.Rows[i] = row
	}
	return ct, nil
}

// Percentile returns the p-th percentile of values using linear interpolation
// between closest ranks, matching numpy's default method. values is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
