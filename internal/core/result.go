package core

// result.go defines the response shapes assembled by the pipeline.
// Row fields are nested under "fields" so user column names can never
// collide with result keys such as "score" or "anomaly".

// ExplanationStatus says what happened to the optional explanation step.
type ExplanationStatus string

const (
	ExplanationProduced ExplanationStatus = "produced"
	ExplanationDisabled ExplanationStatus = "disabled"
	ExplanationFailed   ExplanationStatus = "failed"
)

// ExplanationOutcome is the result of the explanation step. Explanations is
// only set when Status is ExplanationProduced and Diagnostic only when it is
// ExplanationFailed. A configured explainer with no anomalous rows to explain
// reports ExplanationProduced with no explanations.
type ExplanationOutcome struct {
	Status       ExplanationStatus
	Explanations [][]Attribution
	Diagnostic   string
}

// DetectionResult is one anomalous row.
type DetectionResult struct {
	RowIndex    int           `json:"row_index"`
	Fields      Record        `json:"fields"`
	Anomaly     int           `json:"anomaly"`
	Score       float64       `json:"score"`
	Explanation []Attribution `json:"explanation"` // nil when no explanation is available
}

// RunMetadata describes how a numeric detection run processed its input.
type RunMetadata struct {
	RunID                string            `json:"run_id,omitempty"`
	Filename             string            `json:"filename"`
	OriginalRows         int               `json:"original_rows"`
	CleanedRows          int               `json:"cleaned_rows"`
	RowsRemoved          int               `json:"rows_removed"`
	TotalColumns         int               `json:"total_columns"`
	NumericColumns       int               `json:"numeric_columns"`
	NumericColumnNames   []string          `json:"numeric_column_names"`
	ColumnNames          []string          `json:"column_names"`
	FeaturesUsed         []string          `json:"features_used"`
	DroppedZeroVariance  []string          `json:"dropped_zero_variance"`
	DecodeConfig         string            `json:"decode_config"`
	MalformedRowsSkipped int               `json:"malformed_rows_skipped"`
	Scorer               string            `json:"scorer"`
	Explainability       ExplanationStatus `json:"explainability"`
	ExplainabilityError  string            `json:"explainability_error,omitempty"`
}

// NumericResponse is the result of a numeric detection run.
type NumericResponse struct {
	TotalRows      int               `json:"total_rows"`
	AnomaliesFound int               `json:"anomalies_found"`
	Anomalies      []DetectionResult `json:"anomalies"`
	Metadata       RunMetadata       `json:"metadata"`
}

// FeatureLoss is one column's share of a row's reconstruction loss.
type FeatureLoss struct {
	Feature string  `json:"feature"`
	Loss    float64 `json:"loss"`
}

// CategoricalResult is one anomalous row of a categorical run.
type CategoricalResult struct {
	RowIndex   int           `json:"row_index"`
	Fields     Record        `json:"fields"`
	Score      float64       `json:"score"`
	PerFeature []FeatureLoss `json:"per_feature"`
}

// CategoricalMetadata describes a categorical detection run.
type CategoricalMetadata struct {
	RunID                string   `json:"run_id,omitempty"`
	Filename             string   `json:"filename"`
	Method               string   `json:"method"`
	Threshold            float64  `json:"threshold"`
	ThresholdPercentile  float64  `json:"threshold_percentile"`
	CategoricalColumns   []string `json:"categorical_columns"`
	OriginalRows         int      `json:"original_rows"`
	TotalColumns         int      `json:"total_columns"`
	DecodeConfig         string   `json:"decode_config"`
	MalformedRowsSkipped int      `json:"malformed_rows_skipped"`
}

// CategoricalResponse is the result of a categorical detection run.
type CategoricalResponse struct {
	TotalRows      int                 `json:"total_rows"`
	AnomaliesFound int                 `json:"anomalies_found"`
	Anomalies      []CategoricalResult `json:"anomalies"`
	Metadata       CategoricalMetadata `json:"metadata"`
}
