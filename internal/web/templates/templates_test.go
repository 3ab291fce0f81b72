package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

func TestErrorAlert_Escapes(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorAlert("<b>bad</b>", "retry", "FILE003").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<b>bad</b>") {
		t.Errorf("message was not escaped: %s", out)
	}
	if !strings.Contains(out, "&lt;b&gt;bad&lt;/b&gt;") || !strings.Contains(out, "FILE003") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNumericResults(t *testing.T) {
	resp := &core.NumericResponse{
		TotalRows:      10,
		AnomaliesFound: 1,
		Anomalies: []core.DetectionResult{{
			RowIndex: 4,
			Fields:   core.Record{{Name: "name", Value: "'=cmd()"}, {Name: "amount", Value: 900.0}},
			Anomaly:  1,
			Score:    0.71,
			Explanation: []core.Attribution{
				{Feature: "amount", Value: 900, Attribution: 0.3},
			},
		}},
		Metadata: core.RunMetadata{
			ColumnNames:    []string{"name", "amount"},
			DecodeConfig:   "utf-8/strict",
			Explainability: core.ExplanationProduced,
		},
	}

	var buf bytes.Buffer
	if err := NumericResults(resp).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"1 anomalies in 10 rows", "<th>amount</th>", "<td>900</td>", "amount (0.3)", "&#39;=cmd()"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestNumericResults_ExplanationFailure(t *testing.T) {
	resp := &core.NumericResponse{
		Anomalies: []core.DetectionResult{{Fields: core.Record{}}},
		Metadata: core.RunMetadata{
			Explainability:      core.ExplanationFailed,
			ExplainabilityError: "explainer panicked: boom",
		},
	}
	var buf bytes.Buffer
	if err := NumericResults(resp).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "Explanations unavailable: explainer panicked: boom") {
		t.Errorf("missing diagnostic: %s", buf.String())
	}
}

func TestCategoricalResults(t *testing.T) {
	resp := &core.CategoricalResponse{
		TotalRows:      4,
		AnomaliesFound: 1,
		Anomalies: []core.CategoricalResult{{
			RowIndex:   3,
			Fields:     core.Record{{Name: "color", Value: "blue"}},
			Score:      6,
			PerFeature: []core.FeatureLoss{{Feature: "color", Loss: 4}},
		}},
		Metadata: core.CategoricalMetadata{Threshold: 5.7, ThresholdPercentile: 95},
	}
	var buf bytes.Buffer
	if err := CategoricalResults(resp).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"loss above 5.7", "color=blue", "color (4)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q: %s", want, buf.String())
		}
	}
}

func TestUploadPage(t *testing.T) {
	var buf bytes.Buffer
	err := UploadPage(PageData{
		Limits:             core.DefaultLimits(),
		CategoricalEnabled: true,
		DefaultPercentile:  95,
	}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`hx-post="/api/detect"`, `hx-post="/api/detect/categorical"`, `value="95"`, "Up to 200 MB", "explanations are disabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
