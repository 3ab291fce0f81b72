// Package templates renders the HTML surface of the detection service.
//
// Components are templ.Component values so handlers render them the same way
// whether the request is a full page load or an HTMX swap.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

// e escapes text for HTML output.
func e(s string) string {
	return templ.EscapeString(s)
}

func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// PageData configures the upload page.
type PageData struct {
	Limits                core.Limits
	ExplainabilityEnabled bool
	CategoricalEnabled    bool
	DefaultPercentile     float64
}

// UploadPage is the full upload form page. Results and errors are swapped
// into #results by HTMX.
func UploadPage(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<title>CSV Anomaly Detection</title>`,
			`<script src="https://unpkg.com/htmx.org@1.9.12"></script>`,
			`</head><body><main class="container">`,
			`<h1>CSV Anomaly Detection</h1>`,
			`<p class="limits">Up to `, strconv.FormatInt(d.Limits.MaxFileSizeMB(), 10), ` MB, `,
			strconv.Itoa(d.Limits.MaxRows), ` rows and `, strconv.Itoa(d.Limits.MaxColumns), ` columns.</p>`,
		); err != nil {
			return err
		}

		if err := uploadForm("/api/detect", "Detect numeric anomalies", "").Render(ctx, w); err != nil {
			return err
		}
		if d.CategoricalEnabled {
			extra := fmt.Sprintf(
				`<label>Threshold percentile <input type="number" name="percentile" min="0" max="100" step="any" value="%s"></label>`,
				e(strconv.FormatFloat(d.DefaultPercentile, 'f', -1, 64)))
			if err := uploadForm("/api/detect/categorical", "Detect categorical anomalies", extra).Render(ctx, w); err != nil {
				return err
			}
		}
		if !d.ExplainabilityEnabled {
			if err := write(w, `<p class="note">Per-feature explanations are disabled.</p>`); err != nil {
				return err
			}
		}

		return write(w, `<section id="results"></section></main></body></html>`)
	})
}

func uploadForm(action, label, extra string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w,
			`<form hx-post="`, e(action), `" hx-encoding="multipart/form-data" hx-target="#results">`,
			`<input type="file" name="file" accept=".csv" required>`,
			extra,
			`<button type="submit">`, e(label), `</button></form>`,
		)
	})
}

// ErrorAlert renders an HTMX-compatible error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		parts := []string{`<div class="alert alert-error" role="alert"><strong>`, e(message), `</strong>`}
		if action != "" {
			parts = append(parts, `<p>`, e(action), `</p>`)
		}
		parts = append(parts, `<small>Code: `, e(code), `</small></div>`)
		return write(w, parts...)
	})
}

// NumericResults renders the anomalous rows of a numeric run.
func NumericResults(resp *core.NumericResponse) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		md := resp.Metadata
		if err := write(w,
			`<div class="results"><p>`, strconv.Itoa(resp.AnomaliesFound), ` anomalies in `,
			strconv.Itoa(resp.TotalRows), ` rows (`, strconv.Itoa(md.RowsRemoved), ` removed, decoded as `,
			e(md.DecodeConfig), `).</p>`,
		); err != nil {
			return err
		}
		if md.Explainability == core.ExplanationFailed {
			if err := write(w, `<p class="warning">Explanations unavailable: `, e(md.ExplainabilityError), `</p>`); err != nil {
				return err
			}
		}

		if err := write(w, `<table><thead><tr><th>Row</th><th>Score</th>`); err != nil {
			return err
		}
		for _, name := range md.ColumnNames {
			if err := write(w, `<th>`, e(name), `</th>`); err != nil {
				return err
			}
		}
		if err := write(w, `<th>Top features</th></tr></thead><tbody>`); err != nil {
			return err
		}

		for _, a := range resp.Anomalies {
			if err := write(w, `<tr><td>`, strconv.Itoa(a.RowIndex), `</td><td>`, formatFloat(a.Score), `</td>`); err != nil {
				return err
			}
			if err := writeFields(w, a.Fields); err != nil {
				return err
			}
			if err := write(w, `<td>`, topAttributions(a.Explanation, 3), `</td></tr>`); err != nil {
				return err
			}
		}
		return write(w, `</tbody></table></div>`)
	})
}

// CategoricalResults renders the anomalous rows of a categorical run.
func CategoricalResults(resp *core.CategoricalResponse) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		md := resp.Metadata
		if err := write(w,
			`<div class="results"><p>`, strconv.Itoa(resp.AnomaliesFound), ` anomalies in `,
			strconv.Itoa(resp.TotalRows), ` rows (loss above `, formatFloat(md.Threshold),
			`, percentile `, formatFloat(md.ThresholdPercentile), `).</p>`,
			`<table><thead><tr><th>Row</th><th>Loss</th><th>Values</th><th>Largest contributions</th></tr></thead><tbody>`,
		); err != nil {
			return err
		}
		for _, a := range resp.Anomalies {
			if err := write(w, `<tr><td>`, strconv.Itoa(a.RowIndex), `</td><td>`, formatFloat(a.Score), `</td><td>`); err != nil {
				return err
			}
			for i, f := range a.Fields {
				sep := ""
				if i > 0 {
					sep = ", "
				}
				if err := write(w, sep, e(f.Name), `=`, e(formatValue(f.Value))); err != nil {
					return err
				}
			}
			if err := write(w, `</td><td>`, topLosses(a.PerFeature, 3), `</td></tr>`); err != nil {
				return err
			}
		}
		return write(w, `</tbody></table></div>`)
	})
}

func writeFields(w io.Writer, rec core.Record) error {
	for _, f := range rec {
		if err := write(w, `<td>`, e(formatValue(f.Value)), `</td>`); err != nil {
			return err
		}
	}
	return nil
}

func topAttributions(attrs []core.Attribution, n int) string {
	if attrs == nil {
		return "-"
	}
	out := ""
	for i, a := range attrs {
		if i == n {
			break
		}
		if i > 0 {
			out += ", "
		}
		out += e(a.Feature) + " (" + formatFloat(a.Attribution) + ")"
	}
	return out
}

func topLosses(losses []core.FeatureLoss, n int) string {
	out := ""
	for i, l := range losses {
		if i == n {
			break
		}
		if i > 0 {
			out += ", "
		}
		out += e(l.Feature) + " (" + formatFloat(l.Loss) + ")"
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
