package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DETECT_TREES", "20")
	t.Setenv("DETECT_EXPLAINABILITY", "false")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func numericFile(t *testing.T) string {
	var b strings.Builder
	b.WriteString("id,amount,qty\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%d,%d,%d\n", i, 100+i%5, 1+i%3)
	}
	b.WriteString("40,100000,500\n")
	return writeFile(t, "orders.csv", b.String())
}

func TestDetectNumeric(t *testing.T) {
	out, err := execute(t, "detect", "numeric", numericFile(t))
	require.NoError(t, err)

	var resp core.NumericResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 41, resp.TotalRows)
	assert.Equal(t, "orders.csv", resp.Metadata.Filename)
	assert.Equal(t, core.ExplanationDisabled, resp.Metadata.Explainability)
	assert.Equal(t, "isolation_forest", resp.Metadata.Scorer)
	assert.Equal(t, len(resp.Anomalies), resp.AnomaliesFound)
}

func TestDetectCategorical(t *testing.T) {
	path := writeFile(t, "colors.csv", "color,size\nred,s\nred,s\nred,m\nblue,s\nred,m\n")

	out, err := execute(t, "--compact", "detect", "categorical", "--percentile", "90", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"), "compact output is one line")

	var resp core.CategoricalResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 90.0, resp.Metadata.ThresholdPercentile)
	require.Len(t, resp.Anomalies, 1)
	assert.Equal(t, 3, resp.Anomalies[0].RowIndex)
}

func TestDetect_ClassifiedErrors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want core.Kind
	}{
		{
			name: "wrong extension",
			args: func(t *testing.T) []string {
				return []string{"detect", "numeric", writeFile(t, "orders.txt", "a\n1\n")}
			},
			want: core.KindInvalidFileType,
		},
		{
			name: "no numeric columns",
			args: func(t *testing.T) []string {
				return []string{"detect", "numeric", writeFile(t, "names.csv", "name\nann\n")}
			},
			want: core.KindNoNumericColumns,
		},
		{
			name: "percentile out of range",
			args: func(t *testing.T) []string {
				return []string{"detect", "categorical", "-p", "101", writeFile(t, "c.csv", "c\nx\n")}
			},
			want: core.KindInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args(t)...)
			require.Error(t, err)
			assert.Equal(t, tt.want, core.KindOf(err))
		})
	}
}

func TestDetect_MissingFile(t *testing.T) {
	_, err := execute(t, "detect", "numeric", filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDetect_RequiresOneFile(t *testing.T) {
	_, err := execute(t, "detect", "numeric")
	assert.Error(t, err)
}

func TestLimits(t *testing.T) {
	t.Setenv("LIMIT_MAX_ROWS", "1234")

	out, err := execute(t, "limits")
	require.NoError(t, err)

	var lim core.Limits
	require.NoError(t, json.Unmarshal([]byte(out), &lim))
	assert.Equal(t, 1234, lim.MaxRows)
}
