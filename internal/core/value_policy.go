package core

import (
	"fmt"
	"math"
)

// CheckNumericColumns enforces the minimum numeric column count.
func CheckNumericColumns(t *Table, lim Limits) ([]string, error) {
	numeric := t.ColumnsOfType(ColumnNumeric)
	if len(numeric) < lim.MinNumericColumns {
		return nil, newError(KindNoNumericColumns, fmt.Sprintf(
			"At least %d numeric column(s) required for anomaly detection", lim.MinNumericColumns))
	}
	return numeric, nil
}

// ApplyValuePolicy turns ±Inf into missing in the numeric columns, then drops
// every row with a missing value in any of them. No imputation is performed.
// It returns original row count minus remaining row count.
func ApplyValuePolicy(t *Table, numeric []string) (int, error) {
	cols := make([]*Column, 0, len(numeric))
	for _, name := range numeric {
		col, ok := t.Column(name)
		if !ok {
			return 0, newError(KindInternal, fmt.Sprintf("numeric column %q not found", name))
		}
		cols = append(cols, col)
	}

	for _, col := range cols {
		for i, c := range col.Cells {
			if c.Kind == CellNumber && math.IsInf(c.Num, 0) {
				col.Cells[i] = Cell{Kind: CellMissing}
			}
		}
	}

	original := t.NumRows()
	keep := make([]bool, original)
	remaining := 0
	for i := range keep {
		keep[i] = true
		for _, col := range cols {
			if col.Cells[i].IsMissing() {
				keep[i] = false
				break
			}
		}
		if keep[i] {
			remaining++
		}
	}
	if remaining < original {
		t.keepRows(keep)
	}

	if remaining == 0 {
		return original, newError(KindAllRowsInvalid, "All rows were invalid after data cleaning")
	}
	return original - remaining, nil
}
