package core

import "gonum.org/v1/gonum/stat"

// PrepareFeatures builds the model-ready matrix from the numeric columns of t.
// Columns whose sample standard deviation is exactly zero are dropped and
// returned by name. A single-row column has an undefined deviation and is kept.
// t is left untouched and stays row-aligned with the matrix.
func PrepareFeatures(t *Table) (*FeatureMatrix, []string, error) {
	numeric := t.ColumnsOfType(ColumnNumeric)
	if len(numeric) == 0 {
		return nil, nil, newError(KindNoNumericColumns, "No valid numeric columns found after sanitization")
	}

	var (
		kept    []*Column
		dropped []string
	)
	for _, name := range numeric {
		col, _ := t.Column(name)
		values := make([]float64, len(col.Cells))
		for i, c := range col.Cells {
			values[i] = c.Num
		}
		if sampleStdDev(values) == 0 {
			dropped = append(dropped, name)
			continue
		}
		kept = append(kept, col)
	}

	if len(kept) == 0 {
		return nil, dropped, newError(KindAllZeroVariance, "All numeric columns have zero variance")
	}

	m := &FeatureMatrix{
		Columns: make([]string, len(kept)),
		Rows:    make([][]float64, t.NumRows()),
	}
	for j, col := range kept {
		m.Columns[j] = col.Name
	}
	for i := range m.Rows {
		row := make([]float64, len(kept))
		for j, col := range kept {
			row[j] = col.Cells[i].Num
		}
		m.Rows[i] = row
	}
	return m, dropped, nil
}

// sampleStdDev returns the n-1 standard deviation. Identical values report exactly zero.
func sampleStdDev(values []float64) float64 {
	if len(values) > 1 {
		constant := true
		for _, v := range values[1:] {
			if v != values[0] {
				constant = false
				break
			}
		}
		if constant {
			return 0
		}
	}
	return stat.StdDev(values, nil)
}
