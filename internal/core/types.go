package core

import (
	"io"
	"math"
)

// RawUpload is an untrusted upload as received at ingress.
// Body is consumed once by ValidateFile.
type RawUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64 // Declared size, informational only (-1 if unknown)
}

// CellKind is the type of a single decoded cell.
type CellKind int

const (
	CellMissing CellKind = iota
	CellNumber
	CellString
)

// Cell is a single typed table value.
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
}

// IsMissing reports whether the cell holds no value.
func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing
}

// Value returns the cell as a JSON-friendly value: float64, string, or nil.
// Non-finite numbers are reported as nil since JSON cannot carry them.
func (c Cell) Value() any {
	switch c.Kind {
	case CellNumber:
		if math.IsInf(c.Num, 0) || math.IsNaN(c.Num) {
			return nil
		}
		return c.Num
	case CellString:
		return c.Str
	default:
		return nil
	}
}

// ColumnType is the inferred type of a whole column.
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnNumeric
)

func (t ColumnType) String() string {
	if t == ColumnNumeric {
		return "numeric"
	}
	return "string"
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Type  ColumnType
	Cells []Cell
}

// Table is an ordered set of equal-length columns.
// A Table is owned by a single request and never shared.
type Table struct {
	Columns []Column
}

// NumRows returns the row count (0 for a table without columns).
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnsOfType returns the names of columns with the given type, in table order.
func (t *Table) ColumnsOfType(ct ColumnType) []string {
	var names []string
	for _, c := range t.Columns {
		if c.Type == ct {
			names = append(names, c.Name)
		}
	}
	return names
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns row i as an ordered record of column name to value.
func (t *Table) Row(i int) Record {
	rec := make(Record, len(t.Columns))
	for j, c := range t.Columns {
		rec[j] = Field{Name: c.Name, Value: c.Cells[i].Value()}
	}
	return rec
}

// keepRows retains only rows where keep[i] is true.
func (t *Table) keepRows(keep []bool) {
	for ci := range t.Columns {
		cells := t.Columns[ci].Cells
		out := cells[:0]
		for i, c := range cells {
			if keep[i] {
				out = append(out, c)
			}
		}
		t.Columns[ci].Cells = out
	}
}

// FeatureMatrix is the model-ready numeric view of a Table.
// Rows[i] corresponds to row i of the Table it was prepared from.
type FeatureMatrix struct {
	Columns []string
	Rows    [][]float64
}

// NumRows returns the number of samples.
func (m *FeatureMatrix) NumRows() int {
	return len(m.Rows)
}

// NumFeatures returns the number of features.
func (m *FeatureMatrix) NumFeatures() int {
	return len(m.Columns)
}

// Column returns a copy of feature j across all rows.
func (m *FeatureMatrix) Column(j int) []float64 {
	col := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		col[i] = row[j]
	}
	return col
}

// CategoricalTable is the string-column view handed to a ReconstructionScorer.
// Missing cells are encoded as MissingCategory.
type CategoricalTable struct {
	Columns []string
	Rows    [][]string
}

// MissingCategory stands in for missing categorical values.
const MissingCategory = "__NA__"
