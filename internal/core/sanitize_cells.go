package core

import "strings"

// SanitizeCell neutralizes CSV/formula injection by prefixing a single quote to
// values that start with a formula trigger. Only the first character is inspected.
// The result starts with a quote, so sanitizing twice is a no-op.
func SanitizeCell(s string) string {
	if s == "" {
		return s
	}
	if strings.IndexByte(injectionPrefixes, s[0]) >= 0 {
		return "'" + s
	}
	return s
}

// SanitizeCells rewrites every string cell of every string column in place.
// Numeric and missing cells are left untouched.
func SanitizeCells(t *Table) {
	for ci := range t.Columns {
		col := &t.Columns[ci]
		if col.Type != ColumnString {
			continue
		}
		for i := range col.Cells {
			if col.Cells[i].Kind == CellString {
				col.Cells[i].Str = SanitizeCell(col.Cells[i].Str)
			}
		}
	}
}
