package core

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxColumnNameLength is the rune limit for a sanitized column name.
const MaxColumnNameLength = 100

// unsafeNameChars matches anything outside word characters, whitespace and hyphen.
var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// injectionPrefixes are the leading characters spreadsheets treat as a formula.
const injectionPrefixes = "=+-@\t\r"

// SanitizeColumnName normalizes one raw header value. index is the column position,
// used to name columns that sanitize to nothing.
func SanitizeColumnName(raw string, index int) string {
	name := strings.TrimSpace(raw)
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, injectionPrefixes)

	if name == "" {
		name = fmt.Sprintf("column_%d", index)
	}

	if runes := []rune(name); len(runes) > MaxColumnNameLength {
		name = string(runes[:MaxColumnNameLength])
	}
	return name
}

// SanitizeColumnNames maps raw header values to sanitized names, 1:1 and in order.
// Two columns that end up with the same name fail with KindDuplicateColumns
// rather than being renamed.
func SanitizeColumnNames(raw []string) ([]string, error) {
	names := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, r := range raw {
		name := SanitizeColumnName(r, i)
		if prev, dup := seen[name]; dup {
			return nil, newError(KindDuplicateColumns, fmt.Sprintf(
				"Duplicate column names detected after sanitization: columns %d and %d are both %q", prev+1, i+1, name))
		}
		seen[name] = i
		names[i] = name
	}
	return names, nil
}

// RenameColumns applies sanitized names to the table.
func RenameColumns(t *Table) error {
	names, err := SanitizeColumnNames(t.Names())
	if err != nil {
		return err
	}
	for i := range t.Columns {
		t.Columns[i].Name = names[i]
	}
	return nil
}
