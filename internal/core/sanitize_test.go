package core

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeColumnName(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		index int
		want  string
	}{
		{"plain", "amount", 0, "amount"},
		{"trimmed", "  amount  ", 0, "amount"},
		{"formula trigger replaced", "=SUM(A1)", 0, "_SUM_A1_"},
		{"leading hyphen stripped", "-total", 0, "total"},
		{"repeated triggers stripped", "--\t-x", 0, "x"},
		{"interior hyphen kept", "net-amount", 0, "net-amount"},
		{"punctuation replaced", "price ($)", 0, "price ___"},
		{"unicode letters kept", "größe", 0, "größe"},
		{"empty becomes positional", "", 3, "column_3"},
		{"only triggers becomes positional", "---", 7, "column_7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeColumnName(tt.raw, tt.index); got != tt.want {
				t.Errorf("SanitizeColumnName(%q, %d) = %q, want %q", tt.raw, tt.index, got, tt.want)
			}
		})
	}
}

func TestSanitizeColumnName_Truncates(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := SanitizeColumnName(long, 0)
	if n := utf8.RuneCountInString(got); n != MaxColumnNameLength {
		t.Errorf("rune count = %d, want %d", n, MaxColumnNameLength)
	}
}

func TestSanitizeColumnNames_Duplicates(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
	}{
		{"raw duplicates", []string{"a", "b", "a"}},
		{"collide after sanitizing", []string{"a$", "a#"}},
		{"collide after stripping", []string{"-x", "x"}},
		{"synthesized name collides", []string{"column_1", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeColumnNames(tt.raw)
			if KindOf(err) != KindDuplicateColumns {
				t.Errorf("expected DuplicateColumns, got %v", err)
			}
		})
	}
}

// Every sanitized list is unique, non-empty, and drawn from the restricted set.
func TestSanitizeColumnNames_Invariants(t *testing.T) {
	allowed := regexp.MustCompile(`^[\p{L}\p{N}_\s-]+$`)
	inputs := [][]string{
		{"id", "=cmd|calc", "@user", "+1", "\tname", "\rvalue"},
		{"", " ", "!!", "a b", "日本"},
		{"x", strings.Repeat("y", 300), "--z"},
	}

	for _, raw := range inputs {
		names, err := SanitizeColumnNames(raw)
		if err != nil {
			t.Fatalf("SanitizeColumnNames(%q) error: %v", raw, err)
		}
		if len(names) != len(raw) {
			t.Fatalf("got %d names for %d inputs", len(names), len(raw))
		}
		seen := map[string]bool{}
		for _, n := range names {
			if n == "" {
				t.Errorf("empty name in %q", names)
			}
			if !allowed.MatchString(n) {
				t.Errorf("name %q has characters outside the allowed set", n)
			}
			if strings.IndexAny(n[:1], injectionPrefixes) >= 0 {
				t.Errorf("name %q starts with a formula trigger", n)
			}
			if utf8.RuneCountInString(n) > MaxColumnNameLength {
				t.Errorf("name %q is too long", n)
			}
			if seen[n] {
				t.Errorf("duplicate name %q", n)
			}
			seen[n] = true
		}
	}
}

func TestSanitizeCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"=SUM(A1:A10)", "'=SUM(A1:A10)"},
		{"+cmd|calc", "'+cmd|calc"},
		{"-2+3", "'-2+3"},
		{"@import", "'@import"},
		{"\tx", "'\tx"},
		{"\rx", "'\rx"},
		{"", ""},
		{"hello", "hello"},
		{"a=b", "a=b"},
		{" =x", " =x"},
	}

	for _, tt := range tests {
		got := SanitizeCell(tt.in)
		if got != tt.want {
			t.Errorf("SanitizeCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := SanitizeCell(got); again != got {
			t.Errorf("SanitizeCell not idempotent: %q -> %q", got, again)
		}
	}
}

func TestSanitizeCells_OnlyStringColumns(t *testing.T) {
	res, err := DecodeTable([]byte("name,formula,value\nJohn,=SUM(A1:A10),100\nJane,+cmd|calc,200"), DefaultLimits())
	if err != nil {
		t.Fatalf("DecodeTable: %v", err)
	}
	tbl := res.Table
	if err := RenameColumns(tbl); err != nil {
		t.Fatalf("RenameColumns: %v", err)
	}
	SanitizeCells(tbl)

	formula, _ := tbl.Column("formula")
	if formula.Cells[0].Str != "'=SUM(A1:A10)" {
		t.Errorf("formula[0] = %q", formula.Cells[0].Str)
	}
	if formula.Cells[1].Str != "'+cmd|calc" {
		t.Errorf("formula[1] = %q", formula.Cells[1].Str)
	}

	value, _ := tbl.Column("value")
	if value.Type != ColumnNumeric || value.Cells[0].Num != 100 {
		t.Errorf("numeric column changed: %+v", value.Cells[0])
	}

	name, _ := tbl.Column("name")
	if name.Cells[0].Str != "John" {
		t.Errorf("name[0] = %q", name.Cells[0].Str)
	}
}
