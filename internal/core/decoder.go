package core

// decoder.go turns validated bytes into a typed Table.
//
// Decoding walks DecodeConfigs in order, most-likely-correct first. Every
// attempt reads from its own bytes.Reader over the shared buffer, so a failed
// attempt never affects the next one. The first success wins.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is a supported source character encoding.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin-1"
)

// RowMode controls how rows with more fields than the header are handled.
// Short rows are always padded with missing cells.
type RowMode int

const (
	RowsStrict        RowMode = iota // Fail the attempt
	RowsSkipMalformed                // Drop the row and count it
	RowsPadTruncate                  // Keep the row, truncated to the header width
)

// DecodeConfig is one decode attempt: encoding x malformed-row tolerance x parser strictness.
type DecodeConfig struct {
	Name       string
	Encoding   Encoding
	Rows       RowMode
	LazyQuotes bool
}

// DecodeConfigs is the ordered fallback list tried by DecodeTable.
var DecodeConfigs = []DecodeConfig{
	{Name: "utf-8/strict", Encoding: EncodingUTF8, Rows: RowsStrict},
	{Name: "utf-8/skip-malformed", Encoding: EncodingUTF8, Rows: RowsSkipMalformed},
	{Name: "utf-8/lenient", Encoding: EncodingUTF8, Rows: RowsSkipMalformed, LazyQuotes: true},
	{Name: "latin-1/skip-malformed", Encoding: EncodingLatin1, Rows: RowsSkipMalformed},
	{Name: "latin-1/lenient", Encoding: EncodingLatin1, Rows: RowsPadTruncate, LazyQuotes: true},
}

// DecodeResult is a decoded table plus how it was decoded.
type DecodeResult struct {
	Table       *Table
	Config      DecodeConfig
	SkippedRows int // Malformed rows dropped by the winning config
}

var (
	errNoHeader    = errors.New("no columns to parse from file")
	errNoDataRows  = errors.New("no data rows")
	errInvalidUTF8 = errors.New("invalid utf-8 byte sequence")

	errTooManyColumns = errors.New("header exceeds the column limit")
	errTooManyRows    = errors.New("data exceeds the row limit")
)

// DecodeTable decodes data with the first DecodeConfig that succeeds. The
// column limit is checked as soon as the header is read and the row limit
// while rows are read, so oversized tables are never materialized.
func DecodeTable(data []byte, lim Limits) (*DecodeResult, error) {
	validUTF8 := utf8.Valid(data)

	var lastErr error
	for _, cfg := range DecodeConfigs {
		if cfg.Encoding == EncodingUTF8 && !validUTF8 {
			lastErr = fmt.Errorf("%s: %w", cfg.Name, errInvalidUTF8)
			continue
		}

		header, rows, skipped, err := decodeRecords(bytes.NewReader(data), cfg, lim)
		switch {
		case errors.Is(err, errNoHeader):
			return nil, newError(KindEmptyData, "CSV file is empty")
		case errors.Is(err, errNoDataRows):
			return nil, newError(KindEmptyData, "CSV contains no data rows")
		case errors.Is(err, errTooManyColumns):
			return nil, newError(KindTooManyColumns, fmt.Sprintf("Too many columns. Maximum: %d", lim.MaxColumns))
		case errors.Is(err, errTooManyRows):
			return nil, newError(KindTooManyRows, fmt.Sprintf("Too many rows. Maximum: %d", lim.MaxRows))
		case err != nil:
			lastErr = fmt.Errorf("%s: %w", cfg.Name, err)
			continue
		}

		return &DecodeResult{
			Table:       buildTable(header, rows),
			Config:      cfg,
			SkippedRows: skipped,
		}, nil
	}

	return nil, wrapError(KindParseFailure, fmt.Sprintf("Failed to parse CSV file: %v", lastErr), lastErr)
}

// decodeRecords reads the header and data rows for a single config. UTF-8
// input must already be known to be valid.
func decodeRecords(src io.Reader, cfg DecodeConfig, lim Limits) ([]string, [][]string, int, error) {
	var reader io.Reader
	switch cfg.Encoding {
	case EncodingUTF8:
		reader = NewBOMSkippingReader(src)
	case EncodingLatin1:
		reader = charmap.ISO8859_1.NewDecoder().Reader(src)
	default:
		return nil, nil, 0, fmt.Errorf("unsupported encoding %q", cfg.Encoding)
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.LazyQuotes = cfg.LazyQuotes

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, 0, errNoHeader
	}
	if err != nil {
		return nil, nil, 0, err
	}
	if len(header) == 0 {
		return nil, nil, 0, errNoHeader
	}
	if len(header) > lim.MaxColumns {
		return nil, nil, 0, errTooManyColumns
	}

	var rows [][]string
	skipped := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && cfg.Rows != RowsStrict {
				skipped++
				continue
			}
			return nil, nil, 0, err
		}

		switch {
		case len(rec) < len(header):
			padded := make([]string, len(header))
			copy(padded, rec)
			rec = padded
		case len(rec) > len(header):
			line, _ := r.FieldPos(0)
			switch cfg.Rows {
			case RowsStrict:
				return nil, nil, 0, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), line, len(rec))
			case RowsSkipMalformed:
				skipped++
				continue
			case RowsPadTruncate:
				rec = rec[:len(header)]
			}
		}
		if len(rows) == lim.MaxRows {
			return nil, nil, 0, errTooManyRows
		}
		rows = append(rows, rec)
	}

	if len(rows) == 0 {
		if skipped > 0 {
			return nil, nil, 0, fmt.Errorf("all %d data rows are malformed", skipped)
		}
		return nil, nil, 0, errNoDataRows
	}
	return header, rows, skipped, nil
}

// numericRegex validates that a string is a plain decimal or scientific number.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// missingTokens are cell values read as missing, matching common spreadsheet and dataframe exports.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {},
	"#N/A": {}, "None": {}, "n/a": {}, "-NaN": {}, "-nan": {}, "<NA>": {}, "#NA": {},
	"1.#IND": {}, "1.#QNAN": {}, "-1.#IND": {}, "-1.#QNAN": {}, "#N/A N/A": {},
}

// IsMissingToken reports whether a raw cell is read as missing.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// parseNumber parses a raw cell as a number, accepting inf/infinity tokens.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if numericRegex.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Out-of-range literals parse to ±Inf with ErrRange; keep them as numbers.
			var nerr *strconv.NumError
			if errors.As(err, &nerr) && errors.Is(nerr.Err, strconv.ErrRange) {
				return f, true
			}
			return 0, false
		}
		return f, true
	}

	sign := 1.0
	body := s
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		if body[0] == '-' {
			sign = -1
		}
		body = body[1:]
	}
	switch strings.ToLower(body) {
	case "inf", "infinity":
		return math.Inf(int(sign)), true
	}
	return 0, false
}

// buildTable types each column: numeric when every non-missing cell parses as a number.
// A column with only missing cells is numeric.
func buildTable(header []string, rows [][]string) *Table {
	t := &Table{Columns: make([]Column, len(header))}
	for j, name := range header {
		cells := make([]Cell, len(rows))
		numeric := true
		for i, row := range rows {
			raw := row[j]
			if IsMissingToken(raw) {
				cells[i] = Cell{Kind: CellMissing}
				continue
			}
			if numeric {
				if f, ok := parseNumber(raw); ok {
					cells[i] = Cell{Kind: CellNumber, Num: f, Str: raw}
					continue
				}
				numeric = false
			}
			cells[i] = Cell{Kind: CellString, Str: raw}
		}

		colType := ColumnNumeric
		if !numeric {
			colType = ColumnString
			// Revert earlier numeric cells to their text.
			for i := range cells {
				if cells[i].Kind == CellNumber {
					cells[i] = Cell{Kind: CellString, Str: cells[i].Str}
				}
			}
		}
		t.Columns[j] = Column{Name: name, Type: colType, Cells: cells}
	}
	return t
}
