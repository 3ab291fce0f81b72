package core

import "fmt"

// Default sanitization limits.
const (
	DefaultMaxFileSizeMB     = 200
	DefaultMaxRows           = 1_000_000
	DefaultMaxColumns        = 200
	DefaultMinNumericColumns = 1
)

// Limits bounds the resources a single upload may consume.
// It is passed by value into every pipeline entry point and never mutated.
type Limits struct {
	MaxFileSizeBytes  int64 `json:"max_file_size_bytes"`
	MaxRows           int   `json:"max_rows"`
	MaxColumns        int   `json:"max_columns"`
	MinNumericColumns int   `json:"min_numeric_columns"`
}

// DefaultLimits returns the production limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSizeBytes:  DefaultMaxFileSizeMB * 1024 * 1024,
		MaxRows:           DefaultMaxRows,
		MaxColumns:        DefaultMaxColumns,
		MinNumericColumns: DefaultMinNumericColumns,
	}
}

// Validate checks that every limit is usable.
func (l Limits) Validate() error {
	if l.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", l.MaxFileSizeBytes)
	}
	if l.MaxRows <= 0 {
		return fmt.Errorf("max rows must be positive, got %d", l.MaxRows)
	}
	if l.MaxColumns <= 0 {
		return fmt.Errorf("max columns must be positive, got %d", l.MaxColumns)
	}
	if l.MinNumericColumns < 0 {
		return fmt.Errorf("min numeric columns must be non-negative, got %d", l.MinNumericColumns)
	}
	return nil
}

// MaxFileSizeMB reports the size limit in whole megabytes for messages.
func (l Limits) MaxFileSizeMB() int64 {
	return l.MaxFileSizeBytes / (1024 * 1024)
}
