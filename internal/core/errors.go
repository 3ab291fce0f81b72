package core

// errors.go defines the classified error taxonomy shared by every pipeline stage.
//
// Each stage returns exactly one *Error carrying a Kind. The web layer maps the
// Kind to an HTTP status and a support code; the Detail string is the only
// human-readable text that reaches a response body.

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// Client input errors.
	KindNoFile               Kind = "no_file"
	KindInvalidFilename      Kind = "invalid_filename"
	KindInvalidFileType      Kind = "invalid_file_type"
	KindEmpty                Kind = "empty"
	KindEmptyData            Kind = "empty_data"
	KindDuplicateColumns     Kind = "duplicate_columns"
	KindNoNumericColumns     Kind = "no_numeric_columns"
	KindNoCategoricalColumns Kind = "no_categorical_columns"
	KindAllZeroVariance      Kind = "all_zero_variance"
	KindAllRowsInvalid       Kind = "all_rows_invalid"
	KindParseFailure         Kind = "parse_failure"
	KindInvalidParameter     Kind = "invalid_parameter"

	// Resource limit errors.
	KindTooLarge       Kind = "too_large"
	KindTooManyRows    Kind = "too_many_rows"
	KindTooManyColumns Kind = "too_many_columns"

	// Internal and collaborator errors.
	KindScorerFailure               Kind = "scorer_failure"
	KindReconstructionScorerFailure Kind = "reconstruction_scorer_failure"
	KindInternal                    Kind = "internal"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind   Kind
	Detail string // Safe to show to clients
	Err    error  // Underlying cause, logged server-side only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, so callers can
// write errors.Is(err, &Error{Kind: KindTooLarge}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates a classified error for failures detected outside the
// pipeline stages, such as a request body cut off by the transport.
func NewError(kind Kind, detail string) *Error {
	return newError(kind, detail)
}

func newError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func wrapError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsClientError reports whether the kind is caused by the uploaded input.
func (k Kind) IsClientError() bool {
	switch k {
	case KindNoFile, KindInvalidFilename, KindInvalidFileType, KindEmpty, KindEmptyData,
		KindDuplicateColumns, KindNoNumericColumns, KindNoCategoricalColumns,
		KindAllZeroVariance, KindAllRowsInvalid, KindParseFailure, KindInvalidParameter:
		return true
	}
	return false
}

// IsResourceLimit reports whether the kind is a size/row/column limit violation.
func (k Kind) IsResourceLimit() bool {
	switch k {
	case KindTooLarge, KindTooManyRows, KindTooManyColumns:
		return true
	}
	return false
}

// StatusCode maps a Kind to its HTTP status class.
func StatusCode(k Kind) int {
	switch {
	case k.IsResourceLimit():
		return http.StatusRequestEntityTooLarge
	case k.IsClientError():
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
