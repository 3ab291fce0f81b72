package core

// error_messages.go maps errors to user-facing messages with a support code.
//
// # Error Codes Reference
//
// Classified pipeline errors map by Kind. Anything else is matched
// case-insensitively against a short pattern list, and falls back to ERR000.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - No file provided                  (no_file)
//	FILE002 - Invalid filename                  (invalid_filename)
//	FILE003 - Only CSV files are allowed        (invalid_file_type)
//	FILE004 - File is empty                     (empty)
//	FILE005 - CSV has no data rows              (empty_data)
//	FILE006 - CSV could not be parsed           (parse_failure)
//
// # Data Errors (DATA001-DATA099)
//
//	DATA001 - Duplicate column names            (duplicate_columns)
//	DATA002 - Not enough numeric columns        (no_numeric_columns)
//	DATA003 - No categorical columns            (no_categorical_columns)
//	DATA004 - All numeric columns are constant  (all_zero_variance)
//	DATA005 - Every row had missing values      (all_rows_invalid)
//	DATA006 - Invalid request parameter         (invalid_parameter)
//
// # Limit Errors (LIM001-LIM099)
//
//	LIM001 - File too large                     (too_large)
//	LIM002 - Too many rows                      (too_many_rows)
//	LIM003 - Too many columns                   (too_many_columns)
//
// # Model Errors (MOD001-MOD099)
//
//	MOD001 - Anomaly scoring failed             (scorer_failure)
//	MOD002 - Categorical scoring failed         (reconstruction_scorer_failure)
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy                        "too many uploads"
//	UPL004 - Request cancelled                  "context canceled"
//	UPL005 - Request timeout                    "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests                 "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - An unexpected error occurred. Check the logs for the technical error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var kindMessages = map[Kind]UserMessage{
	KindNoFile:          {Message: "No file was provided", Action: "Please select a CSV file to upload", Code: "FILE001"},
	KindInvalidFilename: {Message: "The filename is invalid", Action: "Rename the file and try again", Code: "FILE002"},
	KindInvalidFileType: {Message: "Only CSV files are allowed", Action: "Upload a file with a .csv extension", Code: "FILE003"},
	KindEmpty:           {Message: "The uploaded file is empty", Action: "Please upload a CSV file with data rows", Code: "FILE004"},
	KindEmptyData:       {Message: "The CSV has no data rows", Action: "Add at least one row below the header", Code: "FILE005"},
	KindParseFailure:    {Message: "The file is not a valid CSV", Action: "Ensure the file is comma-separated with consistent columns", Code: "FILE006"},

	KindDuplicateColumns:     {Message: "Two columns have the same name", Action: "Rename duplicate column headers", Code: "DATA001"},
	KindNoNumericColumns:     {Message: "Not enough numeric columns for anomaly detection", Action: "Include at least one column of numbers", Code: "DATA002"},
	KindNoCategoricalColumns: {Message: "No categorical columns found", Action: "Include at least one text column", Code: "DATA003"},
	KindAllZeroVariance:      {Message: "All numeric columns have the same value in every row", Action: "Include columns whose values vary", Code: "DATA004"},
	KindAllRowsInvalid:       {Message: "Every row has missing numeric values", Action: "Fill in missing values and try again", Code: "DATA005"},
	KindInvalidParameter:     {Message: "A request parameter is invalid", Action: "Check the request parameters", Code: "DATA006"},

	KindTooLarge:       {Message: "File exceeds the maximum size", Action: "Split the file into smaller chunks", Code: "LIM001"},
	KindTooManyRows:    {Message: "File has too many rows", Action: "Split the file into smaller chunks", Code: "LIM002"},
	KindTooManyColumns: {Message: "File has too many columns", Action: "Remove unneeded columns", Code: "LIM003"},

	KindScorerFailure:               {Message: "Anomaly scoring failed", Action: "Please try again or contact support", Code: "MOD001"},
	KindReconstructionScorerFailure: {Message: "Categorical anomaly scoring failed", Action: "Please try again or contact support", Code: "MOD002"},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns cover errors raised outside the pipeline. The first match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// Classified errors map by Kind; others by pattern, then to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var perr *Error
	if errors.As(err, &perr) {
		if msg, ok := kindMessages[perr.Kind]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// ErrorDetail returns the client-safe detail of err. Classified errors carry
// their own detail; anything else yields the mapped message so technical
// text never reaches a response body.
func ErrorDetail(err error) string {
	var perr *Error
	if errors.As(err, &perr) && perr.Detail != "" {
		return perr.Detail
	}
	return MapError(err).Message
}
