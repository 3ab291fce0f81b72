package core

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// unsafeFilenameChars matches anything outside word characters, whitespace, hyphen and dot.
var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.-]`)

// ValidatedFile is an upload that passed structural checks.
// Data is the complete file content; the original body is never read again.
type ValidatedFile struct {
	Filename string
	Data     []byte
	Size     int64
}

// SanitizeFilename strips path components and replaces unsafe characters with '_'.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// ValidateFile runs the pre-parse checks on an upload. Checks run in a fixed
// order and the first failure aborts with its classification.
//
// Size is measured by seeking when the body supports it. Otherwise the body is
// buffered once, bounded to one byte past the limit, so oversized input is
// rejected without being read in full and no decode attempt ever sees it.
func ValidateFile(up RawUpload, lim Limits) (*ValidatedFile, error) {
	if up.Body == nil {
		return nil, newError(KindNoFile, "No file provided")
	}
	if strings.TrimSpace(up.Filename) == "" {
		return nil, newError(KindInvalidFilename, "Invalid filename")
	}

	filename := SanitizeFilename(up.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, newError(KindInvalidFileType, "Only CSV files are allowed")
	}

	var data []byte
	if seeker, ok := up.Body.(io.ReadSeeker); ok {
		size, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, wrapError(KindInternal, "Could not measure upload size", err)
		}
		if size > lim.MaxFileSizeBytes {
			return nil, TooLargeError(lim)
		}
		if size == 0 {
			return nil, newError(KindEmpty, "Empty file")
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, wrapError(KindInternal, "Could not rewind upload", err)
		}
		data, err = io.ReadAll(seeker)
		if err != nil {
			return nil, wrapError(KindInternal, "Could not read upload", err)
		}
	} else {
		buf, over, err := readBounded(up.Body, lim.MaxFileSizeBytes)
		if err != nil {
			return nil, wrapError(KindInternal, "Could not read upload", err)
		}
		if over {
			return nil, TooLargeError(lim)
		}
		data = buf
	}

	if len(data) == 0 {
		return nil, newError(KindEmpty, "Empty file")
	}
	if int64(len(data)) > lim.MaxFileSizeBytes {
		return nil, TooLargeError(lim)
	}

	return &ValidatedFile{
		Filename: filename,
		Data:     data,
		Size:     int64(len(data)),
	}, nil
}

// TooLargeError reports an upload over the size limit.
func TooLargeError(lim Limits) *Error {
	if lim.MaxFileSizeMB() > 0 {
		return newError(KindTooLarge, fmt.Sprintf("File too large. Maximum size is %dMB", lim.MaxFileSizeMB()))
	}
	return newError(KindTooLarge, fmt.Sprintf("File too large. Maximum size is %d bytes", lim.MaxFileSizeBytes))
}
