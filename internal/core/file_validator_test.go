package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// countingReader records whether anything was read from it.
type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func smallLimits() Limits {
	return Limits{MaxFileSizeBytes: 64, MaxRows: 100, MaxColumns: 10, MinNumericColumns: 1}
}

func TestValidateFile_Classification(t *testing.T) {
	tests := []struct {
		name     string
		upload   RawUpload
		wantKind Kind
	}{
		{
			name:     "no body",
			upload:   RawUpload{Filename: "data.csv"},
			wantKind: KindNoFile,
		},
		{
			name:     "empty filename",
			upload:   RawUpload{Filename: "  ", Body: strings.NewReader("a\n1")},
			wantKind: KindInvalidFilename,
		},
		{
			name:     "wrong extension",
			upload:   RawUpload{Filename: "data.xlsx", Body: strings.NewReader("a\n1")},
			wantKind: KindInvalidFileType,
		},
		{
			name:     "extension hidden behind path",
			upload:   RawUpload{Filename: "evil.csv/passwd", Body: strings.NewReader("a\n1")},
			wantKind: KindInvalidFileType,
		},
		{
			name:     "empty seekable body",
			upload:   RawUpload{Filename: "data.csv", Body: bytes.NewReader(nil)},
			wantKind: KindEmpty,
		},
		{
			name:     "empty stream",
			upload:   RawUpload{Filename: "data.csv", Body: io.MultiReader()},
			wantKind: KindEmpty,
		},
		{
			name:     "oversized seekable body",
			upload:   RawUpload{Filename: "data.csv", Body: bytes.NewReader(make([]byte, 65))},
			wantKind: KindTooLarge,
		},
		{
			name:     "oversized stream",
			upload:   RawUpload{Filename: "data.csv", Body: io.MultiReader(bytes.NewReader(make([]byte, 100)))},
			wantKind: KindTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateFile(tt.upload, smallLimits())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf(err) = %v, want %v", got, tt.wantKind)
			}
		})
	}
}

func TestValidateFile_AcceptsUppercaseExtension(t *testing.T) {
	vf, err := ValidateFile(RawUpload{Filename: "REPORT.CSV", Body: strings.NewReader("a\n1\n")}, smallLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vf.Filename != "REPORT.CSV" {
		t.Errorf("Filename = %q", vf.Filename)
	}
}

func TestValidateFile_BuffersNonSeekableOnce(t *testing.T) {
	content := "id,value\n1,2\n3,4\n"
	// MultiReader hides the Seek method of strings.Reader.
	src := &countingReader{r: io.MultiReader(strings.NewReader(content))}

	vf, err := ValidateFile(RawUpload{Filename: "data.csv", Body: src}, smallLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(vf.Data) != content {
		t.Errorf("Data = %q, want %q", vf.Data, content)
	}
	if vf.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", vf.Size, len(content))
	}
	if src.read != len(content) {
		t.Errorf("read %d bytes from source, want %d", src.read, len(content))
	}
}

func TestValidateFile_OversizedSeekableIsNotRead(t *testing.T) {
	big := bytes.NewReader(make([]byte, 1000))
	_, err := ValidateFile(RawUpload{Filename: "data.csv", Body: big}, smallLimits())
	if !errors.Is(err, &Error{Kind: KindTooLarge}) {
		t.Fatalf("expected TooLarge, got %v", err)
	}
	// Seek to end leaves nothing unread, and the content was never copied.
	if big.Len() != 0 {
		t.Errorf("expected reader positioned at end, %d bytes remain", big.Len())
	}
}

func TestValidateFile_OversizedStreamStopsAtLimit(t *testing.T) {
	src := &countingReader{r: io.MultiReader(bytes.NewReader(make([]byte, 10_000)))}
	_, err := ValidateFile(RawUpload{Filename: "data.csv", Body: src}, smallLimits())
	if KindOf(err) != KindTooLarge {
		t.Fatalf("expected TooLarge, got %v", err)
	}
	if src.read > 65 {
		t.Errorf("read %d bytes, want at most limit+1", src.read)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data.csv", "data.csv"},
		{"../../etc/passwd.csv", "passwd.csv"},
		{`C:\Users\me\report.csv`, "report.csv"},
		{"we;rd$name.csv", "we_rd_name.csv"},
		{"my file-v2.csv", "my file-v2.csv"},
		{"données.csv", "données.csv"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
