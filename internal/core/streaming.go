package core

// streaming.go holds the small io.Reader wrappers used while ingesting an upload:
//
//   - BOMSkippingReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows tools
//   - readBounded: buffers a non-seekable body once without reading past the size limit

import (
	"bytes"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	head    []byte // Bytes read during the BOM check that still belong to the stream
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. The first call peeks three bytes to detect the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if !r.checked {
		r.checked = true
		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(r.reader, buf)
		switch err {
		case nil, io.ErrUnexpectedEOF, io.EOF:
		default:
			return 0, err
		}
		if n == len(utf8BOM) && bytes.Equal(buf, utf8BOM) {
			n = 0
		}
		r.head = buf[:n]
	}

	if len(r.head) > 0 {
		copied := copy(p, r.head)
		r.head = r.head[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}

// readBounded reads r to EOF but never buffers more than limit+1 bytes.
// The second return value reports whether the limit was exceeded.
func readBounded(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return nil, true, nil
	}
	return data, false, nil
}
