package web

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvanomaly/internal/core"
	"github.com/JonMunkholm/csvanomaly/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for multipart
// boundaries, headers, and small form fields.
const multipartOverhead = 1 << 20

// handleDetect runs numeric anomaly detection on an uploaded CSV.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	up, cleanup, err := s.readUpload(w, r)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp, err := s.pipeline.DetectNumeric(ctx, up)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.NumericResults(resp).Render(ctx, w); err != nil {
			s.respondError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDetectCategorical runs categorical anomaly detection on an uploaded
// CSV. The optional "percentile" form field sets the loss threshold.
func (s *Server) handleDetectCategorical(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	up, cleanup, err := s.readUpload(w, r)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	percentile, err := parsePercentile(r.FormValue("percentile"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp, err := s.pipeline.DetectCategorical(ctx, up, percentile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.CategoricalResults(resp).Render(ctx, w); err != nil {
			s.respondError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// readUpload parses the multipart body and returns the "file" part as a
// RawUpload. A request without a file yields a RawUpload with no Body, which
// the pipeline rejects as NoFile. The returned cleanup is always non-nil.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (core.RawUpload, func(), error) {
	lim := s.pipeline.Limits()
	cleanup := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, lim.MaxFileSizeBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxMemory); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return core.RawUpload{}, cleanup, core.TooLargeError(lim)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return core.RawUpload{}, cleanup, nil
		default:
			return core.RawUpload{}, cleanup, core.NewError(core.KindNoFile, "Could not read the multipart upload")
		}
	}
	cleanup = func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// A "file" part sent without a filename is parsed as a plain value.
		// Passing it on lets the pipeline reject it as InvalidFilename.
		if vals := r.MultipartForm.Value["file"]; len(vals) > 0 {
			return core.RawUpload{Body: strings.NewReader(vals[0]), Size: int64(len(vals[0]))}, cleanup, nil
		}
		return core.RawUpload{}, cleanup, nil
	}
	removeForm := cleanup
	cleanup = func() {
		file.Close()
		removeForm()
	}

	return core.RawUpload{
		Filename:    header.Filename,
		ContentType: contentType(header),
		Body:        file,
		Size:        header.Size,
	}, cleanup, nil
}

func contentType(h *multipart.FileHeader) string {
	return h.Header.Get("Content-Type")
}

// parsePercentile reads the optional percentile field. Empty means the
// pipeline default; range checks happen in the pipeline.
func parsePercentile(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, core.NewError(core.KindInvalidParameter, "Percentile must be a number between 0 and 100")
	}
	return p, nil
}
