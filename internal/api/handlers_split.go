package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zip"

	"github.com/dgallion1/xmlsaw/errs"
	"github.com/dgallion1/xmlsaw/source"
	"github.com/dgallion1/xmlsaw/splitter"
	"github.com/dgallion1/xmlsaw/xmltree"
)

var errTooLarge = errors.New("upload exceeds size limit")

// handleSplit accepts a multipart upload (file + tag + optional chunk_size)
// and streams back a zip archive of numbered chunk documents. The upload may
// be a single document, a gzipped document, or a ZIP archive of documents.
// Parse errors after streaming begins truncate the response; everything
// checkable up front is reported as a proper error status.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	tag := r.FormValue("tag")
	if tag == "" {
		jsonError(w, "tag is required", http.StatusBadRequest)
		return
	}
	chunkSize := s.cfg.DefaultChunkSize
	if v := r.FormValue("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "chunk_size must be a positive integer", http.StatusBadRequest)
			return
		}
		chunkSize = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Stage the upload to disk: archives need random access, and source
	// classification goes by extension.
	staged, err := stageUpload(file, sanitizeFilename(header.Filename), s.cfg.MaxUploadBytes)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	defer os.RemoveAll(filepath.Dir(staged))

	src, err := source.Resolve(staged, source.Options{})
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	sp, err := splitter.New(splitter.Config{Tag: tag, ChunkSize: chunkSize})
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="chunks.zip"`)
	zw := zip.NewWriter(w)
	for c, err := range sp.Split(src.Entries()) {
		if err != nil {
			s.log.Error("split aborted mid-stream", "error", err)
			return
		}
		f, err := zw.Create(fmt.Sprintf("chunk_%04d.xml", c.Index))
		if err != nil {
			s.log.Error("create archive entry", "error", err)
			return
		}
		if err := xmltree.Write(f, c.Element); err != nil {
			s.log.Error("write chunk", "error", err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.log.Error("close response archive", "error", err)
	}
}

// stageUpload copies the upload into a fresh temp directory under the
// original (sanitized) name, so extension-based classification still
// applies. Returns the staged file path; the caller removes its directory.
func stageUpload(r io.Reader, filename string, limit int64) (string, error) {
	dir, err := os.MkdirTemp("", "xmlsaw-upload-*")
	if err != nil {
		return "", errors.Wrap(err, "stage upload")
	}
	p := filepath.Join(dir, filename)
	f, err := os.Create(p)
	if err != nil {
		os.RemoveAll(dir)
		return "", errors.Wrap(err, "stage upload")
	}
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.RemoveAll(dir)
		return "", errors.Wrap(err, "stage upload")
	}
	if n > limit {
		os.RemoveAll(dir)
		return "", errTooLarge
	}
	return p, nil
}

// statusFor maps taxonomy errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrCorruptInput),
		errors.Is(err, errs.ErrSyntax),
		errors.Is(err, errs.ErrStructural):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "upload.xml"
	}
	return name
}
