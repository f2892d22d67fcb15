package api

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/xmlsaw/internal/config"
	"github.com/dgallion1/xmlsaw/xmltree"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		Port:             "0",
		APIKey:           apiKey,
		MaxUploadBytes:   1 << 20,
		DefaultChunkSize: 1000,
	}
	return NewServer(log, cfg)
}

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleSplit_ReturnsChunkArchive(t *testing.T) {
	srv := newTestServer(t, "")

	doc := `<data>
		<item n="1"/>
		<item n="2"/>
		<item n="3"/>
	</data>`
	body, ctype := multipartUpload(t, map[string]string{"tag": "item", "chunk_size": "2"}, "data.xml", doc)

	req := httptest.NewRequest(http.MethodPost, "/api/split", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "chunk_0000.xml", zr.File[0].Name)
	require.Equal(t, "chunk_0001.xml", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	first, err := xmltree.Parse(rc)
	require.NoError(t, err)
	rc.Close()
	require.Equal(t, "chunk", first.Root().Tag)
	require.Len(t, first.Root().ChildElements(), 2)
}

func TestHandleSplit_MissingTag(t *testing.T) {
	srv := newTestServer(t, "")

	body, ctype := multipartUpload(t, nil, "data.xml", `<data/>`)
	req := httptest.NewRequest(http.MethodPost, "/api/split", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "tag is required")
}

func TestFlattenRebuild_RoundTripOverHTTP(t *testing.T) {
	srv := newTestServer(t, "")

	orig := `<product id="12345">
		<name>Widget</name>
		<product id="67890"><name>Part</name></product>
	</product>`

	req := httptest.NewRequest(http.MethodPost, "/api/flatten?tag=product", strings.NewReader(orig))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/xml", rec.Header().Get("Content-Type"))

	flat, err := xmltree.Parse(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "flattened", flat.Root().Tag)
	require.Len(t, flat.Root().ChildElements(), 2)

	req = httptest.NewRequest(http.MethodPost, "/api/rebuild?tag=product", bytes.NewReader(rec.Body.Bytes()))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rebuilt, err := xmltree.Parse(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "root", rebuilt.Root().Tag)

	want, err := xmltree.Parse(strings.NewReader(orig))
	require.NoError(t, err)
	got := rebuilt.Root().ChildElements()
	require.Len(t, got, 1)
	require.True(t, xmltree.Equal(want.Root(), got[0], "parent_id"))
}

func TestHandleFlatten_MalformedBody(t *testing.T) {
	srv := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/flatten?tag=item", strings.NewReader(`<a><b></a>`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAuth_RequiredWhenKeyConfigured(t *testing.T) {
	srv := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/flatten?tag=item", strings.NewReader(`<item/>`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/flatten?tag=item", strings.NewReader(`<item/>`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Health stays public.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
