package api

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection closed")
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	logs := captureLogs(t)
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusOK, map[string]float64{"ratio": math.Inf(1)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "encoding response")
	assert.Contains(t, logs.String(), "unsupported value")
}

func TestWritePDFLogsWriteFailure(t *testing.T) {
	logs := captureLogs(t)
	w := brokenWriter{httptest.NewRecorder()}

	writePDF(w, "report.pdf", []byte("%PDF-1.3"))

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, logs.String(), "writing pdf response")
	assert.Contains(t, logs.String(), "connection closed")
}

func TestWritePDFQuietOnSuccess(t *testing.T) {
	logs := captureLogs(t)
	rec := httptest.NewRecorder()

	writePDF(rec, "report.pdf", []byte("%PDF-1.3"))

	assert.Equal(t, "%PDF-1.3", rec.Body.String())
	assert.Empty(t, logs.String())
}
