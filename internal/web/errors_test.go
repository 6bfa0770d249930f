package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/mobility/internal/logging"
	"github.com/JonMunkholm/mobility/internal/mobility"
	"github.com/JonMunkholm/mobility/internal/uploads"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"format", &mobility.FormatError{FileName: "a.pdf"}, http.StatusUnsupportedMediaType},
		{"schema", &mobility.SchemaError{FileName: "a.csv", Missing: []string{"pays"}}, http.StatusUnprocessableEntity},
		{"load", &mobility.LoadError{FileName: "a.csv", Err: errors.New("bad quote")}, http.StatusUnprocessableEntity},
		{"busy", fmt.Errorf("parse: %w", uploads.ErrTooManyUploads), http.StatusServiceUnavailable},
		{"unknown flow", mobility.ErrUnknownFlow, http.StatusNotFound},
		{"unknown route", errNotFound, http.StatusNotFound},
		{"no dataset", mobility.ErrNoDataset, http.StatusConflict},
		{"nothing to export", mobility.ErrNothingToExport, http.StatusConflict},
		{"invalid selection", mobility.ErrInvalidSelection, http.StatusBadRequest},
		{"no file", errNoFile, http.StatusBadRequest},
		{"rate limited", errRateLimited, http.StatusTooManyRequests},
		{"too large", fileTooLarge(10), http.StatusRequestEntityTooLarge},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_LogLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(logging.New(buf, "debug", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	srv := newTestServer(t, testConfig()).srv
	respond := func(err error, status int) string {
		buf.Reset()
		rec := httptest.NewRecorder()
		srv.respondError(rec, httptest.NewRequest(http.MethodGet, "/api/flows", nil), err, status)
		assert.Equal(t, status, rec.Code)
		return buf.String()
	}

	out := respond(mobility.ErrNoDataset, http.StatusConflict)
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"code":"DATA001"`)

	out = respond(errors.New("boom"), http.StatusBadRequest)
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, "unmapped request error")

	out = respond(mobility.ErrNothingToExport, http.StatusInternalServerError)
	assert.Contains(t, out, `"level":"ERROR"`)
}
