package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNew_JSONFormatAndLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestNew_TextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf, "info", "text").Info("hello", "flow", "staff")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "flow=staff")
}

func withDefault(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	prev := slog.Default()
	slog.SetDefault(New(buf, "debug", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestFromContext_RequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	withDefault(t, buf)

	var ctx context.Context
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	FromContext(ctx).Info("traced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotEmpty(t, entry["request_id"])
}

func TestFromContext_NoRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	withDefault(t, buf)

	FromContext(context.Background()).Info("plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	withDefault(t, buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-7")
	WithFields(ctx, "file", "export.xlsx", "size", 2048).Info("upload received")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "export.xlsx", entry["file"])
	assert.Equal(t, float64(2048), entry["size"])
}

func TestWithSession(t *testing.T) {
	buf := &bytes.Buffer{}
	withDefault(t, buf)

	WithSession(context.Background(), "0123456789abcdef", "incoming").Info("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "01234567", entry["session"])
	assert.Equal(t, "incoming", entry["flow"])
}
