package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRequestID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "valid UUID",
			input:    "550e8400-e29b-41d4-a716-446655440000",
			expected: "550e8400-e29b-41d4-a716-446655440000",
		},
		{
			name:     "with underscore",
			input:    "req_abc_123",
			expected: "req_abc_123",
		},
		{
			name:     "with newlines (log injection attempt)",
			input:    "abc\n\rINFO: fake log",
			expected: "abcINFOfakelog",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "too long (should truncate)",
			input:    strings.Repeat("a", 100),
			expected: strings.Repeat("a", 64),
		},
		{
			name:     "control characters",
			input:    "req-\u0000\u001f\u007f-123",
			expected: "req--123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeRequestID(tt.input))
		})
	}
}

// TestRequestIDMiddleware tests ID propagation and the recorded request start
func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		inputRequestID string
		wantID         string
	}{
		{name: "provided request ID is used", inputRequestID: "provided-id-123", wantID: "provided-id-123"},
		{name: "provided request ID is sanitized", inputRequestID: "id<script>", wantID: "idscript"},
		{name: "request ID generated when missing"},
		{name: "request ID generated when nothing survives sanitizing", inputRequestID: "<>;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := setupTestAPI(t, &stubRunner{}, nil, nil)

			var capturedID string
			var capturedStart time.Time
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedID, _ = RequestID(r.Context())
				capturedStart, _ = RequestReceived(r.Context())
				w.WriteHeader(http.StatusTeapot)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.inputRequestID != "" {
				req.Header.Set(requestIDHeader, tt.inputRequestID)
			}
			rec := httptest.NewRecorder()
			a.requestIDMiddleware(handler).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.Equal(t, capturedID, rec.Header().Get(requestIDHeader))
			assert.Equal(t, testNow, capturedStart)
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, capturedID)
			} else {
				_, err := uuid.Parse(capturedID)
				assert.NoError(t, err, "generated ID should be a UUID")
			}
		})
	}
}

// TestRequestIDMiddleware_LogsCompletion tests the completion log entry
func TestRequestIDMiddleware_LogsCompletion(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := setupTestAPI(t, &stubRunner{}, nil, nil)
	a.logger = zap.New(core).Sugar()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(requestIDHeader, "abc")
	a.requestIDMiddleware(handler).ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request_completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, "/missing", fields["path"])
	assert.Equal(t, int64(0), fields["bytes"])
}

func TestStatusRecorder(t *testing.T) {
	t.Run("first status wins", func(t *testing.T) {
		w := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
		w.WriteHeader(http.StatusBadGateway)
		w.WriteHeader(http.StatusOK)
		assert.Equal(t, http.StatusBadGateway, w.Status())
	})

	t.Run("write implies 200 and counts bytes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := &statusRecorder{ResponseWriter: rec}
		_, err := w.Write([]byte("ok"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, w.Status())
		assert.Equal(t, 2, w.bytes)
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("nothing written", func(t *testing.T) {
		w := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
		assert.Equal(t, http.StatusOK, w.Status())
	})
}

func TestLogWithRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core).Sugar()

	LogWithRequestID(withRequestInfo(context.Background(), "req-1", time.Now()), logger).Info("with id")
	LogWithRequestID(context.Background(), logger).Info("without id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "unknown", entries[1].ContextMap()["request_id"])

	assert.Nil(t, LogWithRequestID(context.Background(), nil))
}
