package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// requestIDHeader carries the correlation ID in both directions.
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// requestIDMiddleware tags each request with a correlation ID and records
// when it was received. A caller-supplied X-Request-ID is kept after
// sanitizing, otherwise a UUID v4 is generated. The ID is echoed back.
func (a *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received := a.now()

		id := sanitizeRequestID(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := a.logger
		if logger != nil {
			logger = logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			logger.Debugw("request_started",
				"remote_addr", a.proxies.clientIP(r),
				"user_agent", r.UserAgent())
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(withRequestInfo(r.Context(), id, received)))

		if logger != nil {
			logger.Infow("request_completed",
				"status", rec.Status(),
				"bytes", rec.bytes,
				"duration_ms", time.Since(received).Milliseconds())
		}
	})
}

func (a *API) now() time.Time {
	if a.clock == nil {
		return time.Now()
	}
	return a.clock.Now()
}

// statusRecorder remembers the status and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Status is the status sent to the client; 200 if the handler wrote nothing.
func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// sanitizeRequestID keeps ASCII letters, digits, '-' and '_' from the first
// maxRequestIDLen bytes of id.
func sanitizeRequestID(id string) string {
	if len(id) > maxRequestIDLen {
		id = id[:maxRequestIDLen]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, id)
}

// LogWithRequestID returns logger with the request_id field of ctx attached.
func LogWithRequestID(ctx context.Context, logger *zap.SugaredLogger) *zap.SugaredLogger {
	if logger == nil {
		return nil
	}
	return logger.With("request_id", RequestIDOrUnknown(ctx))
}
