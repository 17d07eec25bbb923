package api

import (
	"context"
	"time"
)

// contextKey is unexported so no other package can read or shadow it.
type contextKey struct{ name string }

// requestInfoKey holds the *requestInfo set by requestIDMiddleware.
var requestInfoKey = &contextKey{"request-info"}

// requestInfo is what the tracing middleware learns about a request before
// any handler runs.
type requestInfo struct {
	id       string
	received time.Time
}

// withRequestInfo returns a context carrying the correlation ID and the
// receive time of a request.
func withRequestInfo(ctx context.Context, id string, received time.Time) context.Context {
	return context.WithValue(ctx, requestInfoKey, &requestInfo{id: id, received: received})
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}

// RequestID returns the correlation ID of the request ctx belongs to.
func RequestID(ctx context.Context) (string, bool) {
	info := requestInfoFrom(ctx)
	if info == nil || info.id == "" {
		return "", false
	}
	return info.id, true
}

// RequestIDOrUnknown is RequestID for log fields.
func RequestIDOrUnknown(ctx context.Context) string {
	if id, ok := RequestID(ctx); ok {
		return id
	}
	return "unknown"
}

// RequestReceived returns when the request was received. This is the
// request_start of the query timing.
func RequestReceived(ctx context.Context) (time.Time, bool) {
	info := requestInfoFrom(ctx)
	if info == nil {
		return time.Time{}, false
	}
	return info.received, true
}
