package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestInfo(t *testing.T) {
	received := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		ctx          context.Context
		wantID       string
		wantIDOK     bool
		wantReceived bool
	}{
		{"present", withRequestInfo(context.Background(), "abc", received), "abc", true, true},
		{"empty id", withRequestInfo(context.Background(), "", received), "", false, true},
		{"absent", context.Background(), "", false, false},
		{"plain string key does not collide", context.WithValue(context.Background(), "request-info", "abc"), "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := RequestID(tt.ctx)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantIDOK, ok)

			got, ok := RequestReceived(tt.ctx)
			assert.Equal(t, tt.wantReceived, ok)
			if ok {
				assert.Equal(t, received, got)
			}
		})
	}
}

func TestRequestIDOrUnknown(t *testing.T) {
	assert.Equal(t, "abc", RequestIDOrUnknown(withRequestInfo(context.Background(), "abc", time.Now())))
	assert.Equal(t, "unknown", RequestIDOrUnknown(withRequestInfo(context.Background(), "", time.Now())))
	assert.Equal(t, "unknown", RequestIDOrUnknown(context.Background()))
}
