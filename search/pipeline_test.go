package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"obsquery/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tickingClock advances by one millisecond on every read.
type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func TestPipelineRun(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &tickingClock{now: base}

	backend := &mockBackend{}
	backend.On("Search", mock.Anything, mock.Anything).Return(&Result{
		Took:  9,
		Total: 321,
		Hits:  []Hit{{ID: "b"}, {ID: "missing"}, {ID: "a"}},
	}, nil)

	store := &mockDocumentStore{}
	store.On("Lookup", mock.Anything, []string{"b", "missing", "a"}).Return(map[string]map[string]interface{}{
		"a": storedEvent("a", "2024-05-30T00:00:00Z"),
		"b": storedEvent("b", "2024-05-31T00:00:00Z"),
	}, nil)

	params := core.DefaultQueryParams(base)
	params.FQDN = "example.com"

	pipeline := NewPipeline(backend, store, clock, zap.NewNop().Sugar())
	resp, err := pipeline.Run(context.Background(), base, params)
	require.NoError(t, err)

	assert.Equal(t, int64(321), resp.TotalEvents)
	assert.Same(t, params, resp.Query)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "b", resp.Events[0].ID)
	assert.Equal(t, "a", resp.Events[1].ID)

	timing := resp.Timing
	require.NotNil(t, timing)
	assert.Equal(t, base, timing.RequestStart)
	assert.Equal(t, int64(9), timing.SearchTook)

	stamps := []time.Time{
		timing.RequestStart,
		timing.QueryStart,
		timing.SearchStart,
		timing.SearchFinish,
		timing.ResolveStart,
		timing.ResolveFinish,
	}
	for i := 1; i < len(stamps); i++ {
		assert.True(t, stamps[i].After(stamps[i-1]), "timestamp %d should follow timestamp %d", i, i-1)
	}
}

func TestPipelineSearchFailure(t *testing.T) {
	backendErr := errors.New("index_not_found_exception")
	backend := &mockBackend{}
	backend.On("Search", mock.Anything, mock.Anything).Return(nil, backendErr)
	store := &mockDocumentStore{}

	pipeline := NewPipeline(backend, store, nil, zap.NewNop().Sugar())
	resp, err := pipeline.Run(context.Background(), time.Now(), core.DefaultQueryParams(time.Now()))

	assert.Nil(t, resp)
	assert.Same(t, backendErr, err)
	store.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestPipelineResolveFailure(t *testing.T) {
	lookupErr := errors.New("document store unavailable")
	backend := &mockBackend{}
	backend.On("Search", mock.Anything, mock.Anything).Return(&Result{Total: 1, Hits: []Hit{{ID: "a"}}}, nil)
	store := &mockDocumentStore{}
	store.On("Lookup", mock.Anything, mock.Anything).Return(nil, lookupErr)

	pipeline := NewPipeline(backend, store, nil, zap.NewNop().Sugar())
	resp, err := pipeline.Run(context.Background(), time.Now(), core.DefaultQueryParams(time.Now()))

	assert.Nil(t, resp)
	assert.Same(t, lookupErr, err)
}

func TestPipelineTotalIsBackendTotal(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Search", mock.Anything, mock.Anything).Return(&Result{Total: 5000, Hits: nil}, nil)

	pipeline := NewPipeline(backend, &mockDocumentStore{}, nil, zap.NewNop().Sugar())
	resp, err := pipeline.Run(context.Background(), time.Now(), core.DefaultQueryParams(time.Now()))
	require.NoError(t, err)

	assert.Equal(t, int64(5000), resp.TotalEvents)
	assert.Empty(t, resp.Events)
}
