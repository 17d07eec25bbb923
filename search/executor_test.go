package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRequestPagination(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		perPage  int
		wantFrom int
		wantSize int
	}{
		{"first page", 1, 50, 0, 50},
		{"offset into results", 11, 10, 10, 10},
		{"single result page", 3, 1, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := emptyParams()
			params.Start = tt.start
			params.PerPage = tt.perPage

			req := NewRequest(Assemble(params), params)
			assert.Equal(t, tt.wantFrom, req.From)
			assert.Equal(t, tt.wantSize, req.Size)
		})
	}
}

func TestNewRequestSort(t *testing.T) {
	tests := []struct {
		orderBy  string
		order    string
		wantSort string
	}{
		{"import_time", "desc", "import_time:desc"},
		{"import_time", "asc", "import_time:asc"},
		{"detect_time", "asc", "detect_time:asc"},
		{"bogus", "asc", ""},
		{"", "desc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.orderBy+"_"+tt.order, func(t *testing.T) {
			params := emptyParams()
			params.OrderBy = tt.orderBy
			params.Order = tt.order

			req := NewRequest(Assemble(params), params)
			assert.Equal(t, tt.wantSort, req.Sort)
		})
	}
}

func TestRequestBody(t *testing.T) {
	req := NewRequest(Assemble(emptyParams()), emptyParams())
	body, err := req.Body()
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"bool":{"must":[{"match_all":{}}]}}}`, string(body))
}

func TestExecutorExecute(t *testing.T) {
	backend := &mockBackend{}
	want := &Result{Took: 4, Total: 120, Hits: []Hit{{ID: "a"}, {ID: "b"}}}
	backend.On("Search", mock.Anything, mock.MatchedBy(func(req *Request) bool {
		return req.From == 10 && req.Size == 10 && req.Sort == "import_time:desc"
	})).Return(want, nil)

	params := emptyParams()
	params.Start = 11
	params.PerPage = 10

	executor := NewExecutor(backend, zap.NewNop().Sugar())
	got, err := executor.Execute(context.Background(), Assemble(params), params)

	require.NoError(t, err)
	assert.Same(t, want, got)
	backend.AssertExpectations(t)
}

func TestExecutorPropagatesBackendError(t *testing.T) {
	backendErr := errors.New("connection reset by peer")
	backend := &mockBackend{}
	backend.On("Search", mock.Anything, mock.Anything).Return(nil, backendErr)

	executor := NewExecutor(backend, zap.NewNop().Sugar())
	result, err := executor.Execute(context.Background(), Assemble(emptyParams()), emptyParams())

	assert.Nil(t, result)
	assert.Same(t, backendErr, err)
}
