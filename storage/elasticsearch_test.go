package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"obsquery/config"
	"obsquery/core"
	"obsquery/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordedRequest is what the fake cluster saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Body   string
}

// fakeCluster is a minimal stand-in for an Elasticsearch node.
type fakeCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		query[k] = v[0]
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: query, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, r)
}

func (f *fakeCluster) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestElasticsearch(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*ElasticsearchBackend, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{handler: handler}
	server := httptest.NewServer(cluster)
	t.Cleanup(server.Close)

	backend, err := NewElasticsearchBackend(config.ElasticsearchConfig{
		Addresses: []string{server.URL},
		Index:     "events",
		Refresh:   "true",
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return backend, cluster
}

// TestElasticsearchSearch tests request shaping and response parsing
func TestElasticsearchSearch(t *testing.T) {
	backend, cluster := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"took":7,"timed_out":false,"hits":{"total":{"value":42,"relation":"eq"},"hits":[{"_id":"b","_score":null},{"_id":"a","_score":1.5}]}}`)
	})

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	params := core.DefaultQueryParams(since.Add(time.Hour))
	params.ImportTimeMin = &since
	params.Start = 11
	params.PerPage = 10
	params.IPv4 = "10.0.0.1"

	req := search.NewRequest(search.Assemble(params), params)
	result, err := backend.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.Took)
	assert.Equal(t, int64(42), result.Total)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "b", result.Hits[0].ID)
	assert.Equal(t, "a", result.Hits[1].ID)
	assert.Equal(t, 1.5, result.Hits[1].Score)

	seen := cluster.last()
	assert.Equal(t, "/events/_search", seen.Path)
	assert.Equal(t, "10", seen.Query["from"])
	assert.Equal(t, "10", seen.Query["size"])
	assert.Equal(t, "import_time:desc", seen.Query["sort"])
	assert.Equal(t, "false", seen.Query["_source"])

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(seen.Body), &body))
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Len(t, boolQuery["must"], 1)
	assert.Len(t, boolQuery["should"], 2)
	assert.Equal(t, float64(1), boolQuery["minimum_should_match"])
}

// TestElasticsearchSearchWithoutSort tests that unknown order_by values send no sort
func TestElasticsearchSearchWithoutSort(t *testing.T) {
	backend, cluster := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"took":1,"hits":{"total":3,"hits":[]}}`)
	})

	params := core.DefaultQueryParams(time.Now())
	params.OrderBy = "feed_name"

	result, err := backend.Search(context.Background(), search.NewRequest(search.Assemble(params), params))
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Empty(t, result.Hits)

	_, hasSort := cluster.last().Query["sort"]
	assert.False(t, hasSort)
}

// TestElasticsearchSearchErrors tests error classification
func TestElasticsearchSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{
			name:   "missing index",
			status: http.StatusNotFound,
			body:   `{"error":{"type":"index_not_found_exception","reason":"no such index [events]"},"status":404}`,
			want:   ErrIndexNotFound,
		},
		{
			name:   "bad query",
			status: http.StatusBadRequest,
			body:   `{"error":{"type":"parsing_exception","reason":"unknown query"},"status":400}`,
			want:   ErrSearchFailed,
		},
		{
			name:   "no envelope",
			status: http.StatusBadGateway,
			body:   `upstream failure`,
			want:   ErrSearchFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, _ := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			params := core.DefaultQueryParams(time.Now())
			_, err := backend.Search(context.Background(), search.NewRequest(search.Assemble(params), params))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestParseTotal tests both hits.total encodings
func TestParseTotal(t *testing.T) {
	total, err := parseTotal(json.RawMessage(`{"value":12,"relation":"gte"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)

	total, err = parseTotal(json.RawMessage(`5`))
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	total, err = parseTotal(nil)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = parseTotal(json.RawMessage(`"many"`))
	assert.Error(t, err)
}

// TestElasticsearchEnsureIndex tests index creation with the observable mapping
func TestElasticsearchEnsureIndex(t *testing.T) {
	backend, cluster := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			_, _ = io.WriteString(w, `{"acknowledged":true,"index":"events"}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	require.NoError(t, backend.EnsureIndex(context.Background()))
	put := cluster.last()
	assert.Equal(t, http.MethodPut, put.Method)
	created := put.Body
	assert.Contains(t, created, `"path_hierarchy"`)
	assert.Contains(t, created, `"nested"`)
	assert.Contains(t, created, AnalyzerDomainSuffix)
}

// TestElasticsearchEnsureIndexExisting tests that an existing index is left alone
func TestElasticsearchEnsureIndexExisting(t *testing.T) {
	backend, cluster := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, backend.EnsureIndex(context.Background()))
	assert.Len(t, cluster.requests, 1)
	assert.Equal(t, http.MethodHead, cluster.last().Method)
}

// TestElasticsearchIndexEvents tests bulk encoding and item failures
func TestElasticsearchIndexEvents(t *testing.T) {
	event := core.NewEvent()
	event.ImportTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	event.Observables.FQDN = []core.FQDNObservable{{FQDN: "a.example.com"}}

	t.Run("success", func(t *testing.T) {
		backend, cluster := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"took":3,"errors":false,"items":[]}`)
		})

		require.NoError(t, backend.IndexEvents(context.Background(), []*core.Event{event}))

		seen := cluster.last()
		assert.Equal(t, "/events/_bulk", seen.Path)
		assert.Equal(t, "true", seen.Query["refresh"])
		lines := strings.Split(strings.TrimSpace(seen.Body), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], event.ID)
		assert.Contains(t, lines[1], "a.example.com")
	})

	t.Run("item failure", func(t *testing.T) {
		backend, _ := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"took":3,"errors":true,"items":[{"index":{"_id":"x","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad date"}}}]}`)
		})

		err := backend.IndexEvents(context.Background(), []*core.Event{event})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSearchFailed)
		assert.Contains(t, err.Error(), "bad date")
	})

	t.Run("missing id", func(t *testing.T) {
		backend, _ := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {})
		err := backend.IndexEvents(context.Background(), []*core.Event{{}})
		assert.ErrorIs(t, err, ErrEventWithoutID)
	})
}

// TestElasticsearchHealthCheck tests ping handling
func TestElasticsearchHealthCheck(t *testing.T) {
	healthy, _ := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, healthy.HealthCheck(context.Background()))

	unhealthy, _ := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.ErrorIs(t, unhealthy.HealthCheck(context.Background()), ErrSearchFailed)
}
