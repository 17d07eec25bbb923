package search

import (
	"context"
	"encoding/json"
	"time"

	"obsquery/core"
	"obsquery/metrics"

	"go.uber.org/zap"
)

// sortFields lists the fields a query may be ordered by. Any other order_by
// value results in the backend's natural order.
var sortFields = map[string]string{
	core.OrderByDetectTime: core.FieldDetectTime,
	core.OrderByImportTime: core.FieldImportTime,
}

// Request is a fully resolved search request handed to a Backend. The backend
// returns identifiers only; no document fields are projected.
type Request struct {
	Query *BoolQuery
	From  int
	Size  int
	// Sort is "<field>:<asc|desc>", or empty for no sort.
	Sort string
}

// Body renders the request body sent to the engine: {"query":{"bool":{...}}}.
func (r *Request) Body() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"query": r.Query})
}

// Hit is one matching document identifier. Hits are ordered.
type Hit struct {
	ID    string
	Score float64
}

// Result is what a Backend returns for one Request. Took is the backend's own
// measurement in milliseconds; Total counts all matches, not just this page.
type Result struct {
	Took  int64
	Total int64
	Hits  []Hit
}

// Backend executes search requests against a search engine.
type Backend interface {
	Search(ctx context.Context, req *Request) (*Result, error)
}

// NewRequest maps pagination and sorting from params onto q. Start is
// 1-based; From is the 0-based offset.
func NewRequest(q *BoolQuery, params *core.QueryParams) *Request {
	req := &Request{
		Query: q,
		From:  params.Start - 1,
		Size:  params.PerPage,
	}
	if field, ok := sortFields[params.OrderBy]; ok {
		req.Sort = field + ":" + params.Order
	}
	return req
}

// Executor runs assembled queries against a Backend.
type Executor struct {
	backend Backend
	logger  *zap.SugaredLogger
}

// NewExecutor creates a new query executor
func NewExecutor(backend Backend, logger *zap.SugaredLogger) *Executor {
	return &Executor{backend: backend, logger: logger}
}

// Execute runs q with the pagination and sorting from params. Backend errors
// are returned as-is.
func (e *Executor) Execute(ctx context.Context, q *BoolQuery, params *core.QueryParams) (*Result, error) {
	req := NewRequest(q, params)

	start := time.Now()
	result, err := e.backend.Search(ctx, req)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueryFailures.WithLabelValues("search").Inc()
		return nil, err
	}
	metrics.SearchBackendTook.Observe(float64(result.Took))

	e.logger.Debugw("search executed",
		"from", req.From,
		"size", req.Size,
		"sort", req.Sort,
		"total", result.Total,
		"hits", len(result.Hits),
		"took_ms", result.Took,
	)
	return result, nil
}
