package search

import (
	"context"
	"time"

	"obsquery/core"

	"go.uber.org/zap"
)

// Clock supplies the current time to the pipeline.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Pipeline runs a query end to end: assemble, search, resolve, respond.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	executor *Executor
	resolver *Resolver
	clock    Clock
	logger   *zap.SugaredLogger
}

// NewPipeline wires a pipeline over a search backend and a document store.
func NewPipeline(backend Backend, store DocumentStore, clock Clock, logger *zap.SugaredLogger) *Pipeline {
	if clock == nil {
		clock = SystemClock
	}
	return &Pipeline{
		executor: NewExecutor(backend, logger),
		resolver: NewResolver(store, logger),
		clock:    clock,
		logger:   logger,
	}
}

// Run executes params and builds the response. requestStart is when the
// caller received the request; every later lifecycle point is stamped here.
func (p *Pipeline) Run(ctx context.Context, requestStart time.Time, params *core.QueryParams) (*core.Response, error) {
	queryStart := p.clock.Now()
	q := Assemble(params)

	searchStart := p.clock.Now()
	result, err := p.executor.Execute(ctx, q, params)
	if err != nil {
		return nil, err
	}
	searchFinish := p.clock.Now()

	resolveStart := p.clock.Now()
	stream, err := p.resolver.Resolve(ctx, result.Hits)
	if err != nil {
		return nil, err
	}
	events, err := stream.Drain()
	if err != nil {
		return nil, err
	}
	resolveFinish := p.clock.Now()

	return &core.Response{
		TotalEvents: result.Total,
		Query:       params,
		Events:      events,
		Timing: &core.Timing{
			RequestStart:  requestStart,
			QueryStart:    queryStart,
			SearchStart:   searchStart,
			SearchFinish:  searchFinish,
			ResolveStart:  resolveStart,
			ResolveFinish: resolveFinish,
			SearchTook:    result.Took,
		},
	}, nil
}
