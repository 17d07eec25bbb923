package search

import (
	"context"
	"errors"
	"time"

	"obsquery/core"
	"obsquery/metrics"

	"go.uber.org/zap"
)

// ErrStreamConsumed is returned when an EventStream is drained a second time.
var ErrStreamConsumed = errors.New("event stream already consumed")

// DocumentStore is the authoritative record store. Lookup returns the records
// it has for ids, keyed by id; ids it does not know are simply absent.
type DocumentStore interface {
	Lookup(ctx context.Context, ids []string) (map[string]map[string]interface{}, error)
}

// Resolver turns search hits into full events using a DocumentStore.
type Resolver struct {
	store  DocumentStore
	logger *zap.SugaredLogger
}

// NewResolver creates a resolver backed by store.
func NewResolver(store DocumentStore, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve fetches the records for hits in one batch and returns a stream that
// yields them in hit order. Lookup failures are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, hits []Hit) (*EventStream, error) {
	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}

	var docs map[string]map[string]interface{}
	if len(ids) > 0 {
		start := time.Now()
		var err error
		docs, err = r.store.Lookup(ctx, ids)
		metrics.ResolveDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.QueryFailures.WithLabelValues("resolve").Inc()
			return nil, err
		}
	}

	return &EventStream{ids: ids, docs: docs, logger: r.logger}, nil
}

// EventStream is a single-pass sequence of resolved events. Records are
// decoded lazily as the stream advances.
type EventStream struct {
	ids    []string
	docs   map[string]map[string]interface{}
	pos    int
	cur    *core.Event
	done   bool
	logger *zap.SugaredLogger
}

// Next advances to the next resolvable event. Ids missing from the store and
// records that fail to decode are skipped.
func (s *EventStream) Next() bool {
	if s.done {
		return false
	}
	for s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++

		doc, ok := s.docs[id]
		if !ok {
			metrics.EventsUnresolved.Inc()
			continue
		}
		event, err := core.EventFromMap(doc)
		if err != nil {
			metrics.EventsMalformed.Inc()
			s.logger.Warnw("skipping malformed event", "id", id, "error", err)
			continue
		}
		if event.ID == "" {
			event.ID = id
		}
		s.cur = event
		return true
	}
	s.cur = nil
	s.done = true
	return false
}

// Event returns the event at the current position.
func (s *EventStream) Event() *core.Event {
	return s.cur
}

// Drain consumes the rest of the stream. A stream that has already been
// exhausted cannot be drained again.
func (s *EventStream) Drain() ([]*core.Event, error) {
	if s.done {
		return nil, ErrStreamConsumed
	}
	events := make([]*core.Event, 0, len(s.ids)-s.pos)
	for s.Next() {
		events = append(events, s.cur)
	}
	return events, nil
}
