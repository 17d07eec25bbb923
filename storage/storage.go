package storage

import (
	"context"
	"strings"

	"obsquery/core"
	"obsquery/search"
)

// SearchIndex is a search engine holding event identifiers and the fields
// queries filter and sort on.
type SearchIndex interface {
	search.Backend
	// EnsureIndex creates the index and its mapping if it does not exist.
	EnsureIndex(ctx context.Context) error
	IndexEvents(ctx context.Context, events []*core.Event) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// EventStore is the authoritative store for full event records.
type EventStore interface {
	search.DocumentStore
	PutEvents(ctx context.Context, events []*core.Event) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Search backend names.
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

// Document store names.
const (
	BackendMongoDB = "mongodb"
	BackendSQLite  = "sqlite"
)

// parseSort splits a "<field>:<order>" directive. ok is false for an empty directive.
func parseSort(directive string) (field string, desc bool, ok bool) {
	if directive == "" {
		return "", false, false
	}
	if i := strings.LastIndex(directive, ":"); i >= 0 {
		return directive[:i], directive[i+1:] == core.OrderDesc, true
	}
	return directive, false, true
}
