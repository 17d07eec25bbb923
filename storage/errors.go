package storage

import "errors"

// Storage error constants
var (
	// ErrUnknownBackend is returned when configuration names a backend that does not exist
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrIndexNotFound is returned when the search index does not exist
	ErrIndexNotFound = errors.New("search index not found")

	// ErrSearchFailed is returned when the search engine rejects a request
	ErrSearchFailed = errors.New("search request failed")

	// ErrEventWithoutID is returned when an event is written without an identifier
	ErrEventWithoutID = errors.New("event has no id")
)
