// Package core defines the domain model shared by the query pipeline, the
// storage adapters and the HTTP layer.
//
// # Overview
//
// The core package provides:
//   - Event and its typed observables (IPv4, FQDN, DNS answers)
//   - QueryParams, the normalized search request with its defaults
//   - Timing and Response, the result of one pipeline run
//
// Values in this package are plain data. They are built once per request and
// are not shared between requests, so none of them carry locks.
package core
