package core

import (
	"encoding/json"
	"time"
)

// QueryParams is the normalized search request. It is treated as read-only
// once it has been handed to the pipeline.
type QueryParams struct {
	Start   int    `json:"start" validate:"min=1"`
	PerPage int    `json:"per_page" validate:"min=1"`
	OrderBy string `json:"order_by"`
	Order   string `json:"order" validate:"oneof=asc desc"`
	Timing  int    `json:"timing" validate:"oneof=0 1"`

	ImportTimeMin *time.Time `json:"import_time_min"`
	ImportTimeMax *time.Time `json:"import_time_max"`
	DetectTimeMin *time.Time `json:"detect_time_min"`
	DetectTimeMax *time.Time `json:"detect_time_max"`

	IPv4 string `json:"ipv4,omitempty" validate:"omitempty,ipv4"`
	FQDN string `json:"fqdn,omitempty" validate:"omitempty,fqdn"`
}

// NewQueryParams returns params with the request defaults: first page of
// perPage results, newest imports first, limited to imports within window of now.
func NewQueryParams(now time.Time, window time.Duration, perPage int) *QueryParams {
	importMin := now.Add(-window)
	return &QueryParams{
		Start:         DefaultStart,
		PerPage:       perPage,
		OrderBy:       DefaultOrderBy,
		Order:         DefaultOrder,
		ImportTimeMin: &importMin,
	}
}

// DefaultQueryParams returns NewQueryParams with the built-in window and page size.
func DefaultQueryParams(now time.Time) *QueryParams {
	return NewQueryParams(now, DefaultImportWindow, DefaultPerPage)
}

// HasIPv4 reports whether an IPv4 observable filter is present.
func (p *QueryParams) HasIPv4() bool { return p.IPv4 != "" }

// HasFQDN reports whether an FQDN observable filter is present.
func (p *QueryParams) HasFQDN() bool { return p.FQDN != "" }

// TimingRequested reports whether the caller asked for timing diagnostics.
func (p *QueryParams) TimingRequested() bool { return p.Timing != 0 }

// FormatTime renders t as RFC 3339 with second precision and a zone offset.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// MarshalJSON echoes the params with second-precision timestamps and
// explicit nulls for absent bounds.
func (p QueryParams) MarshalJSON() ([]byte, error) {
	type echo QueryParams
	return json.Marshal(struct {
		echo
		ImportTimeMin *string `json:"import_time_min"`
		ImportTimeMax *string `json:"import_time_max"`
		DetectTimeMin *string `json:"detect_time_min"`
		DetectTimeMax *string `json:"detect_time_max"`
	}{
		echo:          echo(p),
		ImportTimeMin: formatTimePtr(p.ImportTimeMin),
		ImportTimeMax: formatTimePtr(p.ImportTimeMax),
		DetectTimeMin: formatTimePtr(p.DetectTimeMin),
		DetectTimeMax: formatTimePtr(p.DetectTimeMax),
	})
}
