package core

import "time"

// Timing records the lifecycle of one query. SearchTook is the backend's own
// report of its execution time, in milliseconds.
type Timing struct {
	RequestStart  time.Time `json:"request_start"`
	QueryStart    time.Time `json:"query_start"`
	SearchStart   time.Time `json:"search_start"`
	SearchFinish  time.Time `json:"search_finish"`
	ResolveStart  time.Time `json:"resolve_start"`
	ResolveFinish time.Time `json:"resolve_finish"`
	SearchTook    int64     `json:"search_took"`
}

// SearchDuration is the wall time spent waiting on the search backend.
func (t Timing) SearchDuration() time.Duration {
	return t.SearchFinish.Sub(t.SearchStart)
}

// ResolveDuration is the wall time spent resolving hits against the document store.
func (t Timing) ResolveDuration() time.Duration {
	return t.ResolveFinish.Sub(t.ResolveStart)
}

// Total is the time from request receipt until resolution finished.
func (t Timing) Total() time.Duration {
	return t.ResolveFinish.Sub(t.RequestStart)
}

// Response is the result of one pipeline run. TotalEvents is the backend's
// total match count, not the number of events on this page.
type Response struct {
	TotalEvents int64        `json:"total_events"`
	Query       *QueryParams `json:"query"`
	Events      []*Event     `json:"events"`
	Timing      *Timing      `json:"timing,omitempty"`
}

// TimingView is Timing as presented to clients, with derived durations in
// milliseconds.
type TimingView struct {
	Timing
	SearchMS  float64 `json:"search_ms"`
	ResolveMS float64 `json:"resolve_ms"`
	TotalMS   float64 `json:"total_ms"`
}

// ResponseView is the presented form of a Response. Timing is present only
// when the query asked for it.
type ResponseView struct {
	TotalEvents int64        `json:"total_events"`
	Query       *QueryParams `json:"query"`
	Events      []*Event     `json:"events"`
	Timing      *TimingView  `json:"timing,omitempty"`
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// View prepares r for presentation.
func (r *Response) View() *ResponseView {
	view := &ResponseView{
		TotalEvents: r.TotalEvents,
		Query:       r.Query,
		Events:      r.Events,
	}
	if view.Events == nil {
		view.Events = []*Event{}
	}
	if r.Timing != nil && r.Query != nil && r.Query.TimingRequested() {
		view.Timing = &TimingView{
			Timing:    *r.Timing,
			SearchMS:  milliseconds(r.Timing.SearchDuration()),
			ResolveMS: milliseconds(r.Timing.ResolveDuration()),
			TotalMS:   milliseconds(r.Timing.Total()),
		}
	}
	return view
}
