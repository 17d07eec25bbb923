package search

import (
	"encoding/json"
	"time"

	"obsquery/core"
)

// Clause is one filter inside a boolean query. The set of variants is closed:
// TimeRange, NestedMultiMatch and MatchAll.
type Clause interface {
	json.Marshaler
	clause()
}

// TimeRange restricts a timestamp field to an inclusive range. At least one
// of GTE and LTE is set when built through TimeRangeClause.
type TimeRange struct {
	Field string
	GTE   *time.Time
	LTE   *time.Time
}

// NestedMultiMatch matches Query against any of Fields inside the nested
// objects at Path.
type NestedMultiMatch struct {
	Path   string
	Query  string
	Fields []string
}

// MatchAll matches every document.
type MatchAll struct{}

func (TimeRange) clause()        {}
func (NestedMultiMatch) clause() {}
func (MatchAll) clause()         {}

// MarshalJSON renders {"range":{field:{"gte":..,"lte":..}}} with absent bounds omitted.
func (c TimeRange) MarshalJSON() ([]byte, error) {
	bounds := make(map[string]string, 2)
	if c.GTE != nil {
		bounds["gte"] = core.FormatTime(*c.GTE)
	}
	if c.LTE != nil {
		bounds["lte"] = core.FormatTime(*c.LTE)
	}
	return json.Marshal(map[string]interface{}{
		"range": map[string]interface{}{c.Field: bounds},
	})
}

// MarshalJSON renders {"nested":{"path":..,"query":{"multi_match":{..}}}}.
func (c NestedMultiMatch) MarshalJSON() ([]byte, error) {
	fields := c.Fields
	if fields == nil {
		fields = []string{}
	}
	return json.Marshal(map[string]interface{}{
		"nested": map[string]interface{}{
			"path": c.Path,
			"query": map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  c.Query,
					"fields": fields,
				},
			},
		},
	})
}

// MarshalJSON renders {"match_all":{}}.
func (MatchAll) MarshalJSON() ([]byte, error) {
	return []byte(`{"match_all":{}}`), nil
}

// TimeRangeClause builds a range clause over field. It reports false when
// neither bound is present, in which case no clause should be emitted.
// Bounds are truncated to whole seconds.
func TimeRangeClause(field string, min, max *time.Time) (Clause, bool) {
	if min == nil && max == nil {
		return nil, false
	}
	return TimeRange{
		Field: field,
		GTE:   truncateSecond(min),
		LTE:   truncateSecond(max),
	}, true
}

// NestedMatchClause builds a nested multi-field match of value under path.
func NestedMatchClause(path, value string, fields []string) Clause {
	return NestedMultiMatch{
		Path:   path,
		Query:  value,
		Fields: append([]string(nil), fields...),
	}
}

func truncateSecond(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	truncated := t.Truncate(time.Second)
	return &truncated
}
