package search

import (
	"encoding/json"

	"obsquery/core"
)

// FilterTarget is one nested location an observable value may appear at.
type FilterTarget struct {
	Path   string
	Fields []string
}

// Observable filter tables. An IPv4 or FQDN value produces one should clause
// per target.
var (
	ipv4Targets = []FilterTarget{
		{Path: "observables.ipv4", Fields: []string{"observables.ipv4.ipv4"}},
		{Path: "observables.dns_answer", Fields: []string{"observables.dns_answer.ipv4"}},
	}
	fqdnTargets = []FilterTarget{
		{Path: "observables.fqdn", Fields: []string{"observables.fqdn.fqdn"}},
		{Path: "observables.dns_answer", Fields: []string{"observables.dns_answer.name", "observables.dns_answer.fqdn"}},
	}
)

// IPv4Targets returns a copy of the IPv4 filter table.
func IPv4Targets() []FilterTarget { return copyTargets(ipv4Targets) }

// FQDNTargets returns a copy of the FQDN filter table.
func FQDNTargets() []FilterTarget { return copyTargets(fqdnTargets) }

func copyTargets(targets []FilterTarget) []FilterTarget {
	out := make([]FilterTarget, len(targets))
	for i, t := range targets {
		out[i] = FilterTarget{Path: t.Path, Fields: append([]string(nil), t.Fields...)}
	}
	return out
}

// BoolQuery is a boolean composition of clauses. Every Must clause has to
// match; when Should is non-empty, at least MinimumShouldMatch of them must.
type BoolQuery struct {
	Must               []Clause
	Should             []Clause
	MinimumShouldMatch *int
}

// MarshalJSON renders {"bool":{...}}, omitting empty sections.
func (q *BoolQuery) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, 3)
	if len(q.Must) > 0 {
		body["must"] = q.Must
	}
	if len(q.Should) > 0 {
		body["should"] = q.Should
	}
	if q.MinimumShouldMatch != nil {
		body["minimum_should_match"] = *q.MinimumShouldMatch
	}
	return json.Marshal(map[string]interface{}{"bool": body})
}

// Assemble translates params into a boolean query. Time bounds become must
// clauses, observable filters become should clauses, and a query with no
// filters at all matches everything.
func Assemble(params *core.QueryParams) *BoolQuery {
	q := &BoolQuery{}

	if c, ok := TimeRangeClause(core.FieldImportTime, params.ImportTimeMin, params.ImportTimeMax); ok {
		q.Must = append(q.Must, c)
	}
	if c, ok := TimeRangeClause(core.FieldDetectTime, params.DetectTimeMin, params.DetectTimeMax); ok {
		q.Must = append(q.Must, c)
	}

	if params.HasIPv4() {
		for _, target := range ipv4Targets {
			q.Should = append(q.Should, NestedMatchClause(target.Path, params.IPv4, target.Fields))
		}
	}
	if params.HasFQDN() {
		for _, target := range fqdnTargets {
			q.Should = append(q.Should, NestedMatchClause(target.Path, params.FQDN, target.Fields))
		}
	}

	if len(q.Must) == 0 && len(q.Should) == 0 {
		q.Must = []Clause{MatchAll{}}
	}
	if len(q.Should) > 0 {
		one := 1
		q.MinimumShouldMatch = &one
	}
	return q
}
