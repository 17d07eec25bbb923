package search

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeRangeClause(t *testing.T) {
	min := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	max := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		min      *time.Time
		max      *time.Time
		wantOK   bool
		wantJSON string
	}{
		{
			name:   "no bounds",
			wantOK: false,
		},
		{
			name:     "lower bound only",
			min:      &min,
			wantOK:   true,
			wantJSON: `{"range":{"import_time":{"gte":"2024-05-01T12:00:00Z"}}}`,
		},
		{
			name:     "upper bound only",
			max:      &max,
			wantOK:   true,
			wantJSON: `{"range":{"import_time":{"lte":"2024-05-08T12:00:00Z"}}}`,
		},
		{
			name:     "both bounds",
			min:      &min,
			max:      &max,
			wantOK:   true,
			wantJSON: `{"range":{"import_time":{"gte":"2024-05-01T12:00:00Z","lte":"2024-05-08T12:00:00Z"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, ok := TimeRangeClause("import_time", tt.min, tt.max)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, clause)
				return
			}
			data, err := json.Marshal(clause)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(data))
		})
	}
}

func TestTimeRangeClauseSecondPrecision(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	min := time.Date(2024, 5, 1, 7, 0, 0, 999_000_000, zone)

	clause, ok := TimeRangeClause("detect_time", &min, nil)
	require.True(t, ok)

	rng := clause.(TimeRange)
	require.NotNil(t, rng.GTE)
	assert.Equal(t, 0, rng.GTE.Nanosecond())
	assert.Nil(t, rng.LTE)

	data, err := json.Marshal(clause)
	require.NoError(t, err)
	assert.JSONEq(t, `{"range":{"detect_time":{"gte":"2024-05-01T07:00:00-05:00"}}}`, string(data))
}

func TestNestedMatchClause(t *testing.T) {
	fields := []string{"observables.dns_answer.name", "observables.dns_answer.fqdn"}
	clause := NestedMatchClause("observables.dns_answer", "example.com", fields)

	data, err := json.Marshal(clause)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nested": {
			"path": "observables.dns_answer",
			"query": {
				"multi_match": {
					"query": "example.com",
					"fields": ["observables.dns_answer.name", "observables.dns_answer.fqdn"]
				}
			}
		}
	}`, string(data))

	// The clause owns its field list.
	fields[0] = "mutated"
	assert.Equal(t, "observables.dns_answer.name", clause.(NestedMultiMatch).Fields[0])
}

func TestMatchAllClause(t *testing.T) {
	data, err := json.Marshal(MatchAll{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_all":{}}`, string(data))
}
