package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseSort tests sort directive parsing
func TestParseSort(t *testing.T) {
	tests := []struct {
		directive string
		field     string
		desc      bool
		ok        bool
	}{
		{"import_time:desc", "import_time", true, true},
		{"detect_time:asc", "detect_time", false, true},
		{"import_time", "import_time", false, true},
		{"", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.directive, func(t *testing.T) {
			field, desc, ok := parseSort(tt.directive)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.desc, desc)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

// TestBackendsImplementInterfaces tests compile-time interface conformance
func TestBackendsImplementInterfaces(t *testing.T) {
	var _ SearchIndex = (*ElasticsearchBackend)(nil)
	var _ SearchIndex = (*BleveBackend)(nil)
	var _ EventStore = (*MongoEventStore)(nil)
	var _ EventStore = (*SQLiteEventStore)(nil)
}
