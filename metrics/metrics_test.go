package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	// Metrics are global; assert they exist and accept observations.
	assert.NotNil(t, QueriesTotal)
	assert.NotNil(t, QueryFailures)
	assert.NotNil(t, SearchDuration)
	assert.NotNil(t, SearchBackendTook)
	assert.NotNil(t, ResolveDuration)
	assert.NotNil(t, EventsUnresolved)
	assert.NotNil(t, EventsMalformed)
	assert.NotNil(t, EventsLoaded)
	assert.NotNil(t, APIPanicsRecovered)
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(QueryFailures.WithLabelValues("search"))
	QueryFailures.WithLabelValues("search").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(QueryFailures.WithLabelValues("search")))

	before = testutil.ToFloat64(QueriesTotal.WithLabelValues("fqdn", "ok"))
	QueriesTotal.WithLabelValues("fqdn", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(QueriesTotal.WithLabelValues("fqdn", "ok")))
}
