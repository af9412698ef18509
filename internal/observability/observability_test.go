package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.EventsNormalized.Add(3)
	a.Queries.WithLabelValues("asia", "ok").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(a.EventsNormalized), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.EventsNormalized), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(a.Queries.WithLabelValues("asia", "ok")), 0)
}
