package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.SnapshotsStored.Inc()
	a.FetchRequests.WithLabelValues("slice", "success").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.SnapshotsStored), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.SnapshotsStored), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(a.FetchRequests.WithLabelValues("slice", "success")), 0)
}
