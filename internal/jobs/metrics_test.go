package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Start("roles:reconcile_tenant").Tenants(1, 0).Finish(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Start("roles:reconcile_tenant").Tenants(0, 1).Finish(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("roles:reconcile_tenant", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("roles:reconcile_tenant", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("roles:reconcile_tenant")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tenants.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tenants.WithLabelValues("failure")))
}

func TestRunAccumulatesTenants(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, m.Start("roles:reconcile_all").Tenants(3, 0).Tenants(1, 0).Finish(nil))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.tenants.WithLabelValues("success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tenants), "no failure series without failures")
}

func TestNilMetricsRecordsNothing(t *testing.T) {
	var m *Metrics
	err := errors.New("x")
	assert.Equal(t, err, m.Start("job").Tenants(1, 1).Finish(err))
	assert.NotPanics(t, func() { NewMetrics(nil); NewMetrics(nil) })
}
