package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.LicensesIssued.WithLabelValues("PERSONAL").Inc()
	m.Entitlements.WithLabelValues(ResultOK).Inc()
	m.Entitlements.WithLabelValues("QUOTA_EXCEEDED").Add(2)
	m.DownloadsCreated.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LicensesIssued.WithLabelValues("PERSONAL")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Entitlements.WithLabelValues("QUOTA_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DownloadsCreated))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}
