package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStoreOp(t *testing.T) {
	m := New()

	m.ObserveStoreOp("insert", time.Now(), nil)
	m.ObserveStoreOp("insert", time.Now(), nil)
	m.ObserveStoreOp("insert", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreOpsTotal.WithLabelValues("insert", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOpsTotal.WithLabelValues("insert", OutcomeError)))
}

func TestObserveQuery(t *testing.T) {
	m := New()

	m.ObserveQuery(OutcomeOK, time.Now(), 3, 1)
	m.ObserveQuery(OutcomeMalformed, time.Now(), 0, 0)
	m.AddRowsScanned(5)
	m.AddRowsScanned(-1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryRunsTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryRunsTotal.WithLabelValues(OutcomeMalformed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocumentsMatchedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ACLDeniedTotal))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RowsScannedTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveStoreOp("get", time.Now(), nil)
		m.AddRowsScanned(1)
		m.ObserveQuery(OutcomeOK, time.Now(), 1, 0)
	})
	families, err := m.Gather()
	assert.NoError(t, err)
	assert.Nil(t, families)
}

func TestSeparateRegistries(t *testing.T) {
	a := New()
	b := New()

	a.AddRowsScanned(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.RowsScannedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsScannedTotal))

	families, err := a.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "localdoc_store_rows_scanned_total")
}
