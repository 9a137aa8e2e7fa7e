package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMutation("earning", nil)
		m.ObserveWithdrawal("approve", nil)
		m.ObserveRefundTransition("complete", nil)
		m.ObserveReconcile("w-1", false, 5)
		m.ObserveReconcileRun(time.Now())
		m.ObserveNotification("email", errors.New("down"))
		m.ObserveConflict()
		m.ObserveLatency("ApplyDelta", time.Now())
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMutation("earning", nil)
	m.ObserveMutation("earning", nil)
	m.ObserveMutation("withdraw_approved", errors.New("insufficient"))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.mutationsTotal.WithLabelValues("earning", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mutationsTotal.WithLabelValues("withdraw_approved", "error")))

	m.ObserveConflict()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.txConflictsTotal))
}

func TestReconcileDrift(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveReconcile("w-1", false, -250)
	assert.Equal(t, float64(-250), testutil.ToFloat64(m.reconcileDrift.WithLabelValues("w-1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconcileRunsTotal.WithLabelValues("mismatch")))

	m.ObserveReconcile("w-1", true, 0)
	assert.Equal(t, 0, testutil.CollectAndCount(m.reconcileDrift))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconcileRunsTotal.WithLabelValues("match")))
}
