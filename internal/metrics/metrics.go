package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tourledger"

// Metrics is safe to use as a nil pointer; every observer is a no-op then.
type Metrics struct {
	mutationsTotal       *prometheus.CounterVec
	withdrawalsTotal     *prometheus.CounterVec
	refundTransitions    *prometheus.CounterVec
	reconcileRunsTotal   *prometheus.CounterVec
	reconcileDrift       *prometheus.GaugeVec
	reconcileLastRunUnix prometheus.Gauge
	notificationsTotal   *prometheus.CounterVec
	txConflictsTotal     prometheus.Counter
	operationLatencySecs *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		mutationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "mutations_total",
				Help:      "Balance mutations partitioned by transaction type and result.",
			},
			[]string{"type", "result"},
		),
		withdrawalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "withdrawal",
				Name:      "requests_total",
				Help:      "Withdrawal lifecycle events partitioned by stage and result.",
			},
			[]string{"stage", "result"},
		),
		refundTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refund",
				Name:      "transitions_total",
				Help:      "Refund state transitions partitioned by action and result.",
			},
			[]string{"action", "result"},
		),
		reconcileRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "wallets_total",
				Help:      "Reconciled wallets partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		reconcileDrift: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "drift",
				Help:      "Stored minus computed balance for wallets that last failed reconciliation.",
			},
			[]string{"wallet_id"},
		),
		reconcileLastRunUnix: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "last_run_unix",
				Help:      "Unix time of the most recent full reconciliation run.",
			},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notification",
				Name:      "dispatch_total",
				Help:      "Post-commit notifications partitioned by channel and result.",
			},
			[]string{"channel", "result"},
		),
		txConflictsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "tx_conflicts_total",
				Help:      "Units of work that surfaced a concurrency conflict.",
			},
		),
		operationLatencySecs: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency of ledger operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveMutation(txType string, err error) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(txType, result(err)).Inc()
}

func (m *Metrics) ObserveWithdrawal(stage string, err error) {
	if m == nil {
		return
	}
	m.withdrawalsTotal.WithLabelValues(stage, result(err)).Inc()
}

func (m *Metrics) ObserveRefundTransition(action string, err error) {
	if m == nil {
		return
	}
	m.refundTransitions.WithLabelValues(action, result(err)).Inc()
}

// ObserveReconcile records one wallet check. Drift is kept only while the
// wallet is out of balance.
func (m *Metrics) ObserveReconcile(walletID string, matches bool, drift int64) {
	if m == nil {
		return
	}
	if matches {
		m.reconcileRunsTotal.WithLabelValues("match").Inc()
		m.reconcileDrift.DeleteLabelValues(walletID)
		return
	}
	m.reconcileRunsTotal.WithLabelValues("mismatch").Inc()
	m.reconcileDrift.WithLabelValues(walletID).Set(float64(drift))
}

func (m *Metrics) ObserveReconcileRun(at time.Time) {
	if m == nil {
		return
	}
	m.reconcileLastRunUnix.Set(float64(at.Unix()))
}

func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, result(err)).Inc()
}

func (m *Metrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.txConflictsTotal.Inc()
}

func (m *Metrics) ObserveLatency(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.operationLatencySecs.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
