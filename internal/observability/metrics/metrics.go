package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderFlowMetrics exposes counters/histograms for the order flow portal.
type OrderFlowMetrics struct {
	gatewayTotal     *prometheus.CounterVec
	gatewayLatency   *prometheus.HistogramVec
	commandsTotal    *prometheus.CounterVec
	staleTotal       *prometheus.CounterVec
	persistFailures  prometheus.Counter
	paymentTotal     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	reconcileRecords *prometheus.CounterVec
	openOrphans      prometheus.Gauge
}

func NewOrderFlowMetrics(reg prometheus.Registerer) *OrderFlowMetrics {
	m := &OrderFlowMetrics{
		gatewayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total remote service calls by operation and HTTP status",
		}, []string{"op", "status"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "gateway",
			Name:      "request_latency_seconds",
			Help:      "Latency of remote service calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "orderflow",
			Name:      "commands_total",
			Help:      "Commands dispatched to order flow stores",
		}, []string{"command"}),
		staleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "orderflow",
			Name:      "stale_responses_total",
			Help:      "Fetch results discarded because a newer request superseded them",
		}, []string{"source"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "orderflow",
			Name:      "persist_failures_total",
			Help:      "Snapshot writes that failed",
		}),
		paymentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "orderflow",
			Name:      "payment_submissions_total",
			Help:      "Payment submissions by outcome",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "portal",
			Name:      "active_sessions",
			Help:      "Order flow sessions held in memory",
		}),
		reconcileRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reconcile",
			Name:      "orphans_total",
			Help:      "Orphaned payment-info records flagged for operators",
		}, []string{"status"}),
		openOrphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "reconcile",
			Name:      "open_orphans",
			Help:      "Orphaned payment-info records not yet resolved",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.gatewayTotal,
		m.gatewayLatency,
		m.commandsTotal,
		m.staleTotal,
		m.persistFailures,
		m.paymentTotal,
		m.activeSessions,
		m.reconcileRecords,
		m.openOrphans,
	)
	return m
}

// ObserveGateway records a finished remote call. status is 0 for transport failures.
func (m *OrderFlowMetrics) ObserveGateway(op string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.gatewayTotal.WithLabelValues(op, label).Inc()
	m.gatewayLatency.WithLabelValues(op).Observe(seconds)
}

func (m *OrderFlowMetrics) ObserveCommand(command string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}

func (m *OrderFlowMetrics) ObserveStale(source string) {
	if m == nil {
		return
	}
	m.staleTotal.WithLabelValues(source).Inc()
}

func (m *OrderFlowMetrics) ObservePersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *OrderFlowMetrics) ObservePayment(outcome string) {
	if m == nil {
		return
	}
	m.paymentTotal.WithLabelValues(outcome).Inc()
}

func (m *OrderFlowMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *OrderFlowMetrics) ObserveOrphan(status string) {
	if m == nil {
		return
	}
	m.reconcileRecords.WithLabelValues(status).Inc()
}

func (m *OrderFlowMetrics) SetOpenOrphans(n int) {
	if m == nil {
		return
	}
	m.openOrphans.Set(float64(n))
}
