// Package metrics exposes the bacnetd daemon's Prometheus collectors:
// APDU throughput, service errors, DCC status, and segmented transactions
// in flight, registered with promauto against a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the daemon updates. A nil *Metrics is
// valid everywhere it's passed: every method is a no-op on a nil
// receiver, so disabling metrics costs nothing at call sites.
type Metrics struct {
	registry *prometheus.Registry

	apdusReceived *prometheus.CounterVec
	apdusSent     *prometheus.CounterVec
	serviceErrors *prometheus.CounterVec
	dccStatus     prometheus.Gauge
	segmentedTxns prometheus.Gauge
}

// New builds a Metrics instance, or returns nil when enabled is false
// so callers don't need a separate "metrics disabled" branch.
func New(enabled bool) *Metrics {
	if !enabled {
		return nil
	}

	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,
		apdusReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bacnetd_apdus_received_total",
			Help: "Total APDUs received by PDU type.",
		}, []string{"pdu_type"}),
		apdusSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bacnetd_apdus_sent_total",
			Help: "Total APDUs sent by PDU type.",
		}, []string{"pdu_type"}),
		serviceErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bacnetd_service_errors_total",
			Help: "Total BACnet-Error-PDUs returned by error class.",
		}, []string{"error_class"}),
		dccStatus: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "bacnetd_dcc_status",
			Help: "DeviceCommunicationControl status: 0=enabled, 1=disabled, 2=disabled-initiation.",
		}),
		segmentedTxns: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "bacnetd_segmented_transactions_in_flight",
			Help: "Number of segmented transactions currently being sent or reassembled.",
		}),
	}
}

// Handler returns the HTTP handler the daemon serves /metrics with.
// Returns nil when m is nil.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPDUReceived(pduType string) {
	if m == nil {
		return
	}
	m.apdusReceived.WithLabelValues(pduType).Inc()
}

func (m *Metrics) ObserveAPDUSent(pduType string) {
	if m == nil {
		return
	}
	m.apdusSent.WithLabelValues(pduType).Inc()
}

func (m *Metrics) ObserveServiceError(errorClass string) {
	if m == nil {
		return
	}
	m.serviceErrors.WithLabelValues(errorClass).Inc()
}

func (m *Metrics) SetDCCStatus(status int) {
	if m == nil {
		return
	}
	m.dccStatus.Set(float64(status))
}

func (m *Metrics) SetSegmentedTransactions(n int) {
	if m == nil {
		return
	}
	m.segmentedTxns.Set(float64(n))
}
