package sockio

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes recorded by Metrics.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCanceled  = "canceled"
	OutcomeAbandoned = "abandoned"
)

// Metrics holds Prometheus collectors shared by any number of sockets.
// A nil *Metrics records nothing.
type Metrics struct {
	connections     prometheus.Counter
	connectFailures prometheus.Counter
	openConnections prometheus.Gauge
	operations      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg
// is not nil. Registration conflicts panic, as with MustRegister.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "connections_total",
			Help:      "Number of successfully established connections.",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "connect_failures_total",
			Help:      "Number of failed connection attempts.",
		}),
		openConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "open_connections",
			Help:      "Number of connections currently held open.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "operations_total",
			Help:      "Number of socket operations by name and outcome.",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.connectFailures, m.openConnections, m.operations)
	}
	return m
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.openConnections.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.openConnections.Dec()
}

func (m *Metrics) connectFailed() {
	if m == nil {
		return
	}
	m.connectFailures.Inc()
}

func (m *Metrics) operation(name, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

// outcomeOf classifies an operation result.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
