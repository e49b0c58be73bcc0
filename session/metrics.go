package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opLoad   = "load"
	opCreate = "create"
	opSave   = "save"
	opDelete = "delete"
)

// Metrics counts session operations. A nil *Metrics counts nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
}

// NewMetrics registers the session collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visits",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session operations by type: load, create, save or delete",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visits",
			Subsystem: "session",
			Name:      "errors_total",
			Help:      "Session store failures by operation",
		}, []string{"op"}),
	}
	reg.MustRegister(m.operations, m.errors)
	return m
}

func (m *Metrics) op(name string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name).Inc()
}

func (m *Metrics) failed(name string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(name).Inc()
}
