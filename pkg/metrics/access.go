package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics records the outcome of row-access policy checks.
type AccessMetrics struct {
	allowed *prometheus.CounterVec
	denied  *prometheus.CounterVec
}

// NewAccessMetrics registers the access metrics on the provided registerer.
func NewAccessMetrics(reg prometheus.Registerer) *AccessMetrics {
	if reg == nil {
		return &AccessMetrics{}
	}
	allowed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_allowed",
		Help: "Access checks that granted the requested operation.",
	}, []string{"table", "operation"})
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_denied",
		Help: "Access checks that refused the requested operation.",
	}, []string{"table", "operation"})
	reg.MustRegister(allowed, denied)
	return &AccessMetrics{
		allowed: allowed,
		denied:  denied,
	}
}

// IncAllowed increments the granted counter for the table/operation pair.
func (a *AccessMetrics) IncAllowed(table, operation string) {
	if a == nil || a.allowed == nil {
		return
	}
	a.allowed.WithLabelValues(normalizeLabel(table), normalizeLabel(operation)).Inc()
}

// IncDenied increments the refused counter for the table/operation pair.
func (a *AccessMetrics) IncDenied(table, operation string) {
	if a == nil || a.denied == nil {
		return
	}
	a.denied.WithLabelValues(normalizeLabel(table), normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
