package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HookMetrics records metadata for row-lifecycle hooks.
type HookMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewHookMetrics registers the hook metrics on the provided registerer.
func NewHookMetrics(reg prometheus.Registerer) *HookMetrics {
	if reg == nil {
		return &HookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hook_duration_seconds",
		Help:    "Duration of lifecycle hooks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"hook"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_success",
		Help: "Successful lifecycle hook executions.",
	}, []string{"hook"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_failure",
		Help: "Failed lifecycle hook executions.",
	}, []string{"hook"})
	reg.MustRegister(duration, success, failure)
	return &HookMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named hook.
func (h *HookMetrics) ObserveDuration(hook string, duration time.Duration) {
	if h == nil || h.duration == nil {
		return
	}
	h.duration.WithLabelValues(normalizeLabel(hook)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named hook.
func (h *HookMetrics) IncSuccess(hook string) {
	if h == nil || h.success == nil {
		return
	}
	h.success.WithLabelValues(normalizeLabel(hook)).Inc()
}

// IncFailure increments the failure counter for the named hook.
func (h *HookMetrics) IncFailure(hook string) {
	if h == nil || h.failure == nil {
		return
	}
	h.failure.WithLabelValues(normalizeLabel(hook)).Inc()
}
