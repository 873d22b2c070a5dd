package session

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chukul/sessionctl/internal/workspace"
)

// Metrics records lifecycle activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	startDuration *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	active        *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionctl_session_transitions_total",
				Help: "Total number of session lifecycle operations",
			},
			[]string{"type", "operation", "result"},
		),
		startDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sessionctl_session_start_duration_seconds",
				Help:    "Time taken to acquire credentials and activate a session",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionctl_provider_retries_total",
				Help: "Total number of provider calls retried after a transient error",
			},
			[]string{"type"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sessionctl_sessions_active",
				Help: "Current number of active sessions",
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.startDuration, m.retries, m.active)
	}
	return m
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

func (m *Metrics) observeTransition(typ workspace.SessionType, operation string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(typ), operation, result(err)).Inc()
	if operation == "start" && err == nil {
		m.startDuration.WithLabelValues(string(typ)).Observe(took.Seconds())
	}
}

func (m *Metrics) observeRetry(typ workspace.SessionType) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(string(typ)).Inc()
}

// SetActive recomputes the active gauge from a session list.
func (m *Metrics) SetActive(sessions []workspace.Session) {
	if m == nil {
		return
	}
	counts := make(map[workspace.SessionType]int, len(workspace.SessionTypes))
	for _, s := range sessions {
		if s.Status == workspace.StatusActive {
			counts[s.Type]++
		}
	}
	for _, t := range workspace.SessionTypes {
		m.active.WithLabelValues(string(t)).Set(float64(counts[t]))
	}
}
