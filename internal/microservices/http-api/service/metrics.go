package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	pointsAwarded     *prometheus.CounterVec
	completions       *prometheus.CounterVec
	circlesCreated    prometheus.Counter
	membershipChanges *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pointsAwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circle_points_awarded_total",
				Help: "Points credited to circle memberships",
			},
			[]string{"challenge_type", "source"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_completions_total",
				Help: "Challenge completion transitions",
			},
			[]string{"challenge_type"},
		),
		circlesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "circles_created_total",
				Help: "Reading circles created",
			},
		),
		membershipChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circle_membership_changes_total",
				Help: "Joins and leaves across all circles",
			},
			[]string{"action"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.pointsAwarded, m.completions, m.circlesCreated, m.membershipChanges)
	}
	return m
}

func (m *Metrics) progressApplied(kind string, source string, out ProgressOutcome) {
	if m == nil {
		return
	}
	if p := out.Points(); p > 0 {
		m.pointsAwarded.WithLabelValues(kind, source).Add(float64(p))
	}
	if out.CompletedNow {
		m.completions.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) circleCreated() {
	if m == nil {
		return
	}
	m.circlesCreated.Inc()
}

func (m *Metrics) membership(action string) {
	if m == nil {
		return
	}
	m.membershipChanges.WithLabelValues(action).Inc()
}
