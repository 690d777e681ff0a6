package observability

import (
	"context"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Segmentation outcomes reported by cohort_segmentations_total.
const (
	OutcomeParticipating    = "participating"
	OutcomeNotParticipating = "not-participating"
	OutcomeNoChosenVariant  = "no-chosen-variant"
	OutcomeReused           = "reused"
)

// Metrics holds the Prometheus collectors fed by experiment lifecycle hooks.
type Metrics struct {
	Segmentations *prometheus.CounterVec
	Events        *prometheus.CounterVec
	Expired       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Segmentations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_segmentations_total",
				Help: "Segment calls by experiment and outcome",
			},
			[]string{"experiment", "outcome"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_events_total",
				Help: "Lifecycle events fired by experiment and event",
			},
			[]string{"experiment", "event"},
		),
		Expired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_expired_total",
				Help: "Segment calls rejected because the experiment expired",
			},
			[]string{"experiment"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Segmentations, m.Events, m.Expired)
	}
	return m
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSegment: func(ctx context.Context, e *domain.SegmentEvent) {
			m.Segmentations.WithLabelValues(e.ExperimentID, outcome(e)).Inc()
		},
		OnStart: func(ctx context.Context, e *domain.LifecycleEvent) {
			m.Events.WithLabelValues(e.ExperimentID, string(domain.EventStart)).Inc()
		},
		OnComplete: func(ctx context.Context, e *domain.LifecycleEvent) {
			m.Events.WithLabelValues(e.ExperimentID, string(domain.EventComplete)).Inc()
		},
		OnExpired: func(ctx context.Context, e *domain.EventBase) {
			m.Expired.WithLabelValues(e.ExperimentID).Inc()
		},
	}
}

func outcome(e *domain.SegmentEvent) string {
	switch {
	case e.Reused:
		return OutcomeReused
	case e.VariantID == domain.NotParticipating:
		return OutcomeNotParticipating
	case e.VariantID == domain.NoChosenVariant:
		return OutcomeNoChosenVariant
	default:
		return OutcomeParticipating
	}
}
