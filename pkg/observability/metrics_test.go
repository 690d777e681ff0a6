package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func segment(id, variant string, reused bool) *domain.SegmentEvent {
	return &domain.SegmentEvent{
		EventBase: domain.EventBase{ExperimentID: id},
		VariantID: variant,
		Reused:    reused,
	}
}

func TestMetrics_SegmentOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnSegment(ctx, segment("checkout", "b", false))
	hooks.OnSegment(ctx, segment("checkout", domain.NotParticipating, false))
	hooks.OnSegment(ctx, segment("checkout", domain.NoChosenVariant, false))
	hooks.OnSegment(ctx, segment("checkout", "b", true))
	hooks.OnSegment(ctx, segment("checkout", "a", false))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Segmentations.WithLabelValues("checkout", observability.OutcomeParticipating)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Segmentations.WithLabelValues("checkout", observability.OutcomeNotParticipating)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Segmentations.WithLabelValues("checkout", observability.OutcomeNoChosenVariant)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Segmentations.WithLabelValues("checkout", observability.OutcomeReused)))
}

func TestMetrics_EventsAndExpiry(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()
	ctx := context.Background()
	base := domain.EventBase{ExperimentID: "pricing"}

	hooks.OnStart(ctx, &domain.LifecycleEvent{EventBase: base, Type: domain.EventStart})
	hooks.OnStart(ctx, &domain.LifecycleEvent{EventBase: base, Type: domain.EventStart})
	hooks.OnComplete(ctx, &domain.LifecycleEvent{EventBase: base, Type: domain.EventComplete})
	hooks.OnExpired(ctx, &base)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("pricing", "start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("pricing", "complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Expired.WithLabelValues("pricing")))
}

func TestCombine_FansOutAndSkipsNil(t *testing.T) {
	var calls []string
	first := domain.LifecycleHooks{
		OnSegment: func(context.Context, *domain.SegmentEvent) { calls = append(calls, "first") },
	}
	second := domain.LifecycleHooks{
		OnSegment: func(context.Context, *domain.SegmentEvent) { calls = append(calls, "second") },
	}

	hooks := observability.Combine(first, domain.LifecycleHooks{}, second)
	hooks.OnSegment(context.Background(), segment("x", "a", false))
	hooks.OnComplete(context.Background(), &domain.LifecycleEvent{})

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDebugHooks_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.DebugHooks(logger).OnComplete(context.Background(), &domain.LifecycleEvent{
		EventBase:  domain.EventBase{ExperimentID: "pricing"},
		Assignment: &domain.Assignment{VariantID: "b"},
	})

	assert.Contains(t, buf.String(), "experiment=pricing")
	assert.Contains(t, buf.String(), "variant=b")
}
