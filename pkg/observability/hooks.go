package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/cohort/pkg/domain"
)

// Combine fans every event out to all given hooks, in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSegment: func(ctx context.Context, e *domain.SegmentEvent) {
			for _, h := range hooks {
				if h.OnSegment != nil {
					h.OnSegment(ctx, e)
				}
			}
		},
		OnStart: func(ctx context.Context, e *domain.LifecycleEvent) {
			for _, h := range hooks {
				if h.OnStart != nil {
					h.OnStart(ctx, e)
				}
			}
		},
		OnComplete: func(ctx context.Context, e *domain.LifecycleEvent) {
			for _, h := range hooks {
				if h.OnComplete != nil {
					h.OnComplete(ctx, e)
				}
			}
		},
		OnExpired: func(ctx context.Context, e *domain.EventBase) {
			for _, h := range hooks {
				if h.OnExpired != nil {
					h.OnExpired(ctx, e)
				}
			}
		},
	}
}

// DebugHooks logs every lifecycle event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSegment: func(ctx context.Context, e *domain.SegmentEvent) {
			logger.Debug("Segment",
				"experiment", e.ExperimentID,
				"identity", e.Identity,
				"variant", e.VariantID,
				"eligible", e.Eligible,
				"reused", e.Reused,
			)
		},
		OnStart: func(ctx context.Context, e *domain.LifecycleEvent) {
			logger.Debug("Start", "experiment", e.ExperimentID, "variant", variantOf(e.Assignment))
		},
		OnComplete: func(ctx context.Context, e *domain.LifecycleEvent) {
			logger.Debug("Complete", "experiment", e.ExperimentID, "variant", variantOf(e.Assignment))
		},
		OnExpired: func(ctx context.Context, e *domain.EventBase) {
			logger.Debug("Expired", "experiment", e.ExperimentID)
		},
	}
}

func variantOf(a *domain.Assignment) string {
	if a == nil {
		return ""
	}
	return a.VariantID
}
