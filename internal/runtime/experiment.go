package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/ports"
	"github.com/aretw0/cohort/pkg/session"
)

// Config carries everything an Experiment needs. Zero values get defaults in NewExperiment.
type Config struct {
	ID          string
	Description string
	SampleSize  float64
	Expiry      time.Time

	Store  ports.KeyValueStore
	Guard  *session.Guard
	Random func() float64
	Now    func() time.Time
	Hooks  domain.LifecycleHooks
	Logger *slog.Logger

	// StrictVariants rejects duplicate variant ids.
	StrictVariants bool
}

// Experiment segments the current user into one of its variants and drives the
// start and complete lifecycle on top of a key-value store.
type Experiment struct {
	id          string
	description string
	sampleSize  float64
	expiry      time.Time
	strict      bool

	store  ports.KeyValueStore
	guard  *session.Guard
	random func() float64
	now    func() time.Time
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	identity int

	mu           sync.RWMutex
	variants     []domain.Variant
	handlers     map[domain.EventType][]domain.Handler
	hasConverted bool
}

// NewExperiment validates cfg and resolves the user identity from the store,
// creating it on first use.
func NewExperiment(ctx context.Context, cfg Config) (*Experiment, error) {
	if cfg.ID == "" {
		return nil, domain.NewValidationError("id", "must not be empty")
	}
	if domain.CollidesWithIdentity(cfg.ID) {
		return nil, domain.NewValidationError("id", fmt.Sprintf("%q is reserved for the user identity record", cfg.ID))
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("experiment %q: %w", cfg.ID, domain.ErrStorageUnavailable)
	}

	e := &Experiment{
		id:          cfg.ID,
		description: cfg.Description,
		sampleSize:  ClampSampleSize(cfg.SampleSize),
		expiry:      cfg.Expiry,
		strict:      cfg.StrictVariants,
		store:       cfg.Store,
		guard:       cfg.Guard,
		random:      cfg.Random,
		now:         cfg.Now,
		hooks:       cfg.Hooks,
		logger:      cfg.Logger,
		handlers:    make(map[domain.EventType][]domain.Handler),
	}
	if e.guard == nil {
		e.guard = session.NewGuard()
	}
	if e.random == nil {
		e.random = rand.Float64
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.With("experiment", e.id)

	err := e.guard.WithLock(ctx, domain.UserIdentityKey, func(ctx context.Context) error {
		id, err := ResolveIdentity(ctx, e.store, e.random, e.logger)
		if err != nil {
			return err
		}
		e.identity = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", e.id, err)
	}
	return e, nil
}

func (e *Experiment) ID() string          { return e.id }
func (e *Experiment) Description() string { return e.description }
func (e *Experiment) Identity() int       { return e.identity }
func (e *Experiment) SampleSize() float64 { return e.sampleSize }
func (e *Experiment) Expiry() time.Time   { return e.expiry }

// Variants returns a copy of the registered variants in registration order.
func (e *Experiment) Variants() []domain.Variant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.variants)
}

// HasExpired reports whether the expiry instant has passed. A zero expiry never expires.
func (e *Experiment) HasExpired() bool {
	return !e.expiry.IsZero() && e.now().After(e.expiry)
}

// HasConverted reports whether Complete succeeded on this instance.
func (e *Experiment) HasConverted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasConverted
}

// AddVariant registers a variant. Weights are not normalized.
func (e *Experiment) AddVariant(v domain.Variant) error {
	if v.ID == "" {
		return domain.NewValidationError("variant.id", "must not be empty")
	}
	if math.IsNaN(v.Weight) || v.Weight < 0 {
		return domain.NewValidationError("variant.weight", fmt.Sprintf("must be a non-negative number, got %v", v.Weight))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.strict && slices.ContainsFunc(e.variants, func(x domain.Variant) bool { return x.ID == v.ID }) {
		return domain.NewValidationError("variant.id", fmt.Sprintf("duplicate variant %q", v.ID))
	}
	e.variants = append(e.variants, v)
	return nil
}

// On subscribes a handler to a lifecycle event. Handlers run in subscription order.
func (e *Experiment) On(event domain.EventType, h domain.Handler) error {
	if event == "" {
		return domain.NewValidationError("event", "must not be empty")
	}
	if !event.Valid() {
		return domain.NewValidationError("event", fmt.Sprintf("unknown event %q", event))
	}
	if h == nil {
		return domain.NewValidationError("handler", "must not be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], h)
	return nil
}

// Segment returns the stored assignment or decides and persists a new one.
func (e *Experiment) Segment(ctx context.Context) (*domain.Assignment, error) {
	if e.HasExpired() {
		err := e.guard.WithLock(ctx, domain.AssignmentKey(e.id), func(ctx context.Context) error {
			return e.store.Remove(ctx, domain.AssignmentKey(e.id))
		})
		if err != nil {
			e.logger.Warn("Failed to clear expired assignment", "err", err)
		}
		if e.hooks.OnExpired != nil {
			e.hooks.OnExpired(ctx, &domain.EventBase{Timestamp: e.now(), ExperimentID: e.id})
		}
		return nil, fmt.Errorf("experiment %q expired at %s: %w", e.id, e.expiry.Format(time.RFC3339), domain.ErrExpired)
	}

	variants := e.Variants()
	if len(variants) == 0 {
		return nil, fmt.Errorf("experiment %q: %w", e.id, domain.ErrNoVariants)
	}

	var result *domain.Assignment
	err := e.guard.WithLock(ctx, domain.AssignmentKey(e.id), func(ctx context.Context) error {
		existing, err := loadAssignment(ctx, e.store, e.id, e.logger)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			e.emitSegment(ctx, existing, true)
			return nil
		}

		a := &domain.Assignment{ExperimentID: e.id, VariantID: domain.NotParticipating}
		if IsEligible(e.identity, e.sampleSize) {
			a.VariantID = Draw(variants, e.random())
		}
		if err := saveAssignment(ctx, e.store, a); err != nil {
			return err
		}
		result = a
		e.emitSegment(ctx, a, false)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", e.id, err)
	}
	return result, nil
}

func (e *Experiment) emitSegment(ctx context.Context, a *domain.Assignment, reused bool) {
	e.logger.Debug("Segmented", "identity", e.identity, "variant", a.VariantID, "reused", reused)
	if e.hooks.OnSegment == nil {
		return
	}
	e.hooks.OnSegment(ctx, &domain.SegmentEvent{
		EventBase:  domain.EventBase{Timestamp: e.now(), ExperimentID: e.id},
		Identity:   e.identity,
		VariantID:  a.VariantID,
		Eligible:   a.Participating(),
		Reused:     reused,
		SampleSize: e.sampleSize,
	})
}

// Start runs the start handlers and then the action of every variant matching the
// stored assignment. Without an assignment it does nothing.
// Handler and action errors are returned as-is.
func (e *Experiment) Start(ctx context.Context, args ...any) error {
	a, err := loadAssignment(ctx, e.store, e.id, e.logger)
	if err != nil {
		return fmt.Errorf("experiment %q: %w", e.id, err)
	}
	if a == nil {
		e.logger.Debug("Start skipped, no assignment")
		return nil
	}

	e.mu.RLock()
	variants := slices.Clone(e.variants)
	handlers := slices.Clone(e.handlers[domain.EventStart])
	e.mu.RUnlock()

	for _, v := range variants {
		if v.ID != a.VariantID {
			continue
		}
		if e.hooks.OnStart != nil {
			e.hooks.OnStart(ctx, &domain.LifecycleEvent{
				EventBase:  domain.EventBase{Timestamp: e.now(), ExperimentID: e.id},
				Type:       domain.EventStart,
				Assignment: a,
			})
		}
		for _, h := range handlers {
			if err := h(ctx, a); err != nil {
				return err
			}
		}
		if v.Action != nil {
			if err := v.Action(ctx, args...); err != nil {
				return err
			}
		}
	}
	return nil
}

// Complete records the conversion: the stored assignment is removed and the
// complete handlers receive it, or nil when the user was never segmented.
func (e *Experiment) Complete(ctx context.Context) error {
	e.mu.Lock()
	if e.hasConverted {
		e.mu.Unlock()
		return fmt.Errorf("experiment %q: %w", e.id, domain.ErrAlreadyCompleted)
	}
	e.mu.Unlock()

	var a *domain.Assignment
	err := e.guard.WithLock(ctx, domain.AssignmentKey(e.id), func(ctx context.Context) error {
		var err error
		a, err = loadAssignment(ctx, e.store, e.id, e.logger)
		if err != nil {
			return err
		}
		return e.store.Remove(ctx, domain.AssignmentKey(e.id))
	})
	if err != nil {
		return fmt.Errorf("experiment %q: %w", e.id, err)
	}

	e.mu.Lock()
	if e.hasConverted {
		e.mu.Unlock()
		return fmt.Errorf("experiment %q: %w", e.id, domain.ErrAlreadyCompleted)
	}
	e.hasConverted = true
	handlers := slices.Clone(e.handlers[domain.EventComplete])
	e.mu.Unlock()

	e.logger.Debug("Completed", "assignment", a)
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(ctx, &domain.LifecycleEvent{
			EventBase:  domain.EventBase{Timestamp: e.now(), ExperimentID: e.id},
			Type:       domain.EventComplete,
			Assignment: a,
		})
	}
	for _, h := range handlers {
		if err := h(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Variant returns the stored variant id, or "" when the user is not segmented.
func (e *Experiment) Variant(ctx context.Context) (string, error) {
	a, err := e.Assignment(ctx)
	if err != nil || a == nil {
		return "", err
	}
	return a.VariantID, nil
}

// Assignment returns the stored assignment without segmenting. Nil means none is stored.
func (e *Experiment) Assignment(ctx context.Context) (*domain.Assignment, error) {
	a, err := loadAssignment(ctx, e.store, e.id, e.logger)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", e.id, err)
	}
	return a, nil
}

// Clear removes the stored assignment. The user identity is kept.
func (e *Experiment) Clear(ctx context.Context) error {
	return e.guard.WithLock(ctx, domain.AssignmentKey(e.id), func(ctx context.Context) error {
		if err := e.store.Remove(ctx, domain.AssignmentKey(e.id)); err != nil {
			return fmt.Errorf("experiment %q: failed to clear assignment: %w", e.id, err)
		}
		return nil
	})
}

// State derives the lifecycle state from the instance and the store.
func (e *Experiment) State(ctx context.Context) (domain.State, error) {
	if e.HasConverted() {
		return domain.StateCompleted, nil
	}
	a, err := e.Assignment(ctx)
	if err != nil {
		return "", err
	}
	return domain.StateOf(a, e.HasExpired()), nil
}
