package cohort

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/cohort/internal/runtime"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/ports"
	"github.com/aretw0/cohort/pkg/session"
)

// Experiment is the high-level entry point of the library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Experiment struct {
	runtime *runtime.Experiment
}

type settings struct {
	store       ports.KeyValueStore
	description string
	sampleSize  float64
	expiry      time.Time
	random      func() float64
	now         func() time.Time
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	locker      ports.DistributedLocker
	strict      bool
}

// Option defines a functional option for configuring an Experiment.
type Option func(*settings)

// WithStore sets the key-value store holding the identity and assignments. Required.
func WithStore(store ports.KeyValueStore) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithDescription attaches a human-readable description.
func WithDescription(description string) Option {
	return func(s *settings) {
		s.description = description
	}
}

// WithSampleSize sets the share of users eligible to participate (default 1).
// Values outside [0,1] are clamped.
func WithSampleSize(sampleSize float64) Option {
	return func(s *settings) {
		s.sampleSize = sampleSize
	}
}

// WithExpiry sets the instant after which users can no longer be segmented.
func WithExpiry(expiry time.Time) Option {
	return func(s *settings) {
		s.expiry = expiry
	}
}

// WithRandom replaces the randomness source. It must return values in [0,1).
func WithRandom(random func() float64) Option {
	return func(s *settings) {
		s.random = random
	}
}

// WithClock replaces the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// WithLocker serializes identity allocation and segmentation across processes sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *settings) {
		s.locker = locker
	}
}

// WithStrictVariants rejects variants whose id is already registered.
func WithStrictVariants() Option {
	return func(s *settings) {
		s.strict = true
	}
}

// VariantOption configures a variant passed to AddVariant.
type VariantOption func(*domain.Variant)

// WithWeight sets the relative weight of a variant (default 0.5).
func WithWeight(weight float64) VariantOption {
	return func(v *domain.Variant) {
		v.Weight = weight
	}
}

// New creates an experiment and resolves the user identity, creating it on first use.
func New(ctx context.Context, id string, opts ...Option) (*Experiment, error) {
	s := &settings{sampleSize: 1}
	for _, opt := range opts {
		opt(s)
	}

	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "must not be empty")
	}

	guardOpts := []session.Option{}
	if s.locker != nil {
		guardOpts = append(guardOpts, session.WithLocker(s.locker))
	}
	if s.logger != nil {
		guardOpts = append(guardOpts, session.WithLogger(s.logger))
	}

	rt, err := runtime.NewExperiment(ctx, runtime.Config{
		ID:             id,
		Description:    s.description,
		SampleSize:     s.sampleSize,
		Expiry:         s.expiry,
		Store:          s.store,
		Guard:          session.NewGuard(guardOpts...),
		Random:         s.random,
		Now:            s.now,
		Hooks:          s.hooks,
		Logger:         s.logger,
		StrictVariants: s.strict,
	})
	if err != nil {
		return nil, err
	}
	return &Experiment{runtime: rt}, nil
}

// AddVariant registers a variant and the action run when a user assigned to it starts.
func (e *Experiment) AddVariant(id string, action domain.Action, opts ...VariantOption) error {
	v := domain.Variant{ID: id, Weight: domain.DefaultWeight, Action: action}
	for _, opt := range opts {
		opt(&v)
	}
	return e.runtime.AddVariant(v)
}

// On subscribes a handler to the start or complete event.
func (e *Experiment) On(event domain.EventType, handler domain.Handler) error {
	return e.runtime.On(event, handler)
}

// Segment places the user in a variant, or returns the decision made earlier.
func (e *Experiment) Segment(ctx context.Context) (*domain.Assignment, error) {
	return e.runtime.Segment(ctx)
}

// Start fires the start event and runs the action of the assigned variant.
func (e *Experiment) Start(ctx context.Context, args ...any) error {
	return e.runtime.Start(ctx, args...)
}

// Complete records the conversion. It fails with domain.ErrAlreadyCompleted when called twice.
func (e *Experiment) Complete(ctx context.Context) error {
	return e.runtime.Complete(ctx)
}

// Variant returns the assigned variant id, or "" when the user has not been segmented.
func (e *Experiment) Variant(ctx context.Context) (string, error) {
	return e.runtime.Variant(ctx)
}

// Assignment returns the stored assignment, or nil.
func (e *Experiment) Assignment(ctx context.Context) (*domain.Assignment, error) {
	return e.runtime.Assignment(ctx)
}

// Clear forgets the stored assignment so the next Segment decides again.
func (e *Experiment) Clear(ctx context.Context) error {
	return e.runtime.Clear(ctx)
}

// State reports the lifecycle state of the current user.
func (e *Experiment) State(ctx context.Context) (domain.State, error) {
	return e.runtime.State(ctx)
}

func (e *Experiment) HasExpired() bool           { return e.runtime.HasExpired() }
func (e *Experiment) HasConverted() bool         { return e.runtime.HasConverted() }
func (e *Experiment) ID() string                 { return e.runtime.ID() }
func (e *Experiment) Description() string        { return e.runtime.Description() }
func (e *Experiment) Identity() int              { return e.runtime.Identity() }
func (e *Experiment) SampleSize() float64        { return e.runtime.SampleSize() }
func (e *Experiment) Expiry() time.Time          { return e.runtime.Expiry() }
func (e *Experiment) Variants() []domain.Variant { return e.runtime.Variants() }

// ReadIdentity returns the stored user identity without creating one.
func ReadIdentity(ctx context.Context, store ports.KeyValueStore) (int, bool, error) {
	return runtime.LoadIdentity(ctx, store)
}

// ReadAssignment returns the stored assignment of an experiment without segmenting. Nil means none.
func ReadAssignment(ctx context.Context, store ports.KeyValueStore, experimentID string) (*domain.Assignment, error) {
	return runtime.LoadAssignment(ctx, store, experimentID)
}
