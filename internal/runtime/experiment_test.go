package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/cohort/pkg/adapters/memory"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/ports"
	"github.com/aretw0/cohort/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns a random source yielding values in order, repeating the last one.
func sequence(values ...float64) func() float64 {
	var mu sync.Mutex
	i := 0
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func newExperiment(t *testing.T, store ports.KeyValueStore, cfg Config) *Experiment {
	t.Helper()
	cfg.Store = store
	if cfg.ID == "" {
		cfg.ID = "checkout"
	}
	e, err := NewExperiment(context.Background(), cfg)
	require.NoError(t, err)
	return e
}

func TestNewExperiment_Validation(t *testing.T) {
	_, err := NewExperiment(context.Background(), Config{Store: memory.NewStore()})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "id", verr.Field)

	_, err = NewExperiment(context.Background(), Config{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestNewExperiment_RejectsIdentityKeyCollision(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, domain.UserIdentityKey, "10000"))

	_, err := NewExperiment(ctx, Config{ID: domain.ReservedExperimentID, Store: store})
	require.Error(t, err)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "id", verr.Field)

	raw, err := store.Get(ctx, domain.UserIdentityKey)
	require.NoError(t, err)
	assert.Equal(t, "10000", raw)
}

func TestNewExperiment_ClosedStore(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Close())

	_, err := NewExperiment(context.Background(), Config{ID: "x", Store: store})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestIdentity_CreatedOnceAndReused(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first := newExperiment(t, store, Config{Random: sequence(0.347025)})
	assert.Equal(t, 34702, first.Identity())

	raw, err := store.Get(ctx, domain.UserIdentityKey)
	require.NoError(t, err)
	assert.Equal(t, "34702", raw)

	second := newExperiment(t, store, Config{ID: "other", Random: sequence(0.9)})
	assert.Equal(t, 34702, second.Identity(), "a later experiment reuses the stored identity")
}

func TestIdentity_InvalidStoredValueRegenerated(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"abc", "-4", "100000", ""} {
		store := memory.NewStore()
		require.NoError(t, store.Set(ctx, domain.UserIdentityKey, raw))

		e := newExperiment(t, store, Config{Random: sequence(0.5)})
		assert.Equal(t, 50000, e.Identity(), "stored %q", raw)

		got, err := store.Get(ctx, domain.UserIdentityKey)
		require.NoError(t, err)
		assert.Equal(t, "50000", got)
	}
}

func TestSegment_OutsideSample(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	e := newExperiment(t, store, Config{SampleSize: 0.2, Random: sequence(0.347025)})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 0.5}))

	a, err := e.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NotParticipating, a.VariantID)
	assert.Equal(t, "checkout", a.ExperimentID)

	raw, err := store.Get(ctx, domain.AssignmentKey("checkout"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"experimentId":"checkout","variantId":"not-participating"}`, raw)

	state, err := e.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNotParticipating, state)
}

func TestSegment_WeightedDraw(t *testing.T) {
	ctx := context.Background()
	e := newExperiment(t, memory.NewStore(), Config{SampleSize: 1, Random: sequence(0.1, 0.347)})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 0.3}))
	require.NoError(t, e.AddVariant(domain.Variant{ID: "B", Weight: 0.7}))

	a, err := e.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", a.VariantID)

	v, err := e.Variant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	state, err := e.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateParticipating, state)
}

func TestSegment_NoChosenVariant(t *testing.T) {
	ctx := context.Background()
	e := newExperiment(t, memory.NewStore(), Config{SampleSize: 1, Random: sequence(0.1, 0.9)})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 0.2}))
	require.NoError(t, e.AddVariant(domain.Variant{ID: "B", Weight: 0.2}))

	a, err := e.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NoChosenVariant, a.VariantID)
	assert.True(t, a.Participating())
	assert.False(t, a.Chosen())
}

func TestSegment_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	e := newExperiment(t, store, Config{SampleSize: 1, Random: sequence(0.1, 0.1, 0.9)})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 0.5}))
	require.NoError(t, e.AddVariant(domain.Variant{ID: "B", Weight: 0.5}))

	first, err := e.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", first.VariantID)

	second, err := e.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second, "a second draw would pick B but the stored decision wins")

	again := newExperiment(t, store, Config{Random: sequence(0.9)})
	require.NoError(t, again.AddVariant(domain.Variant{ID: "A", Weight: 0.5}))
	third, err := again.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", third.VariantID, "decisions survive new instances")
}

func TestSegment_NoVariants(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	e := newExperiment(t, store, Config{})

	_, err := e.Segment(ctx)
	assert.ErrorIs(t, err, domain.ErrNoVariants)

	_, err = store.Get(ctx, domain.AssignmentKey("checkout"))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "a failed segment persists nothing")
}

func TestSegment_Expired(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	require.NoError(t, store.Set(ctx, domain.AssignmentKey("checkout"), `{"experimentId":"checkout","variantId":"A"}`))

	var expired []string
	e := newExperiment(t, store, Config{
		Expiry: now.Add(-time.Hour),
		Now:    clock,
		Hooks: domain.LifecycleHooks{
			OnExpired: func(_ context.Context, ev *domain.EventBase) { expired = append(expired, ev.ExperimentID) },
		},
	})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1}))
	assert.True(t, e.HasExpired())

	_, err := e.Segment(ctx)
	assert.ErrorIs(t, err, domain.ErrExpired)
	assert.Equal(t, []string{"checkout"}, expired)

	_, err = store.Get(ctx, domain.AssignmentKey("checkout"))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "the stale assignment is removed")

	state, err := e.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateExpired, state)
	assert.True(t, state.Terminal())
}

func TestSegment_ExpiredClearsUnderLock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	locker := &recordingLocker{}

	require.NoError(t, store.Set(ctx, domain.AssignmentKey("checkout"), `{"experimentId":"checkout","variantId":"A"}`))
	e := newExperiment(t, store, Config{
		Expiry: now.Add(-time.Hour),
		Now:    func() time.Time { return now },
		Guard:  session.NewGuard(session.WithLocker(locker)),
	})
	locker.keys = nil

	_, err := e.Segment(ctx)
	assert.ErrorIs(t, err, domain.ErrExpired)
	assert.Equal(t, []string{domain.AssignmentKey("checkout")}, locker.keys)
}

func TestHasExpired(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	never := newExperiment(t, memory.NewStore(), Config{Now: clock})
	assert.False(t, never.HasExpired(), "zero expiry never expires")

	future := newExperiment(t, memory.NewStore(), Config{Now: clock, Expiry: now.Add(time.Minute)})
	assert.False(t, future.HasExpired())
}

func TestStart_RunsHandlersThenAction(t *testing.T) {
	ctx := context.Background()
	e := newExperiment(t, memory.NewStore(), Config{SampleSize: 1, Random: sequence(0.1, 0.2)})

	var calls []string
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1, Action: func(_ context.Context, args ...any) error {
		calls = append(calls, "action")
		assert.Equal(t, []any{"x", 2}, args)
		return nil
	}}))
	require.NoError(t, e.AddVariant(domain.Variant{ID: "B", Weight: 1, Action: func(context.Context, ...any) error {
		calls = append(calls, "wrong")
		return nil
	}}))
	require.NoError(t, e.On(domain.EventStart, func(_ context.Context, a *domain.Assignment) error {
		calls = append(calls, "start:"+a.VariantID)
		return nil
	}))

	_, err := e.Segment(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx, "x", 2))
	assert.Equal(t, []string{"start:A", "action"}, calls)
}

func TestStart_WithoutAssignmentIsNoop(t *testing.T) {
	ctx := context.Background()
	e := newExperiment(t, memory.NewStore(), Config{})
	fired := false
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1, Action: func(context.Context, ...any) error {
		fired = true
		return nil
	}}))
	require.NoError(t, e.On(domain.EventStart, func(context.Context, *domain.Assignment) error {
		fired = true
		return nil
	}))

	require.NoError(t, e.Start(ctx))
	assert.False(t, fired)
}

func TestStart_DuplicateVariantsAllRun(t *testing.T) {
	ctx := context.Background()
	e := newExperiment(t, memory.NewStore(), Config{SampleSize: 1, Random: sequence(0.1, 0.2)})

	count := 0
	action := func(context.Context, ...any) error { count++; return nil }
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1, Action: action}))
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1, Action: action}))

	_, err := e.Segment(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx))
	assert.Equal(t, 2, count)
}

func TestStart_ErrorAbortsAndPropagates(t *testing.T) {
	ctx := context.Background()
	e := newExperiment(t, memory.NewStore(), Config{SampleSize: 1, Random: sequence(0.1, 0.2)})
	boom := errors.New("boom")

	actionRan := false
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1, Action: func(context.Context, ...any) error {
		actionRan = true
		return nil
	}}))
	require.NoError(t, e.On(domain.EventStart, func(context.Context, *domain.Assignment) error { return boom }))

	_, err := e.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, boom, e.Start(ctx))
	assert.False(t, actionRan)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	e := newExperiment(t, store, Config{SampleSize: 1, Random: sequence(0.1, 0.2)})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1}))

	var got []*domain.Assignment
	require.NoError(t, e.On(domain.EventComplete, func(_ context.Context, a *domain.Assignment) error {
		got = append(got, a)
		return nil
	}))

	_, err := e.Segment(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Complete(ctx))

	require.Len(t, got, 1)
	assert.Equal(t, &domain.Assignment{ExperimentID: "checkout", VariantID: "A"}, got[0])
	assert.True(t, e.HasConverted())

	_, err = store.Get(ctx, domain.AssignmentKey("checkout"))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "completion clears the assignment")

	err = e.Complete(ctx)
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	assert.Len(t, got, 1, "handlers fire once")

	state, err := e.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, state)
}

func TestComplete_WithoutSegment(t *testing.T) {
	ctx := context.Background()
	e := newExperiment(t, memory.NewStore(), Config{})

	called := false
	require.NoError(t, e.On(domain.EventComplete, func(_ context.Context, a *domain.Assignment) error {
		called = true
		assert.Nil(t, a)
		return nil
	}))

	require.NoError(t, e.Complete(ctx))
	assert.True(t, called)
}

func TestOn_Validation(t *testing.T) {
	e := newExperiment(t, memory.NewStore(), Config{})
	noop := func(context.Context, *domain.Assignment) error { return nil }

	assert.ErrorIs(t, e.On("", noop), domain.ErrValidation)
	assert.ErrorIs(t, e.On("finish", noop), domain.ErrValidation)
	assert.ErrorIs(t, e.On(domain.EventStart, nil), domain.ErrValidation)
	assert.NoError(t, e.On(domain.EventComplete, noop))
}

func TestAddVariant_Validation(t *testing.T) {
	e := newExperiment(t, memory.NewStore(), Config{})
	assert.ErrorIs(t, e.AddVariant(domain.Variant{Weight: 1}), domain.ErrValidation)
	assert.ErrorIs(t, e.AddVariant(domain.Variant{ID: "A", Weight: -0.1}), domain.ErrValidation)
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 0}))
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1}), "duplicates allowed by default")
	assert.Len(t, e.Variants(), 2)

	strict := newExperiment(t, memory.NewStore(), Config{StrictVariants: true})
	require.NoError(t, strict.AddVariant(domain.Variant{ID: "A", Weight: 1}))
	assert.ErrorIs(t, strict.AddVariant(domain.Variant{ID: "A", Weight: 1}), domain.ErrValidation)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	e := newExperiment(t, store, Config{SampleSize: 1, Random: sequence(0.1, 0.2)})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1}))

	_, err := e.Segment(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Clear(ctx))

	a, err := e.Assignment(ctx)
	require.NoError(t, err)
	assert.Nil(t, a)

	id, ok, err := LoadIdentity(ctx, store)
	require.NoError(t, err)
	assert.True(t, ok, "clearing keeps the identity")
	assert.Equal(t, e.Identity(), id)
}

func TestLoadAssignment_Legacy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, domain.AssignmentKey("legacy"), `{"variantId":"B"}`))
	require.NoError(t, store.Set(ctx, domain.AssignmentKey("broken"), `not json`))

	a, err := LoadAssignment(ctx, store, "legacy")
	require.NoError(t, err)
	assert.Equal(t, &domain.Assignment{ExperimentID: "legacy", VariantID: "B"}, a)

	_, err = LoadAssignment(ctx, store, "broken")
	assert.Error(t, err)
}

func TestLoadAssignment_ForeignRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, domain.AssignmentKey("a"), `{"experimentId":"b","variantId":"X"}`))

	a, err := LoadAssignment(ctx, store, "a")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestSegment_ReplacesForeignRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, domain.AssignmentKey("a"), `{"experimentId":"b","variantId":"X"}`))

	var reused []bool
	e := newExperiment(t, store, Config{
		ID:         "a",
		SampleSize: 1,
		Random:     sequence(0.1, 0.2),
		Hooks: domain.LifecycleHooks{
			OnSegment: func(_ context.Context, ev *domain.SegmentEvent) { reused = append(reused, ev.Reused) },
		},
	})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1}))

	state, err := e.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnsegmented, state)

	a, err := e.Segment(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Assignment{ExperimentID: "a", VariantID: "A"}, a)
	assert.Equal(t, []bool{false}, reused)

	raw, err := store.Get(ctx, domain.AssignmentKey("a"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"experimentId":"a","variantId":"A"}`, raw)
}

func TestSegment_FailedWriteLeavesNoAssignment(t *testing.T) {
	ctx := context.Background()
	store := &failingSetStore{KeyValueStore: memory.NewStore()}

	segmented := 0
	e := newExperiment(t, store, Config{
		SampleSize: 1,
		Random:     sequence(0.1, 0.2),
		Hooks: domain.LifecycleHooks{
			OnSegment: func(context.Context, *domain.SegmentEvent) { segmented++ },
		},
	})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1}))
	store.fail = true

	_, err := e.Segment(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), `experiment "checkout"`)
	assert.Zero(t, segmented)

	a, err := LoadAssignment(ctx, store, "checkout")
	require.NoError(t, err)
	assert.Nil(t, a)

	state, err := e.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnsegmented, state)
}

func TestSegment_Hooks(t *testing.T) {
	ctx := context.Background()
	var events []*domain.SegmentEvent
	e := newExperiment(t, memory.NewStore(), Config{
		SampleSize: 1,
		Random:     sequence(0.1, 0.2),
		Hooks: domain.LifecycleHooks{
			OnSegment: func(_ context.Context, ev *domain.SegmentEvent) { events = append(events, ev) },
		},
	})
	require.NoError(t, e.AddVariant(domain.Variant{ID: "A", Weight: 1}))

	_, err := e.Segment(ctx)
	require.NoError(t, err)
	_, err = e.Segment(ctx)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.False(t, events[0].Reused)
	assert.True(t, events[1].Reused)
	assert.Equal(t, 10000, events[0].Identity)
	assert.Equal(t, "A", events[0].VariantID)
}

// failingSetStore rejects writes once fail is set; reads pass through.
type failingSetStore struct {
	ports.KeyValueStore
	fail bool
}

func (s *failingSetStore) Set(ctx context.Context, key, value string) error {
	if s.fail {
		return domain.ErrStorageUnavailable
	}
	return s.KeyValueStore.Set(ctx, key, value)
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) Lock(_ context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return func(context.Context) error { return nil }, nil
}
