package cli

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/config"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/persistence/middleware"
	"github.com/aretw0/cohort/pkg/ports"
)

// Inspector builds read-only snapshots from definitions and the store.
// It never segments and never writes.
type Inspector struct {
	store ports.KeyValueStore
	defs  *config.File
	now   func() time.Time
}

// NewInspector creates an Inspector. A nil now defaults to time.Now.
func NewInspector(store ports.KeyValueStore, defs *config.File, now func() time.Time) *Inspector {
	if defs == nil {
		defs = &config.File{}
	}
	if now == nil {
		now = time.Now
	}
	return &Inspector{store: store, defs: defs, now: now}
}

// Identity returns the stored user identity.
func (i *Inspector) Identity(ctx context.Context) (int, bool, error) {
	return cohort.ReadIdentity(ctx, i.store)
}

// Experiments returns every defined experiment, followed by stored assignments
// that no definition claims.
func (i *Inspector) Experiments(ctx context.Context) ([]domain.Snapshot, error) {
	out := make([]domain.Snapshot, 0, len(i.defs.Experiments))
	known := make(map[string]bool, len(i.defs.Experiments))
	for _, def := range i.defs.Experiments {
		s, err := i.fromDefinition(ctx, def)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
		known[def.ID] = true
	}

	orphans, err := i.storedIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range orphans {
		if known[id] {
			continue
		}
		s, err := i.fromStore(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// Experiment returns the snapshot of one experiment, or nil when it is neither
// defined nor stored.
func (i *Inspector) Experiment(ctx context.Context, id string) (*domain.Snapshot, error) {
	if def, ok := i.defs.Find(id); ok {
		return i.fromDefinition(ctx, def)
	}
	return i.fromStore(ctx, id)
}

func (i *Inspector) fromDefinition(ctx context.Context, def config.Definition) (*domain.Snapshot, error) {
	a, err := cohort.ReadAssignment(ctx, i.store, def.ID)
	if err != nil {
		return nil, err
	}
	s := &domain.Snapshot{
		ID:          def.ID,
		Description: def.Description,
		SampleSize:  def.SampleSizeOrDefault(),
		Assignment:  a,
		Defined:     true,
	}
	if !def.Expiry.IsZero() {
		expiry := def.Expiry
		s.Expiry = &expiry
		s.Expired = i.now().After(expiry)
	}
	for _, v := range def.Variants {
		s.Variants = append(s.Variants, domain.Variant{ID: v.ID, Weight: v.WeightOrDefault()})
	}
	s.State = domain.StateOf(a, s.Expired)
	return s, nil
}

func (i *Inspector) fromStore(ctx context.Context, id string) (*domain.Snapshot, error) {
	a, err := cohort.ReadAssignment(ctx, i.store, id)
	if err != nil || a == nil {
		return nil, err
	}
	return &domain.Snapshot{
		ID:         id,
		Assignment: a,
		State:      domain.StateOf(a, false),
	}, nil
}

// storedIDs lists experiment ids that have an assignment in the store.
func (i *Inspector) storedIDs(ctx context.Context) ([]string, error) {
	lister, ok := i.store.(ports.KeyLister)
	if !ok {
		return nil, nil
	}
	keys, err := lister.Keys(ctx)
	if errors.Is(err, middleware.ErrListingUnsupported) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, k := range keys {
		if k == domain.UserIdentityKey {
			continue
		}
		if id, ok := strings.CutPrefix(k, domain.AssignmentKeyPrefix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
