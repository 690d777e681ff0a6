package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/ports"
)

func encodeAssignment(a *domain.Assignment) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to marshal assignment: %w", err)
	}
	return string(data), nil
}

// errForeignAssignment marks a record whose experimentId names another experiment.
var errForeignAssignment = errors.New("assignment belongs to another experiment")

// decodeAssignment accepts both the current record and the legacy one that only
// carries variantId; the experiment id is filled in from the key.
func decodeAssignment(experimentID, raw string) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assignment for %q: %w", experimentID, err)
	}
	if a.VariantID == "" {
		return nil, fmt.Errorf("assignment for %q has no variantId", experimentID)
	}
	if a.ExperimentID == "" {
		a.ExperimentID = experimentID
	}
	if a.ExperimentID != experimentID {
		return nil, fmt.Errorf("record under %q names %q: %w", domain.AssignmentKey(experimentID), a.ExperimentID, errForeignAssignment)
	}
	return &a, nil
}

// LoadAssignment reads the stored assignment of an experiment.
// Returns nil without error when none is stored, or when the stored record
// names a different experiment.
func LoadAssignment(ctx context.Context, store ports.KeyValueStore, experimentID string) (*domain.Assignment, error) {
	return loadAssignment(ctx, store, experimentID, nil)
}

func loadAssignment(ctx context.Context, store ports.KeyValueStore, experimentID string, logger *slog.Logger) (*domain.Assignment, error) {
	if store == nil {
		return nil, domain.ErrStorageUnavailable
	}
	raw, err := store.Get(ctx, domain.AssignmentKey(experimentID))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read assignment: %w", err)
	}
	a, err := decodeAssignment(experimentID, raw)
	if errors.Is(err, errForeignAssignment) {
		if logger != nil {
			logger.Warn("Ignoring stored assignment of another experiment", "err", err)
		}
		return nil, nil
	}
	return a, err
}

func saveAssignment(ctx context.Context, store ports.KeyValueStore, a *domain.Assignment) error {
	raw, err := encodeAssignment(a)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, domain.AssignmentKey(a.ExperimentID), raw); err != nil {
		return fmt.Errorf("failed to persist assignment: %w", err)
	}
	return nil
}
