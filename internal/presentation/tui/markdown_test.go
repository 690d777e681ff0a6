package tui

import (
	"testing"
	"time"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotsMarkdown(t *testing.T) {
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	md := SnapshotsMarkdown(34702, true, []domain.Snapshot{
		{
			ID:          "checkout",
			Description: "Button colour",
			SampleSize:  0.5,
			Expiry:      &expiry,
			Defined:     true,
			Variants:    []domain.Variant{{ID: "green", Weight: 0.3}},
			Assignment:  &domain.Assignment{ExperimentID: "checkout", VariantID: "green"},
			State:       domain.StateParticipating,
		},
		{ID: "legacy", State: domain.StateNotParticipating, Assignment: &domain.Assignment{VariantID: "not-participating"}},
	})

	assert.Contains(t, md, "User identity: **34702**")
	assert.Contains(t, md, "| checkout | 50% | 2027-01-01T00:00:00Z | `green` | participating |")
	assert.Contains(t, md, "| legacy (undefined) |")
	assert.Contains(t, md, "## checkout")
	assert.Contains(t, md, "- `green` weight 0.3")
}

func TestSnapshotsMarkdown_Empty(t *testing.T) {
	md := SnapshotsMarkdown(0, false, nil)
	assert.Contains(t, md, "_not allocated_")
	assert.Contains(t, md, "_No experiments defined or stored._")
}
