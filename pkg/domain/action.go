package domain

import "context"

// Action is the side-effect bound to a variant. It runs when the experiment is started
// for a user assigned to that variant.
type Action func(ctx context.Context, args ...any) error

// Variant is one arm of an experiment.
type Variant struct {
	ID     string  `json:"id" yaml:"id" mapstructure:"id"`
	Weight float64 `json:"weight" yaml:"weight" mapstructure:"weight"`
	Action Action  `json:"-" yaml:"-" mapstructure:"-"`
}

// Assignment is the persisted segmentation decision for one experiment.
type Assignment struct {
	ExperimentID string `json:"experimentId,omitempty"`
	VariantID    string `json:"variantId"`
}

// Participating reports whether the user is inside the experiment's sample.
// An eligible user whose draw chose no variant still participates.
func (a *Assignment) Participating() bool {
	return a != nil && a.VariantID != NotParticipating
}

// Chosen reports whether the assignment names a registered variant rather than a sentinel.
func (a *Assignment) Chosen() bool {
	return a != nil && a.VariantID != NotParticipating && a.VariantID != NoChosenVariant
}
