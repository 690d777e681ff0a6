package runtime

import (
	"math"

	"github.com/aretw0/cohort/pkg/domain"
)

// ClampSampleSize bounds a sample size to [0,1]. NaN counts as 0.
func ClampSampleSize(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// IsEligible reports whether identity falls inside the sampled share of the identity space.
func IsEligible(identity int, sampleSize float64) bool {
	return float64(identity) < domain.IdentitySpace*ClampSampleSize(sampleSize)
}

// Draw walks variants in order accumulating weight and returns the first whose
// cumulative weight reaches r. When the weights never reach r the draw chooses
// nothing and domain.NoChosenVariant is returned.
func Draw(variants []domain.Variant, r float64) string {
	cumulative := 0.0
	for _, v := range variants {
		cumulative += v.Weight
		if cumulative >= r {
			return v.ID
		}
	}
	return domain.NoChosenVariant
}
