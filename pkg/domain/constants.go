package domain

import "strings"

// IdentitySpace is the size of the user identity space. Identities live in [0, IdentitySpace).
const IdentitySpace = 100000

// DefaultWeight is the weight a variant receives when none is given.
const DefaultWeight = 0.5

// Persisted key layout. These names are part of the storage compatibility surface.
const (
	// UserIdentityKey holds the process-wide user identity as a base-10 string.
	UserIdentityKey = "experiment_user_id"

	// AssignmentKeyPrefix prefixes every per-experiment assignment record.
	AssignmentKeyPrefix = "experiment_"
)

// Sentinel variant identifiers written in place of a real variant.
const (
	// NotParticipating marks a user outside the experiment's sample.
	NotParticipating = "not-participating"

	// NoChosenVariant marks an eligible user whose draw fell past the accumulated weights.
	NoChosenVariant = "no-chosen-variant"
)

// AssignmentKey returns the store key of the assignment for experimentID.
func AssignmentKey(experimentID string) string {
	return AssignmentKeyPrefix + experimentID
}

// ReservedExperimentID is the experiment id whose assignment key would shadow UserIdentityKey.
const ReservedExperimentID = "user_id"

// CollidesWithIdentity reports whether experimentID maps onto the identity record.
func CollidesWithIdentity(experimentID string) bool {
	return AssignmentKey(experimentID) == UserIdentityKey
}

// IsIdentityKey reports whether a store key holds the user identity,
// including keys scoped by a "<origin>/" namespace.
func IsIdentityKey(key string) bool {
	return key == UserIdentityKey || strings.HasSuffix(key, "/"+UserIdentityKey)
}
