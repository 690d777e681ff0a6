package domain

// State is the lifecycle position of one user within one experiment.
type State string

const (
	StateUnsegmented      State = "unsegmented"       // No segmentation decision stored
	StateParticipating    State = "participating"     // Placed in a variant (or no-chosen-variant)
	StateNotParticipating State = "not-participating" // Outside the sample
	StateCompleted        State = "completed"         // Converted; terminal
	StateExpired          State = "expired"           // Past expiry with no decision; segmentation blocked
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateExpired
}

// StateOf derives the state of an unconverted user from the stored assignment.
// A missing assignment past expiry reads as StateExpired.
func StateOf(a *Assignment, expired bool) State {
	switch {
	case a == nil && expired:
		return StateExpired
	case a == nil:
		return StateUnsegmented
	case !a.Participating():
		return StateNotParticipating
	default:
		return StateParticipating
	}
}
