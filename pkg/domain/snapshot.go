package domain

import "time"

// Snapshot is a read-only view of one experiment and the current user's place in it.
// Tooling builds it from a definition and the store without segmenting.
type Snapshot struct {
	ID          string      `json:"id"`
	Description string      `json:"description,omitempty"`
	SampleSize  float64     `json:"sample_size"`
	Expiry      *time.Time  `json:"expiry,omitempty"`
	Expired     bool        `json:"expired"`
	Variants    []Variant   `json:"variants,omitempty"`
	Assignment  *Assignment `json:"assignment,omitempty"`
	State       State       `json:"state"`
	Defined     bool        `json:"defined"` // False when only a stored assignment exists
}
