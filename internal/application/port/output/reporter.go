package output

import "time"

// StatusKind classifies a user-visible status
type StatusKind string

const (
	StatusLoading StatusKind = "loading"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the single status currently shown to the user.
// Percent is -1 when no progress applies.
type Status struct {
	Kind    StatusKind `json:"kind" yaml:"kind"`
	Message string     `json:"message" yaml:"message"`
	Percent int        `json:"percent" yaml:"percent"`
	At      time.Time  `json:"at" yaml:"at"`
}

// Reporter surfaces progress and outcomes to the user
type Reporter interface {
	// Report replaces the displayed status
	Report(kind StatusKind, message string)

	// Progress updates the percentage of the displayed Loading status
	Progress(percent int)

	// Clear removes any displayed status
	Clear()
}
