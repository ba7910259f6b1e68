package workflow

import (
	"strings"
	"time"
)

// State is one user's in-progress mockup request.
// State is immutable: Apply returns a new value and never modifies the receiver.
type State struct {
	step          Step
	imageRef      string
	description   string
	requirements  *Requirements
	mockupRef     string
	mockupContent string
	errMsg        string

	revision  int64
	epoch     int64
	updatedBy string
	updatedAt time.Time
}

// New returns the initial state: step Upload with every optional field empty
func New() State {
	return State{step: StepUpload}
}

// Step returns the current step
func (s State) Step() Step {
	if s.step == "" {
		return StepUpload
	}
	return s.step
}

// ImageRef returns the uploaded image reference (set iff step >= Prompt)
func (s State) ImageRef() string { return s.imageRef }

// Description returns the user's change description (set iff step >= Generate)
func (s State) Description() string { return s.description }

// Requirements returns a copy of the parsed requirements, nil if parsing was skipped
func (s State) Requirements() *Requirements { return s.requirements.Clone() }

// MockupRef returns the generated mockup reference (set iff step = Export)
func (s State) MockupRef() string { return s.mockupRef }

// MockupContent returns the inline rendered mockup (set iff step = Export)
func (s State) MockupContent() string { return s.mockupContent }

// Err returns the last recoverable failure message
func (s State) Err() string { return s.errMsg }

// HasError reports whether a failure message is set
func (s State) HasError() bool { return s.errMsg != "" }

// Revision is incremented on every applied event
func (s State) Revision() int64 { return s.revision }

// Epoch is incremented on every reset
func (s State) Epoch() int64 { return s.epoch }

// UpdatedBy names the surface that last wrote this state
func (s State) UpdatedBy() string { return s.updatedBy }

// UpdatedAt returns the time of the last applied event
func (s State) UpdatedAt() time.Time { return s.updatedAt }

// IsInitial reports whether the user-facing fields equal those of New()
func (s State) IsInitial() bool {
	return s.Step() == StepUpload &&
		s.imageRef == "" &&
		s.description == "" &&
		s.requirements == nil &&
		s.mockupRef == "" &&
		s.mockupContent == "" &&
		s.errMsg == ""
}

// WithWriter returns a copy stamped with the writing surface
func (s State) WithWriter(surface string) State {
	s.updatedBy = surface
	return s
}

// Apply applies ev and returns the resulting state.
// On error the receiver is returned unchanged together with a *Error.
func (s State) Apply(ev Event) (State, error) {
	switch ev.Kind {
	case EventReset:
		next := New()
		next.revision = s.revision + 1
		next.epoch = s.epoch + 1
		next.updatedBy = s.updatedBy
		next.updatedAt = time.Now()
		return next, nil

	case EventFailed:
		msg := strings.TrimSpace(ev.Message)
		if msg == "" {
			msg = "unknown error"
		}
		next := s.bump()
		next.errMsg = msg
		return next, nil

	case EventExported:
		if s.Step() != StepExport {
			return s, InvalidTransition(ev.Kind, s.Step())
		}
		if s.errMsg == "" {
			return s, nil
		}
		next := s.bump()
		next.errMsg = ""
		return next, nil
	}

	required, ok := ev.requiredStep()
	if !ok {
		return s, InvalidInput("unknown event %q", ev.Kind)
	}
	if s.Step() != required {
		return s, InvalidTransition(ev.Kind, s.Step())
	}

	next := s.bump()
	next.errMsg = ""

	switch ev.Kind {
	case EventImageUploaded:
		if strings.TrimSpace(ev.ImageRef) == "" {
			return s, InvalidInput("image reference is empty")
		}
		next.step = StepPrompt
		next.imageRef = ev.ImageRef

	case EventDescriptionParsed:
		if strings.TrimSpace(ev.Description) == "" {
			return s, InvalidInput("description is empty")
		}
		next.step = StepGenerate
		next.description = ev.Description
		next.requirements = ev.Requirements.Clone()

	case EventMockupGenerated:
		if strings.TrimSpace(ev.MockupRef) == "" {
			return s, InvalidInput("mockup reference is empty")
		}
		if ev.MockupContent == "" {
			return s, InvalidInput("mockup content is empty")
		}
		next.step = StepExport
		next.mockupRef = ev.MockupRef
		next.mockupContent = ev.MockupContent
	}

	return next, nil
}

func (s State) bump() State {
	s.step = s.Step()
	s.revision++
	s.updatedAt = time.Now()
	return s
}
