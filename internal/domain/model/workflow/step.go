package workflow

import "fmt"

// Step represents a stage of the mockup workflow
type Step string

const (
	StepUpload   Step = "upload"   // Step 1
	StepPrompt   Step = "prompt"   // Step 2
	StepGenerate Step = "generate" // Step 3
	StepExport   Step = "export"   // Step 4
)

// String returns the string representation of the step
func (s Step) String() string {
	return string(s)
}

// ToNumber returns the ordinal of the step (1-4), 0 for unknown steps
func (s Step) ToNumber() int {
	switch s {
	case StepUpload:
		return 1
	case StepPrompt:
		return 2
	case StepGenerate:
		return 3
	case StepExport:
		return 4
	default:
		return 0
	}
}

// IsValid returns true if the step is a known workflow step
func (s Step) IsValid() bool {
	return s.ToNumber() > 0
}

// Before reports whether s comes strictly before other in the workflow
func (s Step) Before(other Step) bool {
	return s.ToNumber() < other.ToNumber()
}

// AtLeast reports whether s is other or any later step
func (s Step) AtLeast(other Step) bool {
	return s.ToNumber() >= other.ToNumber()
}

// Next returns the step that follows s
func (s Step) Next() (Step, error) {
	switch s {
	case StepUpload:
		return StepPrompt, nil
	case StepPrompt:
		return StepGenerate, nil
	case StepGenerate:
		return StepExport, nil
	default:
		return s, fmt.Errorf("no step follows %s", s)
	}
}

// CanTransitionTo validates if moving to next is a forward single-step move
func (s Step) CanTransitionTo(next Step) bool {
	n, err := s.Next()
	return err == nil && n == next
}

// Label returns a short human readable label for the step
func (s Step) Label() string {
	switch s {
	case StepUpload:
		return "Upload screenshot"
	case StepPrompt:
		return "Describe changes"
	case StepGenerate:
		return "Generate mockup"
	case StepExport:
		return "Export mockup"
	default:
		return "Unknown"
	}
}

// ParseStep converts a string into a Step
func ParseStep(value string) (Step, error) {
	s := Step(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid step: %q", value)
	}
	return s, nil
}

// Steps returns all steps in workflow order
func Steps() []Step {
	return []Step{StepUpload, StepPrompt, StepGenerate, StepExport}
}
