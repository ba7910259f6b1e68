package workflow

// EventKind identifies a workflow event
type EventKind string

const (
	EventImageUploaded     EventKind = "image_uploaded"
	EventDescriptionParsed EventKind = "description_parsed"
	EventMockupGenerated   EventKind = "mockup_generated"
	EventFailed            EventKind = "failed"
	EventReset             EventKind = "reset"
	EventExported          EventKind = "exported"
)

// String returns the string representation
func (k EventKind) String() string {
	return string(k)
}

// Event is an input to State.Apply
type Event struct {
	Kind          EventKind
	ImageRef      string
	Description   string
	Requirements  *Requirements
	MockupRef     string
	MockupContent string
	Message       string
}

// ImageUploaded creates an image_uploaded event
func ImageUploaded(imageRef string) Event {
	return Event{Kind: EventImageUploaded, ImageRef: imageRef}
}

// DescriptionParsed creates a description_parsed event; requirements may be nil
func DescriptionParsed(description string, requirements *Requirements) Event {
	return Event{Kind: EventDescriptionParsed, Description: description, Requirements: requirements}
}

// MockupGenerated creates a mockup_generated event
func MockupGenerated(mockupRef, content string) Event {
	return Event{Kind: EventMockupGenerated, MockupRef: mockupRef, MockupContent: content}
}

// Failed creates a failed event carrying a recoverable error message
func Failed(message string) Event {
	return Event{Kind: EventFailed, Message: message}
}

// Reset creates a reset event
func Reset() Event {
	return Event{Kind: EventReset}
}

// Exported creates an exported event. It clears a recorded error and
// changes nothing else.
func Exported() Event {
	return Event{Kind: EventExported}
}

// requiredStep returns the step at which an advancing event is valid
func (e Event) requiredStep() (Step, bool) {
	switch e.Kind {
	case EventImageUploaded:
		return StepUpload, true
	case EventDescriptionParsed:
		return StepPrompt, true
	case EventMockupGenerated:
		return StepGenerate, true
	default:
		return "", false
	}
}
