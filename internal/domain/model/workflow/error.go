package workflow

import (
	"errors"
	"fmt"
)

// Error codes for the workflow error taxonomy
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUpload            = "UPLOAD_ERROR"
	CodeParse             = "PARSE_ERROR"
	CodeGeneration        = "GENERATION_ERROR"
	CodeExport            = "EXPORT_ERROR"
	CodeBusy              = "BUSY"
)

// Error represents domain-specific errors for the mockup workflow
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so sentinel comparisons work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// Common workflow errors. Only Code is compared by errors.Is.
var (
	ErrInvalidInput      = &Error{Code: CodeInvalidInput}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrUpload            = &Error{Code: CodeUpload}
	ErrParse             = &Error{Code: CodeParse}
	ErrGeneration        = &Error{Code: CodeGeneration}
	ErrExport            = &Error{Code: CodeExport}
	ErrBusy              = &Error{Code: CodeBusy}
)

// NewError creates a new workflow error
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// InvalidInput creates an INVALID_INPUT error
func InvalidInput(format string, args ...interface{}) *Error {
	return NewError(CodeInvalidInput, fmt.Sprintf(format, args...), nil)
}

// InvalidTransition creates an INVALID_TRANSITION error for event kind at step
func InvalidTransition(kind EventKind, step Step) *Error {
	return NewError(CodeInvalidTransition, fmt.Sprintf("event %s is not valid at step %s", kind, step), nil)
}

// CodeOf returns the workflow error code carried by err, or "" if none
func CodeOf(err error) string {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return CodeOf(err) == CodeInvalidInput
}

// IsInvalidTransition checks if the error is an invalid transition error
func IsInvalidTransition(err error) bool {
	return CodeOf(err) == CodeInvalidTransition
}

// IsBusy checks if the error reports another step in flight
func IsBusy(err error) bool {
	return CodeOf(err) == CodeBusy
}

// IsCollaboratorError checks if the error came from an external collaborator
func IsCollaboratorError(err error) bool {
	switch CodeOf(err) {
	case CodeUpload, CodeParse, CodeGeneration, CodeExport:
		return true
	default:
		return false
	}
}

// CollaboratorCode returns the error code used for collaborator failures during step
func CollaboratorCode(step Step) string {
	switch step {
	case StepUpload:
		return CodeUpload
	case StepPrompt:
		return CodeParse
	case StepGenerate:
		return CodeGeneration
	default:
		return CodeExport
	}
}
