package reckon

import "fmt"

// ErrorKind classifies failures so callers can tell misuse apart from repository state problems.
type ErrorKind string

const (
	// KindConfiguration indicates the reckoner was configured with missing or contradictory settings.
	KindConfiguration ErrorKind = "CONFIGURATION"
	// KindInput indicates a user supplied value (version, scope, stage) was not valid.
	KindInput ErrorKind = "INPUT"
	// KindState indicates the repository state does not allow the requested version.
	KindState ErrorKind = "STATE"
)

// Sentinels for use with errors.Is.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrInput         = &Error{Kind: KindInput}
	ErrState         = &Error{Kind: KindState}
)

// Error is a classified reckoning failure. Context carries the offending values
// (the computed version, the valid set, the conflicting base) for callers that
// want more than the message.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func configError(context map[string]any, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...), Context: context}
}

func inputError(context map[string]any, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...), Context: context}
}

func stateError(context map[string]any, format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...), Context: context}
}
