// internal/events/events.go
package events

import (
	"errors"
	"fmt"
)

// Kind discriminates the workflow event variants.
type Kind string

const (
	// KindProgress is an informational, non-terminal event.
	KindProgress Kind = "progress"
	// KindCompleted terminates a run successfully.
	KindCompleted Kind = "completed"
	// KindFailed terminates a run with a classified failure.
	KindFailed Kind = "failed"
)

// FailureClass is the coarse classification attached to every terminal failure.
type FailureClass string

const (
	FailureInputFormat        FailureClass = "input_format"
	FailureProvisioning       FailureClass = "provisioning"
	FailureCodeFetch          FailureClass = "code_fetch"
	FailureNavigationTimeout  FailureClass = "navigation_timeout"
	FailureInteraction        FailureClass = "interaction"
	FailureValidationRejected FailureClass = "validation_rejected"
	FailureAmbiguousOutcome   FailureClass = "ambiguous_outcome"
	// FailureInternal is the fallback for errors no component classified.
	FailureInternal FailureClass = "internal"
)

// Event is a single entry in the caller-facing workflow stream.
// A run emits any number of Progress events followed by exactly one
// terminal event (Completed or Failed).
type Event struct {
	Kind    Kind
	Message string
	// Class is populated only for KindFailed events.
	Class FailureClass
}

// Terminal reports whether the event ends the run.
func (e Event) Terminal() bool {
	return e.Kind == KindCompleted || e.Kind == KindFailed
}

// Progress builds a non-terminal informational event.
func Progress(format string, args ...any) Event {
	return Event{Kind: KindProgress, Message: fmt.Sprintf(format, args...)}
}

// Completed builds the successful terminal event.
func Completed(result string) Event {
	return Event{Kind: KindCompleted, Message: result}
}

// Failed builds the failing terminal event from a (possibly classified) error.
func Failed(err error) Event {
	return Event{Kind: KindFailed, Message: err.Error(), Class: Classify(err)}
}

// -- ClassifiedError --

// ClassifiedError carries a FailureClass alongside the underlying cause so
// that sequencers deep in the workflow can decide the terminal classification
// without the runner re-parsing error strings.
type ClassifiedError struct {
	Class FailureClass
	Msg   string
	Err   error
}

func (e *ClassifiedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classified wraps err with a failure class and message.
func Classified(class FailureClass, msg string, err error) *ClassifiedError {
	return &ClassifiedError{Class: class, Msg: msg, Err: err}
}

// Classifiedf is the formatted variant of Classified with no underlying cause.
func Classifiedf(class FailureClass, format string, args ...any) *ClassifiedError {
	return &ClassifiedError{Class: class, Msg: fmt.Sprintf(format, args...)}
}

// Classify extracts the failure class from err, walking the wrap chain.
// Unclassified errors fall back to FailureInternal.
func Classify(err error) FailureClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return FailureInternal
}
