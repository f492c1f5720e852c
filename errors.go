package examprep

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when no API key is configured for the generator
	ErrMissingCredential = errors.New("generation credential not configured")
	// ErrEmptyResult is returned when the service answered without producing any items
	ErrEmptyResult = errors.New("generator returned no content")
	// ErrSchemaViolation is returned when generated content does not match its schema
	ErrSchemaViolation = errors.New("generated content violates schema")
	// ErrInvalidRequest is returned for a blank topic or a non-positive count
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrNoQuestions is returned by the engine when a retrieval yields no questions
	ErrNoQuestions = errors.New("failed to load questions")
	// ErrSuperseded is returned by a retrieval whose result was discarded because a newer one started
	ErrSuperseded = errors.New("retrieval superseded by a newer request")
	// ErrQuizInProgress is returned when the topic is changed while a quiz is running
	ErrQuizInProgress = errors.New("quiz in progress")
	// ErrEngineClosed is returned by retrievals on a closed engine
	ErrEngineClosed = errors.New("engine closed")
)

// FailureClass groups generation failures by where they happened
type FailureClass string

const (
	ClassConfiguration FailureClass = "configuration"
	ClassTransport     FailureClass = "transport"
	ClassSchema        FailureClass = "schema"
	ClassEmpty         FailureClass = "empty"
)

// GenerationError describes a failed generation call. It never reaches callers of
// the Generator's content methods; it is logged and handed to the failure hook.
type GenerationError struct {
	Kind  ContentKind
	Topic string
	Class FailureClass
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s for %q: %s failure: %v", e.Kind, e.Topic, e.Class, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func failure(kind ContentKind, topic string, class FailureClass, err error) *GenerationError {
	return &GenerationError{Kind: kind, Topic: topic, Class: class, Err: err}
}
