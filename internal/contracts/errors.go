package contracts

import (
	"errors"
	"fmt"
)

// ErrorKind is the pipeline-level error taxonomy. Callers see kinds,
// never provider-specific error shapes or raw model text.
type ErrorKind string

const (
	// ErrInvalidConstraints caller input malformed; never retried
	ErrInvalidConstraints ErrorKind = "INVALID_CONSTRAINTS"

	// ErrUpstreamUnavailable transient provider failure (timeout,
	// throttling, quota); retry is a whole new pipeline run
	ErrUpstreamUnavailable ErrorKind = "UPSTREAM_UNAVAILABLE"

	// ErrTimeout a bounded external call exceeded its deadline
	ErrTimeout ErrorKind = "TIMEOUT"

	// ErrRequestTooLarge prompt exceeded the size bound; rejected
	// before invocation, never silently truncated
	ErrRequestTooLarge ErrorKind = "REQUEST_TOO_LARGE"

	// ErrNoStructuredOutput model returned no parseable JSON object
	ErrNoStructuredOutput ErrorKind = "NO_STRUCTURED_OUTPUT"

	// ErrInvalidModelOutput content failed the output validator;
	// carries a RejectReason sub-reason
	ErrInvalidModelOutput ErrorKind = "INVALID_MODEL_OUTPUT"

	// ErrPersistenceFailure recommendation write failed; the one kind
	// retried locally a small bounded number of times
	ErrPersistenceFailure ErrorKind = "PERSISTENCE_FAILURE"
)

// RejectReason is the validator sub-reason for INVALID_MODEL_OUTPUT
type RejectReason string

const (
	RejectSchemaViolation     RejectReason = "SCHEMA_VIOLATION"
	RejectUnknownTicker       RejectReason = "UNKNOWN_TICKER"
	RejectWeightsUnnormalized RejectReason = "WEIGHTS_UNNORMALIZED"
)

// PipelineError is the tagged error carried across stage boundaries.
// The outermost transport adapter is the only place this is ever
// serialized into a JSON envelope.
type PipelineError struct {
	Kind    ErrorKind
	Reason  RejectReason // set only for ErrInvalidModelOutput
	Stage   Stage
	Message string
	Err     error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Reason, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the wrapped cause
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError creates a PipelineError for a stage
func NewError(kind ErrorKind, stage Stage, message string) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Message: message}
}

// WrapError creates a PipelineError wrapping a cause
func WrapError(kind ErrorKind, stage Stage, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Message: message, Err: err}
}

// NewRejection creates the validator's INVALID_MODEL_OUTPUT error
func NewRejection(reason RejectReason, message string) *PipelineError {
	return &PipelineError{
		Kind:    ErrInvalidModelOutput,
		Reason:  reason,
		Stage:   StageValidation,
		Message: message,
	}
}

// KindOf extracts the ErrorKind from any error in the chain.
// Unclassified errors map to UPSTREAM_UNAVAILABLE: an unknown failure
// is treated as transient rather than invented into a content failure.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrUpstreamUnavailable
}

// ReasonOf extracts the RejectReason, if any
func ReasonOf(err error) RejectReason {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}
