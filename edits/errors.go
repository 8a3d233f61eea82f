package edits

import (
	"errors"
	"fmt"
)

var (
	ErrParseFailure     = errors.New("model response could not be interpreted as edits")
	ErrExecutionFailure = errors.New("document update failed")
	ErrNoSuchDirective  = errors.New("no such directive")
)

// ParseFailure means the model answered but no directive could be read from
// the answer. It is distinct from a well-formed empty answer.
type ParseFailure struct {
	Reason  string
	Excerpt string
}

func (e *ParseFailure) Error() string {
	if e.Excerpt == "" {
		return fmt.Sprintf("%s: %s", ErrParseFailure, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%q)", ErrParseFailure, e.Reason, e.Excerpt)
}

func (e *ParseFailure) Is(target error) bool { return target == ErrParseFailure }

// ExecutionFailure wraps the error returned by the document service for a
// whole batch. Nothing in the batch is retried.
type ExecutionFailure struct {
	DocumentID string
	Operations int
	Err        error
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("%s: document=%s operations=%d: %v", ErrExecutionFailure, e.DocumentID, e.Operations, e.Err)
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }

func (e *ExecutionFailure) Is(target error) bool { return target == ErrExecutionFailure }
