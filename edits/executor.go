package edits

import (
	"context"
	"errors"
	"time"
)

// Substitution is one exact-text, case-sensitive, replace-all operation.
type Substitution struct {
	Find    string
	Replace string
}

// ApplyResult carries what the document service reported per substitution.
type ApplyResult struct {
	Occurrences []int64
}

// Total sums the reported occurrences.
func (r ApplyResult) Total() int64 {
	var n int64
	for _, c := range r.Occurrences {
		n += c
	}
	return n
}

// DocumentMutator is the only write path to the manuscript. All
// substitutions of one call are applied as a single request, in order.
type DocumentMutator interface {
	ApplySubstitutions(ctx context.Context, documentID string, subs []Substitution) (ApplyResult, error)
}

// Executor submits validated directives as one document update.
type Executor struct {
	docs    DocumentMutator
	timeout time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout bounds a single document update. Zero leaves the caller's
// context and the transport defaults in charge.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

func NewExecutor(docs DocumentMutator, opts ...ExecutorOption) (*Executor, error) {
	if docs == nil {
		return nil, errors.New("document mutator is required")
	}
	e := &Executor{docs: docs}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute builds one substitution per directive and performs exactly one call
// to the document service. There is no retry and no partial commit.
func (e *Executor) Execute(ctx context.Context, documentID string, ds []EditDirective) (ApplyResult, error) {
	if documentID == "" {
		return ApplyResult{}, &ExecutionFailure{Operations: len(ds), Err: errors.New("document id is required")}
	}
	subs := make([]Substitution, 0, len(ds))
	for _, d := range ds {
		subs = append(subs, Substitution{Find: d.Find, Replace: d.Replace})
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	res, err := e.docs.ApplySubstitutions(ctx, documentID, subs)
	if err != nil {
		return ApplyResult{}, &ExecutionFailure{DocumentID: documentID, Operations: len(subs), Err: err}
	}
	return res, nil
}
