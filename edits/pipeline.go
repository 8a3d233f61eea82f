package edits

import (
	"context"
	"errors"
	"io"
	"log"
)

// Pipeline turns model text into a pending batch and applies approved batches.
type Pipeline struct {
	validator Validator
	executor  *Executor
	verbose   bool
	logger    *log.Logger
}

func NewPipeline(validator Validator, executor *Executor, verbose bool, logger *log.Logger) (*Pipeline, error) {
	if executor == nil {
		return nil, errors.New("executor is required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{validator: validator, executor: executor, verbose: verbose, logger: logger}, nil
}

func (p *Pipeline) infof(format string, args ...interface{}) {
	if !p.verbose {
		return
	}
	p.logger.Printf("[INFO] "+format, args...)
}

// RequiresApproval reports whether directives must be approved before they run.
func (p *Pipeline) RequiresApproval() bool { return p.validator.RequireApproval }

// ProposeEdits parses raw model text into a fresh batch of candidates. Blank
// and duplicate finds are already removed; approval is not applied yet. When
// approval is not required every candidate comes back approved.
//
// On a parse failure the batch is empty (never nil) and the error is a
// *ParseFailure.
func (p *Pipeline) ProposeEdits(raw string) (*EditBatch, error) {
	parsed, err := Parse(raw)
	if err != nil {
		p.infof("proposal parse failed: %v", err)
		return &EditBatch{}, err
	}
	return p.batchFrom(parsed.Directives, parsed.Format), nil
}

// ProposeDirectives builds a batch from directives typed in by the writer.
func (p *Pipeline) ProposeDirectives(ds []EditDirective) *EditBatch {
	return p.batchFrom(ds, FormatNone)
}

func (p *Pipeline) batchFrom(ds []EditDirective, format Format) *EditBatch {
	candidates, rep := Validator{}.Validate(ds)
	if !p.validator.RequireApproval {
		for i := range candidates {
			candidates[i].Approved = true
		}
	}
	p.infof("proposal format=%s received=%d accepted=%d rejected=%d", format, rep.Received, rep.Accepted, rep.Rejected)
	return &EditBatch{Directives: candidates, Report: rep, Format: format}
}

// ExecuteBatch validates batch against the approval rule and applies what
// survives as one document update. Nothing is sent when no directive is
// accepted. The batch is cleared on success and kept intact on failure so the
// caller can retry it.
func (p *Pipeline) ExecuteBatch(ctx context.Context, documentID string, batch *EditBatch) (Result, error) {
	var ds []EditDirective
	if batch != nil {
		ds = batch.Directives
	}
	accepted, rep := p.validator.Validate(ds)
	res := Result{DocumentID: documentID, Report: rep}
	p.infof("execute document=%s received=%d accepted=%d rejected=%d", documentID, rep.Received, rep.Accepted, rep.Rejected)
	if len(accepted) == 0 {
		return res, nil
	}

	applied, err := p.executor.Execute(ctx, documentID, accepted)
	if err != nil {
		p.logger.Printf("[ERROR] execute document=%s: %v", documentID, err)
		return res, err
	}
	res.Operations = len(accepted)
	res.OccurrencesChanged = applied.Total()
	res.Executed = true
	p.infof("execute document=%s operations=%d occurrences=%d", documentID, res.Operations, res.OccurrencesChanged)
	batch.Clear()
	return res, nil
}

// PreviewBatch previews batch against text under the same rules ExecuteBatch
// applies: unapproved, blank and shadowed rows are left out of the diff.
// Matches and Applied stay aligned with batch.Directives.
func (p *Pipeline) PreviewBatch(text string, batch *EditBatch) PreviewResult {
	var ds []EditDirective
	if batch != nil {
		ds = batch.Directives
	}
	norm, keep, rep := p.validator.survivors(ds)
	accepted := make([]EditDirective, 0, rep.Accepted)
	for i, d := range norm {
		if keep[i] {
			accepted = append(accepted, d)
		}
	}

	res := Preview(text, accepted)
	matches := make([]int, len(ds))
	j := 0
	for i := range ds {
		if keep[i] {
			matches[i] = res.Matches[j]
			j++
		}
	}
	res.Matches = matches
	res.Applied = keep
	res.Report = &rep
	return res
}
