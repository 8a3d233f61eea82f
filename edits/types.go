package edits

import (
	"errors"
	"strings"
)

// Source records which format a directive was read from.
type Source string

const (
	SourceJSON   Source = "json"
	SourceLines  Source = "lines"
	SourceManual Source = "manual"
)

// Format is the house format a model reply was parsed as.
type Format string

const (
	FormatNone  Format = ""
	FormatJSON  Format = "json"
	FormatLines Format = "lines"
)

// ErrEmptyFind is returned by NewEditDirective for an empty or blank search text.
var ErrEmptyFind = errors.New("find text must not be empty")

// EditDirective is one proposed literal substitution. Find is matched
// case-sensitively; an empty Replace deletes every occurrence.
type EditDirective struct {
	Find     string `json:"find"`
	Replace  string `json:"replace"`
	Approved bool   `json:"approved"`
	Source   Source `json:"source,omitempty"`
}

// NewEditDirective builds a directive and rejects blank search text.
func NewEditDirective(find, replace string, src Source) (EditDirective, error) {
	d := EditDirective{Find: find, Replace: replace, Source: src}
	if src != SourceJSON {
		d = d.normalized()
	}
	if strings.TrimSpace(d.Find) == "" {
		return EditDirective{}, ErrEmptyFind
	}
	return d, nil
}

// normalized trims line and manual directives; JSON whitespace is literal.
func (d EditDirective) normalized() EditDirective {
	if d.Source == SourceJSON {
		return d
	}
	d.Find = strings.TrimSpace(d.Find)
	d.Replace = strings.TrimSpace(d.Replace)
	return d
}

// Report counts what the validator did with a directive list.
type Report struct {
	Received   int `json:"received"`
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`
	Empty      int `json:"empty"`
	Unapproved int `json:"unapproved"`
	Duplicates int `json:"duplicates"`
}

// EditBatch is the pending candidate list of one chat turn. It is bound to a
// document only when executed and is never persisted.
type EditBatch struct {
	Directives []EditDirective `json:"directives"`
	Report     Report          `json:"report"`
	Format     Format          `json:"format,omitempty"`
}

// Len returns the number of candidates, treating a nil batch as empty.
func (b *EditBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Directives)
}

// Clear drops every candidate.
func (b *EditBatch) Clear() {
	if b == nil {
		return
	}
	b.Directives = nil
	b.Report = Report{}
}

// SetApproved toggles approval of the i-th candidate.
func (b *EditBatch) SetApproved(i int, approved bool) error {
	if b == nil || i < 0 || i >= len(b.Directives) {
		return ErrNoSuchDirective
	}
	b.Directives[i].Approved = approved
	return nil
}

// SetAllApproved toggles approval of every candidate.
func (b *EditBatch) SetAllApproved(approved bool) {
	if b == nil {
		return
	}
	for i := range b.Directives {
		b.Directives[i].Approved = approved
	}
}

// Result is the aggregate outcome of one execution request.
type Result struct {
	DocumentID         string `json:"document_id"`
	Operations         int    `json:"operations"`
	OccurrencesChanged int64  `json:"occurrences_changed"`
	Report             Report `json:"report"`
	Executed           bool   `json:"executed"`
}
