package edits

import "strings"

// Validator filters raw directives down to the ones eligible for execution.
type Validator struct {
	// RequireApproval admits only directives a human has marked approved.
	RequireApproval bool
}

// Validate normalises, filters and deduplicates ds, preserving relative order.
// A later directive with the same Find replaces an earlier one; the survivor
// keeps the position of the last occurrence. Invalid directives are counted,
// never reported as errors.
func (v Validator) Validate(ds []EditDirective) ([]EditDirective, Report) {
	norm, keep, rep := v.survivors(ds)
	out := make([]EditDirective, 0, rep.Accepted)
	for i, d := range norm {
		if keep[i] {
			out = append(out, d)
		}
	}
	return out, rep
}

// survivors normalises ds and marks, per input row, whether it would be
// executed.
func (v Validator) survivors(ds []EditDirective) ([]EditDirective, []bool, Report) {
	rep := Report{Received: len(ds)}
	norm := make([]EditDirective, len(ds))
	keep := make([]bool, len(ds))

	last := make(map[string]int, len(ds))
	for i, d := range ds {
		d = d.normalized()
		norm[i] = d
		if strings.TrimSpace(d.Find) == "" {
			rep.Empty++
			continue
		}
		if v.RequireApproval && !d.Approved {
			rep.Unapproved++
			continue
		}
		if prev, ok := last[d.Find]; ok {
			keep[prev] = false
			rep.Duplicates++
		}
		last[d.Find] = i
		keep[i] = true
	}

	rep.Accepted = len(last)
	rep.Rejected = rep.Received - rep.Accepted
	return norm, keep, rep
}
