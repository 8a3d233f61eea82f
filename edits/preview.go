package edits

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	LineAdded   = "added"
	LineRemoved = "removed"
)

// DiffLine is one line of a preview diff.
type DiffLine struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
}

// PreviewResult shows what a batch would do to the manuscript text. Applied
// and Report are only set by Pipeline.PreviewBatch.
type PreviewResult struct {
	Matches []int      `json:"matches"`
	Applied []bool     `json:"applied,omitempty"`
	Report  *Report    `json:"report,omitempty"`
	After   string     `json:"-"`
	Changed bool       `json:"changed"`
	Lines   []DiffLine `json:"lines"`
}

// MaxPreviewLines caps the diff; larger previews report counts only.
const MaxPreviewLines = 5000

// Preview applies ds to a copy of text in order, the way the document
// service applies a batch. Each directive sees the output of the previous
// one, so overlapping finds show up here before anything is written.
func Preview(text string, ds []EditDirective) PreviewResult {
	res := PreviewResult{Matches: make([]int, len(ds))}
	after := text
	for i, d := range ds {
		if d.Find == "" {
			continue
		}
		res.Matches[i] = strings.Count(after, d.Find)
		if res.Matches[i] > 0 {
			after = strings.ReplaceAll(after, d.Find, d.Replace)
		}
	}
	res.After = after
	res.Changed = after != text
	if res.Changed && lineCount(text)+lineCount(after) <= MaxPreviewLines {
		res.Lines = diffLines(text, after)
	}
	return res
}

// diffLines reports only changed lines with their positions.
func diffLines(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		chunk := strings.Split(d.Text, "\n")
		if len(chunk) > 0 && chunk[len(chunk)-1] == "" {
			chunk = chunk[:len(chunk)-1]
		}
		for _, line := range chunk {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				out = append(out, DiffLine{Type: LineRemoved, Text: line, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				out = append(out, DiffLine{Type: LineAdded, Text: line, NewLine: newLine})
				newLine++
			}
		}
	}
	return out
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
