package edits

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// NoEditsMarker is the line a model writes in line format when the text needs
// no change.
const NoEditsMarker = "NO EDITS"

var findReplaceLine = regexp.MustCompile(
	`(?i)^\s*(?:[-*•]\s+|\d+[.)]\s+)?\*{0,2}find\*{0,2}\s*:\s*\*{0,2}\s*(.*?)\s*\|\s*\*{0,2}replace(?:\s+with)?\*{0,2}\s*:\s*\*{0,2}\s*(.*?)\s*$`,
)

// ParseResult holds the raw directives read from one model reply.
type ParseResult struct {
	Directives []EditDirective
	Format     Format
}

// Parse reads edit directives out of free-form model text. A JSON array of
// {find, replace} objects embedded anywhere in the text wins; otherwise
// "Find: x | Replace: y" lines are collected. Directives are returned raw and
// in source order; blank finds are left for the validator to reject.
//
// When nothing can be read and the reply is not a well-formed empty answer
// ("[]" or a NO EDITS line) the error is a *ParseFailure.
func Parse(raw string) (ParseResult, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ParseResult{}, &ParseFailure{Reason: "empty response"}
	}

	jsonDs, wellFormed, jsonSeen := parseJSONArray(text)
	if wellFormed && len(jsonDs) > 0 {
		return ParseResult{Directives: jsonDs, Format: FormatJSON}, nil
	}

	// An empty array only means "nothing to fix" when no line holds an edit;
	// "[]" also shows up inside Find text and prose.
	ds, noEdits := parseLines(text)
	if len(ds) > 0 || noEdits {
		return ParseResult{Directives: ds, Format: FormatLines}, nil
	}
	if wellFormed {
		return ParseResult{Directives: []EditDirective{}, Format: FormatJSON}, nil
	}

	reason := "no JSON array or Find/Replace lines found"
	if jsonSeen {
		reason = "malformed JSON array and no Find/Replace lines found"
	}
	return ParseResult{}, &ParseFailure{Reason: reason, Excerpt: excerpt(text, 80)}
}

// parseJSONArray looks at the span between the first '[' and the last ']'.
// wellFormed is true when that span is a valid array that is either empty or
// holds at least one object. jsonSeen reports that a bracketed span existed.
func parseJSONArray(text string) (ds []EditDirective, wellFormed, jsonSeen bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false, false
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return nil, false, true
	}
	arr := gjson.Parse(candidate)
	if !arr.IsArray() {
		return nil, false, true
	}
	items := arr.Array()
	if len(items) == 0 {
		return []EditDirective{}, true, true
	}
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		ds = append(ds, directiveFromObject(item))
	}
	if len(ds) == 0 {
		return nil, false, true
	}
	return ds, true, true
}

func directiveFromObject(obj gjson.Result) EditDirective {
	d := EditDirective{Source: SourceJSON}
	obj.ForEach(func(key, value gjson.Result) bool {
		switch normalizeKey(key.String()) {
		case "find", "search":
			d.Find = jsonText(value)
		case "replace", "replacewith", "replacement":
			d.Replace = jsonText(value)
		}
		return true
	})
	return d
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(k)
}

func jsonText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	default:
		return v.Raw
	}
}

func parseLines(text string) (ds []EditDirective, noEdits bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if isNoEditsLine(line) {
			noEdits = true
			continue
		}
		m := findReplaceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ds = append(ds, EditDirective{
			Find:    unquote(strings.TrimSpace(m[1])),
			Replace: unquote(strings.TrimSpace(m[2])),
			Source:  SourceLines,
		})
	}
	return ds, noEdits
}

func isNoEditsLine(line string) bool {
	s := strings.Trim(strings.TrimSpace(line), ".!*_`")
	return strings.EqualFold(s, NoEditsMarker)
}

func unquote(s string) string {
	pairs := [][2]string{{`"`, `"`}, {"`", "`"}, {"“", "”"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return s[len(p[0]) : len(s)-len(p[1])]
		}
	}
	return s
}

func excerpt(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}
