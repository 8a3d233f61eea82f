package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM answers without calling a model, for local runs without a key. It
// echoes the instruction and proposes one typo fix in the requested format.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	var sb strings.Builder
	sb.WriteString("Here is one suggestion for your request:\n\n")
	sb.WriteString(fmt.Sprintf("> %s\n\n", firstLine(prompt.User)))
	if strings.Contains(prompt.System, "JSON array") {
		sb.WriteString(`[{"find": "teh", "replace": "the"}]`)
	} else {
		sb.WriteString("Find: teh | Replace: the")
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, instructionLabel); i >= 0 {
		s = strings.TrimSpace(s[i+len(instructionLabel):])
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
