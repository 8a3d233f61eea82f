package generator

import (
	"regexp"
	"strings"
)

// Some routed models prepend their reasoning in <think> tags; it can hold
// draft brackets and Find lines that were never meant as suggestions.
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// PostProcess strips reasoning blocks and surrounding whitespace from a reply.
func PostProcess(raw string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
}
