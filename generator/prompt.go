package generator

import (
	"fmt"
	"strings"

	"grimoire_editor_agent/edits"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	instructionLabel = "User Instruction:"
	maxHistory       = 20
)

// Prompt is the message set sent to the model.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is one earlier chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const editorPersona = "You are a master YA fiction editor working directly on the author's manuscript in Google Docs. " +
	"Use the context provided (story bible rows, manuscript text) to keep names, facts and voice consistent. " +
	"Explain briefly, then give concrete edits."

const linesFormat = "Give every concrete edit on its own line, exactly in this form:\n" +
	"Find: <exact text from the manuscript> | Replace: <new text>\n" +
	"- Copy the Find text verbatim from the manuscript; matching is exact and case-sensitive.\n" +
	"- Every occurrence of the Find text is replaced, so choose a Find long enough to be unique.\n" +
	"- Leave Replace empty to delete the text.\n" +
	"- If nothing should change, write a line containing only " + edits.NoEditsMarker + "."

const jsonFormat = "Give the concrete edits as one JSON array of objects with \"find\" and \"replace\" keys, for example:\n" +
	`[{"find": "exact text from the manuscript", "replace": "new text"}]` + "\n" +
	"- Copy the find text verbatim from the manuscript; matching is exact and case-sensitive, whitespace included.\n" +
	"- Every occurrence of the find text is replaced, so choose a find long enough to be unique.\n" +
	"- Use an empty replace to delete the text.\n" +
	"- If nothing should change, return [] and nothing else."

// SystemPrompt fixes the persona and the output format the parser expects.
func SystemPrompt(format edits.Format) string {
	if format == edits.FormatJSON {
		return editorPersona + "\n\n" + jsonFormat
	}
	return editorPersona + "\n\n" + linesFormat
}

// EditRequest is one instruction with the context gathered for it.
type EditRequest struct {
	Instruction string
	StoryBible  string
	Manuscript  string
	Format      edits.Format
}

// BuildEditPrompt combines gathered context and the instruction. Only the
// most recent history is kept.
func BuildEditPrompt(req EditRequest, history []Message) Prompt {
	var sb strings.Builder
	if req.StoryBible != "" {
		sb.WriteString("Here is the latest critique data from the story bible sheet:\n")
		sb.WriteString(strings.TrimSpace(req.StoryBible))
		sb.WriteString("\n\n")
	}
	if req.Manuscript != "" {
		sb.WriteString("Here is the current manuscript text:\n<<<\n")
		sb.WriteString(req.Manuscript)
		sb.WriteString("\n>>>\n\n")
	}
	sb.WriteString(fmt.Sprintf("%s %s", instructionLabel, strings.TrimSpace(req.Instruction)))

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return Prompt{
		System:  SystemPrompt(req.Format),
		User:    sb.String(),
		History: history,
	}
}
