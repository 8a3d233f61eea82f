package generator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"grimoire_editor_agent/edits"
)

func TestSystemPrompt_Format(t *testing.T) {
	assert.Contains(t, SystemPrompt(edits.FormatLines), "Find: <exact text from the manuscript> | Replace: <new text>")
	assert.Contains(t, SystemPrompt(edits.FormatLines), edits.NoEditsMarker)
	assert.Contains(t, SystemPrompt(edits.FormatJSON), `"find"`)
	assert.NotContains(t, SystemPrompt(edits.FormatJSON), "Find: <exact")
}

func TestBuildEditPrompt(t *testing.T) {
	p := BuildEditPrompt(EditRequest{
		Instruction: "  fix the names ",
		StoryBible:  "row 1: Mira | lead\n",
		Manuscript:  "Mirra walked.",
	}, nil)

	assert.Contains(t, p.User, "story bible sheet:\nrow 1: Mira | lead\n\n")
	assert.Contains(t, p.User, "<<<\nMirra walked.\n>>>")
	assert.Contains(t, p.User, "User Instruction: fix the names")
	assert.Equal(t, SystemPrompt(edits.FormatLines), p.System)
}

func TestBuildEditPrompt_TrimsHistory(t *testing.T) {
	var history []Message
	for i := 0; i < maxHistory+6; i++ {
		history = append(history, Message{Role: RoleUser, Content: fmt.Sprint(i)})
	}
	p := BuildEditPrompt(EditRequest{Instruction: "x"}, history)
	assert.Len(t, p.History, maxHistory)
	assert.Equal(t, "6", p.History[0].Content)
}

func TestPostProcess(t *testing.T) {
	assert.Equal(t, "Find: a | Replace: b", PostProcess("<think>\nmaybe [1,2]\n</think>\n Find: a | Replace: b \n"))
	assert.Equal(t, "plain", PostProcess("plain"))
}
