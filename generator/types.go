package generator

import (
	"time"

	"grimoire_editor_agent/edits"
)

// ChatRequest is one message from the writer plus where to look for context.
type ChatRequest struct {
	Message           string
	DocumentID        string
	SheetID           string
	SheetRange        string
	Format            edits.Format
	IncludeStoryBible bool
	IncludeManuscript bool
}

// Turn records one chat exchange and the edits proposed by it.
type Turn struct {
	Message  string           `json:"message"`
	Reply    string           `json:"reply"`
	Proposal *edits.EditBatch `json:"proposal"`
	// ParseFailure is set when the reply held no readable edits, so the UI
	// can suggest asking again.
	ParseFailure   string    `json:"parse_failure,omitempty"`
	UsedStoryBible bool      `json:"used_story_bible"`
	UsedManuscript bool      `json:"used_manuscript"`
	CreatedAt      time.Time `json:"created_at"`
}
