package generator

import (
	"context"
	"errors"
	"sync"
	"time"

	"grimoire_editor_agent/edits"
)

var ErrNoContextSource = errors.New("no manuscript reader configured")

// Workspace names the manuscript and story bible a session works on.
type Workspace struct {
	DocumentID string       `json:"document_id"`
	SheetID    string       `json:"sheet_id,omitempty"`
	SheetRange string       `json:"sheet_range,omitempty"`
	Format     edits.Format `json:"format"`
}

// Session owns the state of one writer's conversation: chat history, the
// pending edit batch and the last execution result. Methods serialize on the
// session so one session is driven by one caller at a time.
type Session struct {
	mu         sync.Mutex
	ID         string
	Workspace  Workspace
	History    []Message
	Turns      []Turn
	Pending    *edits.EditBatch
	LastResult *edits.Result
	CreatedAt  time.Time
	agent      *Agent
}

// NewSession creates an empty session; nothing is sent to the model yet.
func NewSession(id string, ws Workspace, agent *Agent) *Session {
	if ws.Format == edits.FormatNone {
		ws.Format = edits.FormatLines
	}
	return &Session{
		ID:        id,
		Workspace: ws,
		Pending:   &edits.EditBatch{},
		CreatedAt: time.Now(),
		agent:     agent,
	}
}

// ContextOptions asks for extra context on one turn.
type ContextOptions struct {
	IncludeStoryBible bool
	IncludeManuscript bool
}

// Send runs one chat turn. Its proposal replaces the pending batch. A failed
// model call leaves history and the pending batch untouched.
func (s *Session) Send(ctx context.Context, message string, opts ContextOptions) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := ChatRequest{
		Message:           message,
		DocumentID:        s.Workspace.DocumentID,
		SheetID:           s.Workspace.SheetID,
		SheetRange:        s.Workspace.SheetRange,
		Format:            s.Workspace.Format,
		IncludeStoryBible: opts.IncludeStoryBible,
		IncludeManuscript: opts.IncludeManuscript,
	}
	turn, err := s.agent.Chat(ctx, req, s.History)
	if err != nil {
		return Turn{}, err
	}
	s.History = append(s.History,
		Message{Role: RoleUser, Content: message},
		Message{Role: RoleAssistant, Content: turn.Reply},
	)
	s.Turns = append(s.Turns, turn)
	s.Pending = turn.Proposal
	return turn, nil
}

// ProposeFrom parses suggestions pasted by the writer into the pending batch.
// On a parse failure the pending batch is left as it was.
func (s *Session) ProposeFrom(text string) (*edits.EditBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.agent.Pipeline().ProposeEdits(text)
	if err != nil {
		return batch, err
	}
	s.Pending = batch
	return batch, nil
}

// SetDirectives replaces the pending batch with rows from the edit table.
func (s *Session) SetDirectives(rows []edits.EditDirective) *edits.EditBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := make([]edits.EditDirective, 0, len(rows))
	for _, r := range rows {
		if r.Source == "" {
			r.Source = edits.SourceManual
		}
		ds = append(ds, r)
	}
	s.Pending = s.agent.Pipeline().ProposeDirectives(ds)
	return s.Pending
}

func (s *Session) Approve(i int, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Pending.SetApproved(i, approved)
}

func (s *Session) ApproveAll(approved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pending.SetAllApproved(approved)
}

// Execute applies the pending batch to the session's manuscript.
func (s *Session) Execute(ctx context.Context) (edits.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.agent.Pipeline().ExecuteBatch(ctx, s.Workspace.DocumentID, s.Pending)
	if err != nil {
		return res, err
	}
	s.LastResult = &res
	return res, nil
}

// Preview shows what Execute would do to the current manuscript text without
// writing anything.
func (s *Session) Preview(ctx context.Context) (edits.PreviewResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.agent.ContextSource()
	if src == nil {
		return edits.PreviewResult{}, ErrNoContextSource
	}
	text, err := src.Manuscript(ctx, s.Workspace.DocumentID)
	if err != nil {
		return edits.PreviewResult{}, err
	}
	return s.agent.Pipeline().PreviewBatch(text, s.Pending), nil
}

// Snapshot is a copy of the session safe to serialize.
type Snapshot struct {
	ID         string          `json:"session_id"`
	Workspace  Workspace       `json:"workspace"`
	History    []Message       `json:"history"`
	Pending    edits.EditBatch `json:"pending"`
	LastResult *edits.Result   `json:"last_result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.ID,
		Workspace:  s.Workspace,
		History:    append([]Message(nil), s.History...),
		LastResult: s.LastResult,
		CreatedAt:  s.CreatedAt,
	}
	if s.Pending != nil {
		snap.Pending = *s.Pending
		snap.Pending.Directives = append([]edits.EditDirective(nil), s.Pending.Directives...)
	}
	return snap
}
