package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimoire_editor_agent/edits"
)

type scriptedLLM struct {
	replies []string
	err     error
	prompts []Prompt
}

func (s *scriptedLLM) Complete(_ context.Context, p Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "NO EDITS", nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

// fakeWorkspace serves context reads and applies substitutions in memory.
type fakeWorkspace struct {
	bible      string
	bibleErr   error
	text       string
	textErr    error
	applyErr   error
	bibleCalls int
	applied    [][]edits.Substitution
}

func (f *fakeWorkspace) StoryBible(_ context.Context, _, _ string) (string, error) {
	f.bibleCalls++
	return f.bible, f.bibleErr
}

func (f *fakeWorkspace) Manuscript(_ context.Context, _ string) (string, error) {
	return f.text, f.textErr
}

func (f *fakeWorkspace) ApplySubstitutions(_ context.Context, _ string, subs []edits.Substitution) (edits.ApplyResult, error) {
	if f.applyErr != nil {
		return edits.ApplyResult{}, f.applyErr
	}
	f.applied = append(f.applied, subs)
	var res edits.ApplyResult
	for _, s := range subs {
		res.Occurrences = append(res.Occurrences, int64(strings.Count(f.text, s.Find)))
		f.text = strings.ReplaceAll(f.text, s.Find, s.Replace)
	}
	return res, nil
}

func newTestAgent(t *testing.T, llm LLMClient, ws *fakeWorkspace, requireApproval bool, opts ...AgentOption) *Agent {
	t.Helper()
	exec, err := edits.NewExecutor(ws)
	require.NoError(t, err)
	p, err := edits.NewPipeline(edits.Validator{RequireApproval: requireApproval}, exec, false, nil)
	require.NoError(t, err)
	a, err := NewAgent(llm, p, append([]AgentOption{WithContextSource(ws)}, opts...)...)
	require.NoError(t, err)
	return a
}

func TestNewAgent_RequiresCollaborators(t *testing.T) {
	_, err := NewAgent(nil, nil)
	assert.Error(t, err)
	_, err = NewAgent(MockLLM{}, nil)
	assert.Error(t, err)
}

func TestAgent_ChatProposesEdits(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"<think>Find: x | Replace: y</think>Fixed the sky.\nFind: grey sky | Replace: ash-grey sky"}}
	a := newTestAgent(t, llm, &fakeWorkspace{}, false)

	turn, err := a.Chat(context.Background(), ChatRequest{Message: "make the sky moodier", DocumentID: "doc-1"}, nil)
	require.NoError(t, err)
	assert.Empty(t, turn.ParseFailure)
	require.Equal(t, 1, turn.Proposal.Len())
	assert.Equal(t, "grey sky", turn.Proposal.Directives[0].Find)
	assert.NotContains(t, turn.Reply, "<think>")
	assert.False(t, turn.UsedStoryBible)
	assert.False(t, turn.UsedManuscript)
	assert.Contains(t, llm.prompts[0].User, "User Instruction: make the sky moodier")
}

func TestAgent_ReadKeywordPullsStoryBible(t *testing.T) {
	ws := &fakeWorkspace{bible: "row 1: Mira | protagonist"}
	llm := &scriptedLLM{}
	a := newTestAgent(t, llm, ws, false)

	turn, err := a.Chat(context.Background(), ChatRequest{Message: "Read the bible and check names", SheetID: "sheet-1"}, nil)
	require.NoError(t, err)
	assert.True(t, turn.UsedStoryBible)
	assert.Contains(t, llm.prompts[0].User, "row 1: Mira | protagonist")

	_, err = a.Chat(context.Background(), ChatRequest{Message: "thread the needle", SheetID: "sheet-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ws.bibleCalls, "read must match as a word")
}

func TestAgent_ContextFailureDoesNotFailTurn(t *testing.T) {
	ws := &fakeWorkspace{bibleErr: errors.New("403"), textErr: errors.New("404")}
	llm := &scriptedLLM{}
	a := newTestAgent(t, llm, ws, false)

	turn, err := a.Chat(context.Background(), ChatRequest{
		Message: "tighten it", DocumentID: "doc", SheetID: "sheet",
		IncludeStoryBible: true, IncludeManuscript: true,
	}, nil)
	require.NoError(t, err)
	assert.False(t, turn.UsedStoryBible)
	assert.False(t, turn.UsedManuscript)
}

func TestAgent_ManuscriptExcerptIsCapped(t *testing.T) {
	ws := &fakeWorkspace{text: "ÄÖÜ and more text"}
	llm := &scriptedLLM{}
	a := newTestAgent(t, llm, ws, false, WithExcerptChars(3))

	turn, err := a.Chat(context.Background(), ChatRequest{Message: "m", DocumentID: "doc", IncludeManuscript: true}, nil)
	require.NoError(t, err)
	assert.True(t, turn.UsedManuscript)
	assert.Contains(t, llm.prompts[0].User, "<<<\nÄÖÜ\n>>>")
}

func TestAgent_UnparseableReplyIsStillATurn(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"I love this chapter!"}}
	a := newTestAgent(t, llm, &fakeWorkspace{}, false)

	turn, err := a.Chat(context.Background(), ChatRequest{Message: "thoughts?"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, turn.ParseFailure)
	require.NotNil(t, turn.Proposal)
	assert.Equal(t, 0, turn.Proposal.Len())
}

func TestAgent_ModelErrorIsWrapped(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("connection refused")}
	a := newTestAgent(t, llm, &fakeWorkspace{}, false)

	_, err := a.Chat(context.Background(), ChatRequest{Message: "hi"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMockLLM_FollowsFormat(t *testing.T) {
	lines, err := MockLLM{}.Complete(context.Background(), BuildEditPrompt(EditRequest{Instruction: "fix typos"}, nil))
	require.NoError(t, err)
	assert.Contains(t, lines, "> fix typos")
	parsed, err := edits.Parse(lines)
	require.NoError(t, err)
	assert.Equal(t, edits.FormatLines, parsed.Format)

	js, err := MockLLM{}.Complete(context.Background(), BuildEditPrompt(EditRequest{Instruction: "fix", Format: edits.FormatJSON}, nil))
	require.NoError(t, err)
	parsed, err = edits.Parse(js)
	require.NoError(t, err)
	assert.Equal(t, edits.FormatJSON, parsed.Format)
}
