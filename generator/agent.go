package generator

import (
	"context"
	"errors"
	"io"
	"log"
	"regexp"
	"time"
	"unicode/utf8"

	"grimoire_editor_agent/edits"
)

// ContextSource reads the material a turn may quote to the model.
type ContextSource interface {
	StoryBible(ctx context.Context, sheetID, rng string) (string, error)
	Manuscript(ctx context.Context, documentID string) (string, error)
}

// Agent sends instructions to the model and turns replies into edit proposals.
type Agent struct {
	llm          LLMClient
	pipeline     *edits.Pipeline
	ctxSrc       ContextSource
	excerptChars int
	logger       *log.Logger
}

type AgentOption func(*Agent)

func WithContextSource(src ContextSource) AgentOption {
	return func(a *Agent) { a.ctxSrc = src }
}

// WithExcerptChars caps how much manuscript text is quoted per turn.
func WithExcerptChars(n int) AgentOption {
	return func(a *Agent) { a.excerptChars = n }
}

func WithLogger(l *log.Logger) AgentOption {
	return func(a *Agent) { a.logger = l }
}

func NewAgent(llm LLMClient, pipeline *edits.Pipeline, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if pipeline == nil {
		return nil, errors.New("edit pipeline is required")
	}
	a := &Agent{llm: llm, pipeline: pipeline, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Agent) Pipeline() *edits.Pipeline { return a.pipeline }

// ContextSource returns the configured reader, or nil.
func (a *Agent) ContextSource() ContextSource { return a.ctxSrc }

var mentionsRead = regexp.MustCompile(`(?i)\bread\b`)

// Chat runs one turn. A reply without readable edits is still a successful
// turn: the turn carries ParseFailure and an empty proposal. Only a model
// failure is returned as an error.
func (a *Agent) Chat(ctx context.Context, req ChatRequest, history []Message) (Turn, error) {
	turn := Turn{Message: req.Message}
	er := EditRequest{Instruction: req.Message, Format: req.Format}

	if a.ctxSrc != nil && req.SheetID != "" && (req.IncludeStoryBible || mentionsRead.MatchString(req.Message)) {
		bible, err := a.ctxSrc.StoryBible(ctx, req.SheetID, req.SheetRange)
		if err != nil {
			a.logger.Printf("[WARN] story bible %s unavailable, continuing without it: %v", req.SheetID, err)
		} else {
			er.StoryBible = bible
			turn.UsedStoryBible = true
		}
	}
	if a.ctxSrc != nil && req.DocumentID != "" && req.IncludeManuscript {
		text, err := a.ctxSrc.Manuscript(ctx, req.DocumentID)
		if err != nil {
			a.logger.Printf("[WARN] manuscript %s unavailable, continuing without it: %v", req.DocumentID, err)
		} else {
			er.Manuscript = truncateRunes(text, a.excerptChars)
			turn.UsedManuscript = true
		}
	}

	raw, err := a.llm.Complete(ctx, BuildEditPrompt(er, history))
	if err != nil {
		if !errors.Is(err, ErrModelUnavailable) {
			err = &ModelUnavailable{Provider: "llm", Err: err}
		}
		return Turn{}, err
	}

	turn.Reply = PostProcess(raw)
	batch, perr := a.pipeline.ProposeEdits(turn.Reply)
	turn.Proposal = batch
	if perr != nil {
		turn.ParseFailure = perr.Error()
	}
	turn.CreatedAt = time.Now()
	return turn, nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
