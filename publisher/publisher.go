package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"grimoire_editor_agent/config"
	"grimoire_editor_agent/edits"
)

// Workspace is the Google side of the editor: it writes substitutions to the
// manuscript and reads the manuscript and story bible as context.
type Workspace struct {
	docs    *Docs
	sheets  *Sheets
	drive   *Drive
	timeout time.Duration
	verbose bool
	logger  *log.Logger
}

// New resolves credentials from cfg and builds the Docs, Sheets and Drive clients.
func New(ctx context.Context, cfg config.GoogleConfig, verbose bool, logger *log.Logger) (*Workspace, error) {
	opts, err := ClientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ws, err := NewWithOptions(ctx, verbose, logger, opts...)
	if err != nil {
		return nil, err
	}
	ws.timeout = cfg.Timeout()
	return ws, nil
}

// NewWithOptions builds the clients from explicit client options.
func NewWithOptions(ctx context.Context, verbose bool, logger *log.Logger, opts ...option.ClientOption) (*Workspace, error) {
	if logger == nil {
		logger = log.Default()
	}
	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		docs:    NewDocs(docsSvc),
		sheets:  NewSheets(sheetsSvc),
		drive:   NewDrive(driveSvc),
		verbose: verbose,
		logger:  logger,
	}, nil
}

func (w *Workspace) infof(format string, args ...interface{}) {
	if !w.verbose {
		return
	}
	w.logger.Printf("[INFO] "+format, args...)
}

// withTimeout bounds read calls; ApplySubstitutions is bounded by the executor.
func (w *Workspace) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, w.timeout)
}

// ApplySubstitutions implements edits.DocumentMutator.
func (w *Workspace) ApplySubstitutions(ctx context.Context, documentID string, subs []edits.Substitution) (edits.ApplyResult, error) {
	if len(subs) == 0 {
		return edits.ApplyResult{}, errors.New("no substitutions to apply")
	}
	w.infof("Applying %d substitutions to document %s", len(subs), documentID)
	res, err := w.docs.ApplySubstitutions(ctx, documentID, subs)
	if err != nil {
		return edits.ApplyResult{}, err
	}
	w.infof("Document %s updated: %d occurrences changed", documentID, res.Total())
	return res, nil
}

// GetText returns the manuscript text.
func (w *Workspace) GetText(ctx context.Context, documentID string) (string, error) {
	ctx, cancel := w.withTimeout(ctx)
	defer cancel()
	text, err := w.docs.GetText(ctx, documentID)
	if err != nil {
		return "", err
	}
	w.infof("Read document %s (%d chars)", documentID, utf8.RuneCountInString(text))
	return text, nil
}

// Manuscript is GetText under the name the chat agent asks for context by.
func (w *Workspace) Manuscript(ctx context.Context, documentID string) (string, error) {
	return w.GetText(ctx, documentID)
}

// StoryBible reads rng of the story bible sheet as prompt context.
func (w *Workspace) StoryBible(ctx context.Context, sheetID, rng string) (string, error) {
	ctx, cancel := w.withTimeout(ctx)
	defer cancel()
	text, err := w.sheets.StoryBible(ctx, sheetID, rng)
	if err != nil {
		return "", err
	}
	w.infof("Read story bible %s!%s", sheetID, rng)
	return text, nil
}

// DocumentInfo returns Drive metadata for a manuscript.
func (w *Workspace) DocumentInfo(ctx context.Context, documentID string) (DocumentInfo, error) {
	ctx, cancel := w.withTimeout(ctx)
	defer cancel()
	return w.drive.DocumentInfo(ctx, documentID)
}

// ConnectorStatus reports whether each Google API answered for the given ids.
type ConnectorStatus struct {
	Docs   string `json:"docs"`
	Sheets string `json:"sheets"`
	Drive  string `json:"drive"`
}

const (
	StatusConnected = "connected"
	StatusSkipped   = "skipped"
)

// Probe checks the manuscript through Docs and Drive and the story bible
// through Sheets. Empty ids are skipped; failures are reported by kind.
func (w *Workspace) Probe(ctx context.Context, documentID, sheetID, rng string) ConnectorStatus {
	st := ConnectorStatus{Docs: StatusSkipped, Sheets: StatusSkipped, Drive: StatusSkipped}
	if documentID != "" {
		pctx, cancel := w.withTimeout(ctx)
		_, err := w.docs.Document(pctx, documentID)
		cancel()
		st.Docs = probeStatus(err)
		_, err = w.DocumentInfo(ctx, documentID)
		st.Drive = probeStatus(err)
	}
	if sheetID != "" {
		_, err := w.StoryBible(ctx, sheetID, rng)
		st.Sheets = probeStatus(err)
	}
	return st
}

func probeStatus(err error) string {
	if err == nil {
		return StatusConnected
	}
	return string(Classify(err))
}

// Offline stands in for the Workspace when no Google credentials resolved.
// Every write fails with Err, so the batch is kept for a later retry.
type Offline struct {
	Err error
}

func (o Offline) ApplySubstitutions(context.Context, string, []edits.Substitution) (edits.ApplyResult, error) {
	return edits.ApplyResult{}, fmt.Errorf("google workspace offline: %w", o.Err)
}

var (
	_ edits.DocumentMutator = (*Workspace)(nil)
	_ edits.DocumentMutator = Offline{}
)
