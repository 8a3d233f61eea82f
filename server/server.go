package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"grimoire_editor_agent/edits"
	"grimoire_editor_agent/generator"
	"grimoire_editor_agent/publisher"
)

//go:embed web/dist
var embeddedStatic embed.FS

const defaultRequestTimeout = 90 * time.Second

// StatusProber checks the Google connectors for the status panel.
type StatusProber interface {
	Probe(ctx context.Context, documentID, sheetID, rng string) publisher.ConnectorStatus
}

// Options carries the workspace defaults new sessions start from.
type Options struct {
	DocumentID string
	SheetID    string
	SheetRange string
	Format     edits.Format
	// Model is shown in the status panel, e.g. "openrouter:openrouter/auto".
	Model          string
	Prober         StatusProber
	RequestTimeout time.Duration
	Logger         *log.Logger
}

type Server struct {
	agent    *generator.Agent
	opts     Options
	store    *sessionStore
	staticFS http.Handler
	logger   *log.Logger
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*generator.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*generator.Session)}
}

func (s *sessionStore) set(id string, sess *generator.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) get(id string) (*generator.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func New(agent *generator.Agent, opts Options) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}

	sub, err := fs.Sub(embeddedStatic, "web/dist")
	if err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Format == edits.FormatNone {
		opts.Format = edits.FormatLines
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Server{
		agent:    agent,
		opts:     opts,
		store:    newStore(),
		staticFS: http.FileServer(http.FS(sub)),
		logger:   logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sessions", s.handleSessionCreate)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	mux.Handle("/", s.staticHandler())
	return requestIDMiddleware(s.logger, mux)
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		s.staticFS.ServeHTTP(w, r)
	})
}

// --- Handlers ---

type statusResp struct {
	Model            modelStatus               `json:"model"`
	Connectors       publisher.ConnectorStatus `json:"connectors"`
	DocumentID       string                    `json:"document_id,omitempty"`
	RequiresApproval bool                      `json:"requires_approval"`
}

type modelStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

const statusNotConfigured = "not_configured"

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		docID = s.opts.DocumentID
	}
	resp := statusResp{
		Model:            modelStatus{Name: s.opts.Model, Configured: s.opts.Model != ""},
		DocumentID:       docID,
		RequiresApproval: s.agent.Pipeline().RequiresApproval(),
		Connectors:       publisher.ConnectorStatus{Docs: statusNotConfigured, Sheets: statusNotConfigured, Drive: statusNotConfigured},
	}
	if s.opts.Prober != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		resp.Connectors = s.opts.Prober.Probe(ctx, docID, s.opts.SheetID, s.opts.SheetRange)
	}
	writeJSON(w, http.StatusOK, resp)
}

type sessionCreateReq struct {
	DocumentID string       `json:"document_id"`
	SheetID    string       `json:"sheet_id"`
	SheetRange string       `json:"sheet_range"`
	Format     edits.Format `json:"format"`
}

type sessionResp struct {
	generator.Snapshot
	RequiresApproval bool `json:"requires_approval"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionCreateReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ws := generator.Workspace{
		DocumentID: firstNonEmpty(req.DocumentID, s.opts.DocumentID),
		SheetID:    firstNonEmpty(req.SheetID, s.opts.SheetID),
		SheetRange: firstNonEmpty(req.SheetRange, s.opts.SheetRange),
		Format:     s.opts.Format,
	}
	switch req.Format {
	case edits.FormatNone:
	case edits.FormatJSON, edits.FormatLines:
		ws.Format = req.Format
	default:
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("format must be lines or json"))
		return
	}
	if ws.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("document_id is required"))
		return
	}

	id := uuid.NewString()
	sess := generator.NewSession(id, ws, s.agent)
	s.store.set(id, sess)
	s.logger.Printf("[session] created id=%s document=%s format=%s", id, ws.DocumentID, ws.Format)
	writeJSON(w, http.StatusCreated, s.sessionView(sess))
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	sess, ok := s.store.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("session not found"))
		return
	}

	route := r.Method + " " + action
	switch route {
	case "GET ":
		writeJSON(w, http.StatusOK, s.sessionView(sess))
	case "POST messages":
		s.handleMessage(w, r, sess)
	case "POST proposals":
		s.handleProposal(w, r, sess)
	case "PUT batch":
		s.handleBatch(w, r, sess)
	case "POST approvals":
		s.handleApproval(w, r, sess)
	case "POST preview":
		s.handlePreview(w, r, sess)
	case "POST execute":
		s.handleExecute(w, r, sess)
	default:
		if action == "" || isKnownAction(action) {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.NotFound(w, r)
	}
}

func isKnownAction(action string) bool {
	switch action {
	case "messages", "proposals", "batch", "approvals", "preview", "execute":
		return true
	}
	return false
}

type messageReq struct {
	Content           string `json:"content"`
	IncludeStoryBible bool   `json:"include_story_bible"`
	IncludeManuscript bool   `json:"include_manuscript"`
}

type messageResp struct {
	SessionID        string           `json:"session_id"`
	Reply            string           `json:"reply"`
	ReplyHTML        string           `json:"reply_html"`
	Proposal         *edits.EditBatch `json:"proposal"`
	ParseFailure     string           `json:"parse_failure,omitempty"`
	UsedStoryBible   bool             `json:"used_story_bible"`
	UsedManuscript   bool             `json:"used_manuscript"`
	RequiresApproval bool             `json:"requires_approval"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	var req messageReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("content is required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	turn, err := sess.Send(ctx, req.Content, generator.ContextOptions{
		IncludeStoryBible: req.IncludeStoryBible,
		IncludeManuscript: req.IncludeManuscript,
	})
	if err != nil {
		s.logger.Printf("[ERROR] session=%s chat: %v", sess.ID, err)
		writeError(w, http.StatusBadGateway, "model_unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResp{
		SessionID:        sess.ID,
		Reply:            turn.Reply,
		ReplyHTML:        markdownToHTML(turn.Reply),
		Proposal:         turn.Proposal,
		ParseFailure:     turn.ParseFailure,
		UsedStoryBible:   turn.UsedStoryBible,
		UsedManuscript:   turn.UsedManuscript,
		RequiresApproval: s.agent.Pipeline().RequiresApproval(),
	})
}

type proposalReq struct {
	Text string `json:"text"`
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	var req proposalReq
	if !decodeJSON(w, r, &req) {
		return
	}
	batch, err := sess.ProposeFrom(req.Text)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "parse_failure", err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

type batchReq struct {
	Directives []edits.EditDirective `json:"directives"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	var req batchReq
	if !decodeJSON(w, r, &req) {
		return
	}
	for i := range req.Directives {
		req.Directives[i].Source = edits.SourceManual
	}
	writeJSON(w, http.StatusOK, sess.SetDirectives(req.Directives))
}

type approvalReq struct {
	Index    *int `json:"index"`
	All      bool `json:"all"`
	Approved bool `json:"approved"`
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	var req approvalReq
	if !decodeJSON(w, r, &req) {
		return
	}
	switch {
	case req.All:
		sess.ApproveAll(req.Approved)
	case req.Index != nil:
		if err := sess.Approve(*req.Index, req.Approved); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("index or all is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView(sess).Pending)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	preview, err := sess.Preview(ctx)
	if err != nil {
		if errors.Is(err, generator.ErrNoContextSource) {
			writeError(w, http.StatusServiceUnavailable, statusNotConfigured, err)
			return
		}
		writeError(w, http.StatusBadGateway, string(publisher.Classify(err)), err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type executeErrResp struct {
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
	Cause   string          `json:"cause,omitempty"`
	Pending edits.EditBatch `json:"pending"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	res, err := sess.Execute(ctx)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, executeErrResp{
			Error:   err.Error(),
			Kind:    "execution_failure",
			Cause:   string(publisher.Classify(err)),
			Pending: sess.Snapshot().Pending,
		})
		return
	}
	s.logger.Printf("[session] executed id=%s document=%s operations=%d occurrences=%d",
		sess.ID, res.DocumentID, res.Operations, res.OccurrencesChanged)
	writeJSON(w, http.StatusOK, res)
}

// --- Helpers ---

func (s *Server) sessionView(sess *generator.Session) sessionResp {
	return sessionResp{Snapshot: sess.Snapshot(), RequiresApproval: s.agent.Pipeline().RequiresApproval()}
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	// an empty body leaves v at its zero value
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResp struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorResp{Error: err.Error(), Kind: kind})
}

// markdownToHTML renders a model reply for the chat pane; "" on failure.
func markdownToHTML(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
