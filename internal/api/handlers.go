package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/akshatvasisht/oversite/internal/diff"
	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/track"
)

func isNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireSession authenticates session-scoped requests via the
// X-Session-ID header: 401 without it, 404 when it names no session.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing X-Session-ID header")
		return nil, false
	}
	session, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "unknown session")
		} else {
			writeDomainError(w, err)
		}
		return nil, false
	}
	return session, true
}

// requirePathSession additionally checks that the path's session id
// matches the authenticated one.
func (s *Server) requirePathSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return nil, false
	}
	if pathID := r.PathValue("id"); pathID != session.ID {
		writeError(w, http.StatusUnauthorized, "session mismatch")
		return nil, false
	}
	return session, true
}

type sessionStartRequest struct {
	Username    string `json:"username"`
	ProjectName string `json:"project_name"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Username == "" || req.ProjectName == "" {
		writeError(w, http.StatusBadRequest, "username and project_name are required")
		return
	}

	session := &model.Session{
		Username:    req.Username,
		ProjectName: req.ProjectName,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateSession(r.Context(), session); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"started_at": session.StartedAt,
	})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if session.EndedAt != nil {
		writeError(w, http.StatusConflict, "session already ended")
		return
	}
	ended := time.Now().UTC()
	if err := s.store.EndSession(r.Context(), session.ID, ended); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"ended_at":   ended,
	})
}

func (s *Server) handleSessionTrace(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requirePathSession(w, r)
	if !ok {
		return
	}

	events, err := s.store.ListEvents(r.Context(), session.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	interactions, err := s.store.ListInteractions(r.Context(), session.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	decisions, err := s.store.ListDecisions(r.Context(), session.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   session.ID,
		"events":       eventsJSON(events),
		"interactions": interactionsJSON(interactions),
		"decisions":    decisionsJSON(decisions),
	})
}

func (s *Server) handleSessionScore(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requirePathSession(w, r)
	if !ok {
		return
	}

	sc, err := s.pipeline.Cached(r.Context(), session.ID)
	if isNotFound(err) {
		sc, err = s.pipeline.Run(r.Context(), session.ID)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreJSON(sc))
}

type createFileRequest struct {
	Filename       string `json:"filename"`
	Language       string `json:"language"`
	InitialContent string `json:"initial_content"`
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req createFileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	f := &model.File{
		SessionID:      session.ID,
		Filename:       req.Filename,
		Language:       req.Language,
		CreatedAt:      time.Now().UTC(),
		InitialContent: req.InitialContent,
	}
	if err := s.store.CreateFile(r.Context(), f); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file_id": f.ID})
}

type editorEventRequest struct {
	FileID  string `json:"file_id"`
	Content string `json:"content"`
}

func (s *Server) handleEditorEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req editorEventRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	f, err := s.store.GetFile(r.Context(), req.FileID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The delta is against the last known content of the file: the most
	// recent snapshot, or the initial content before any snapshot exists.
	previous := f.InitialContent
	if snap, err := s.store.LatestSnapshot(r.Context(), f.ID); err == nil {
		previous = snap.Content
	} else if !isNotFound(err) {
		writeDomainError(w, err)
		return
	}
	delta := diff.ComputeEditDelta(previous, req.Content)

	now := time.Now().UTC()
	event := &model.Event{
		SessionID: session.ID,
		Timestamp: now,
		Actor:     "candidate",
		EventType: model.EventEdit,
		Content:   req.Content,
		Metadata:  map[string]any{"file_id": f.ID},
	}
	if err := s.store.AppendEvent(r.Context(), event); err != nil {
		writeDomainError(w, err)
		return
	}
	snap := &model.EditorSnapshot{
		SessionID: session.ID,
		FileID:    f.ID,
		Trigger:   "editor_edit",
		Content:   req.Content,
		EditDelta: delta,
		Timestamp: now,
		CharCount: len(req.Content),
	}
	if err := s.store.SaveSnapshot(r.Context(), snap); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"event_id":   event.ID,
		"edit_delta": delta,
	})
}

type panelEventRequest struct {
	Panel string `json:"panel"`
}

func (s *Server) handlePanelEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req panelEventRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if !model.ValidPanels[req.Panel] {
		writeError(w, http.StatusBadRequest, "unknown panel: "+req.Panel)
		return
	}

	event := &model.Event{
		SessionID: session.ID,
		Timestamp: time.Now().UTC(),
		Actor:     "candidate",
		EventType: model.EventPanelFocus,
		Content:   req.Panel,
	}
	if err := s.store.AppendEvent(r.Context(), event); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"event_id": event.ID})
}

type executeEventRequest struct {
	FileID   string `json:"file_id"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

func (s *Server) handleExecuteEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req executeEventRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	event := &model.Event{
		SessionID: session.ID,
		Timestamp: time.Now().UTC(),
		Actor:     "candidate",
		EventType: model.EventExecute,
		Content:   req.Output,
		Metadata: map[string]any{
			"file_id":   req.FileID,
			"command":   req.Command,
			"exit_code": req.ExitCode,
		},
	}
	if err := s.store.AppendEvent(r.Context(), event); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"event_id": event.ID})
}

type chatRequest struct {
	FileID       string `json:"file_id"`
	Prompt       string `json:"prompt"`
	Response     string `json:"response"`
	Model        string `json:"model"`
	PromptTokens int    `json:"prompt_tokens"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	events, err := s.store.ListEvents(r.Context(), session.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	in := &model.Interaction{
		SessionID:    session.ID,
		FileID:       req.FileID,
		Prompt:       req.Prompt,
		Response:     req.Response,
		Model:        req.Model,
		PromptTokens: req.PromptTokens,
		ShownAt:      now,
		Phase:        inferPhase(events),
	}
	if err := s.store.CreateInteraction(r.Context(), in); err != nil {
		writeDomainError(w, err)
		return
	}

	prompt := &model.Event{
		SessionID: session.ID,
		Timestamp: now,
		Actor:     "candidate",
		EventType: model.EventPrompt,
		Content:   req.Prompt,
		Metadata:  map[string]any{"interaction_id": in.ID},
	}
	if err := s.store.AppendEvent(r.Context(), prompt); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"interaction_id": in.ID,
		"phase":          in.Phase,
	})
}

// inferPhase derives the work phase for a new prompt from the trailing
// telemetry: a fresh execute means the candidate is verifying, an editor
// focus means implementing, and anything earlier counts as orientation.
func inferPhase(events []model.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].EventType {
		case model.EventExecute:
			return model.PhaseVerification
		case model.EventEdit:
			return model.PhaseImplementation
		case model.EventPanelFocus:
			switch events[i].Content {
			case "editor":
				return model.PhaseImplementation
			case "filetree", "chat":
				return model.PhaseOrientation
			}
		}
	}
	return model.PhaseOrientation
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	interactions, err := s.store.ListInteractions(r.Context(), session.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interactions": interactionsJSON(interactions),
	})
}

type createSuggestionRequest struct {
	InteractionID   string `json:"interaction_id"`
	FileID          string `json:"file_id"`
	OriginalContent string `json:"original_content"`
	ProposedContent string `json:"proposed_content"`
}

func (s *Server) handleCreateSuggestion(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req createSuggestionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.OriginalContent == req.ProposedContent {
		writeError(w, http.StatusBadRequest, "proposed content is identical to the original")
		return
	}

	now := time.Now().UTC()
	sg := &model.Suggestion{
		InteractionID:   req.InteractionID,
		SessionID:       session.ID,
		FileID:          req.FileID,
		OriginalContent: req.OriginalContent,
		ProposedContent: req.ProposedContent,
		ShownAt:         now,
	}
	hunks, err := s.tracker.Register(r.Context(), sg)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	snap := &model.EditorSnapshot{
		SessionID:    session.ID,
		FileID:       req.FileID,
		Trigger:      "suggestion_shown",
		Content:      req.OriginalContent,
		EditDelta:    diff.ComputeEditDelta(req.OriginalContent, req.ProposedContent),
		SuggestionID: sg.ID,
		Timestamp:    now,
		CharCount:    len(req.OriginalContent),
	}
	if err := s.store.SaveSnapshot(r.Context(), snap); err != nil {
		writeDomainError(w, err)
		return
	}
	audit := &model.Event{
		SessionID: session.ID,
		Timestamp: now,
		Actor:     "assistant",
		EventType: "suggestion_shown",
		Content:   req.ProposedContent,
		Metadata:  map[string]any{"suggestion_id": sg.ID, "hunks_count": len(hunks)},
	}
	if err := s.store.AppendEvent(r.Context(), audit); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"suggestion_id": sg.ID,
		"hunks_count":   len(hunks),
		"hunks":         hunks,
	})
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	sg, err := s.store.GetSuggestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Another session's suggestion is not leaked, it is not found.
	if sg.SessionID != session.ID {
		writeError(w, http.StatusNotFound, "suggestion not found")
		return
	}
	decided, total, err := s.tracker.Progress(r.Context(), sg.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"suggestion":  suggestionJSON(sg),
		"hunks":       diff.Decompose(sg.OriginalContent, sg.ProposedContent),
		"decided":     decided,
		"hunks_count": total,
		"resolved":    sg.Resolved(),
	})
}

type decideRequest struct {
	Decision      string `json:"decision"`
	FinalCode     string `json:"final_code"`
	TimeOnChunkMS int    `json:"time_on_chunk_ms"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	index, err := parseIndex(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chunk index")
		return
	}

	var req decideRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := s.tracker.Decide(r.Context(), track.DecideRequest{
		SessionID:     session.ID,
		SuggestionID:  r.PathValue("id"),
		ChunkIndex:    index,
		Decision:      model.Decision(req.Decision),
		FinalCode:     req.FinalCode,
		TimeOnChunkMS: req.TimeOnChunkMS,
		Actor:         session.Username,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{
		"decision_id":      res.Decision.ID,
		"decision":         res.Decision.Decision,
		"time_on_chunk_ms": res.Decision.TimeOnChunkMS,
		"resolved":         res.Resolution != nil,
	}
	if res.Resolution != nil {
		resp["all_accepted"] = res.Resolution.AllAccepted
		resp["any_modified"] = res.Resolution.AnyModified
	}
	writeJSON(w, http.StatusCreated, resp)
}

type resolveRequest struct {
	FinalContent string `json:"final_content"`
	AllAccepted  bool   `json:"all_accepted"`
	AnyModified  bool   `json:"any_modified"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := s.tracker.Resolve(r.Context(), track.ResolveRequest{
		SessionID:    session.ID,
		SuggestionID: r.PathValue("id"),
		FinalContent: req.FinalContent,
		AllAccepted:  req.AllAccepted,
		AnyModified:  req.AnyModified,
		Actor:        session.Username,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestion_id": res.SuggestionID,
		"resolved_at":   res.ResolvedAt,
		"all_accepted":  res.AllAccepted,
		"any_modified":  res.AnyModified,
	})
}

// handleAnalyticsOverview lists every session with its score, newest
// first. This is the reviewer dashboard feed, so it takes no
// X-Session-ID: it spans sessions by design.
func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	completedOnly := r.URL.Query().Get("completed_only") == "true"

	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]overviewEntry, 0, len(sessions))
	for _, sess := range sessions {
		if completedOnly && sess.EndedAt == nil {
			continue
		}
		entry := overviewEntry{
			SessionID:     sess.ID,
			Username:      sess.Username,
			ProjectName:   sess.ProjectName,
			Status:        "In Progress",
			StartedAt:     sess.StartedAt,
			DateSubmitted: sess.EndedAt,
		}
		if sess.EndedAt != nil {
			entry.Status = "Submitted"
		}
		sc, err := s.store.GetScore(r.Context(), sess.ID)
		switch {
		case err == nil:
			entry.Score = &sc.WeightedScore
			entry.Label = &sc.OverallLabel
		case !isNotFound(err):
			writeDomainError(w, err)
			return
		}
		out = append(out, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}
