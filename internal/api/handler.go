// Package api exposes deck sessions and the tutor over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-deck/internal/deck"
	"github.com/p-n-ai/pai-deck/internal/realtime"
	"github.com/p-n-ai/pai-deck/internal/session"
	"github.com/p-n-ai/pai-deck/internal/tutor"
)

const maxBodyBytes = 16 << 10

// Handler serves the deck API.
type Handler struct {
	sessions *session.Manager
	hub      *realtime.Hub
	panels   *tutor.Panels
}

// New creates a handler. panels may be nil to disable the tutor.
func New(sessions *session.Manager, hub *realtime.Hub, panels *tutor.Panels) *Handler {
	return &Handler{sessions: sessions, hub: hub, panels: panels}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/deck", h.handleDeck)
	mux.HandleFunc("GET /api/deck/quizzes.xlsx", h.handleQuizWorkbook)

	mux.HandleFunc("POST /api/sessions", h.handleStart)
	mux.HandleFunc("GET /api/sessions/{id}", h.handleGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.handleEnd)
	mux.HandleFunc("GET /api/sessions/{id}/events", h.handleEvents)

	mux.HandleFunc("POST /api/sessions/{id}/advance", h.navigate((*session.Session).Advance))
	mux.HandleFunc("POST /api/sessions/{id}/retreat", h.navigate((*session.Session).Retreat))
	mux.HandleFunc("POST /api/sessions/{id}/restart", h.navigate(func(s *session.Session) bool {
		s.Restart()
		return true
	}))
	mux.HandleFunc("POST /api/sessions/{id}/jump", h.handleJump)
	mux.HandleFunc("POST /api/sessions/{id}/points", h.handlePoint)
	mux.HandleFunc("POST /api/sessions/{id}/quizzes/{quizID}/answer", h.handleAnswer)

	mux.HandleFunc("POST /api/sessions/{id}/narration/toggle", h.narration(func(s *session.Session) { s.ToggleNarration() }))
	mux.HandleFunc("POST /api/sessions/{id}/narration/stop", h.narration((*session.Session).StopNarration))
	mux.HandleFunc("POST /api/sessions/{id}/narration/ended", h.narration((*session.Session).NarrationEnded))

	if h.panels != nil {
		mux.HandleFunc("GET /api/tutor/levels", h.handleLevels)
		mux.HandleFunc("GET /api/sessions/{id}/tutor", h.handleTutorView)
		mux.HandleFunc("POST /api/sessions/{id}/tutor", h.handleTutorAsk)
		mux.HandleFunc("POST /api/sessions/{id}/tutor/clear", h.handleTutorClear)
	}
}

// ActionResponse reports whether an action changed anything, plus the
// resulting snapshot.
type ActionResponse struct {
	Accepted bool             `json:"accepted"`
	Result   string           `json:"result,omitempty"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// DeckSummary describes the loaded deck.
type DeckSummary struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	TotalSlides      int      `json:"total_slides"`
	MaxPossibleScore int      `json:"max_possible_score"`
	PassThreshold    int      `json:"pass_threshold"`
	SlideTitles      []string `json:"slide_titles"`
}

func (h *Handler) handleDeck(w http.ResponseWriter, r *http.Request) {
	d := h.sessions.Deck()
	titles := make([]string, d.Len())
	for i, s := range d.Slides {
		titles[i] = s.Title
	}
	writeJSON(w, http.StatusOK, DeckSummary{
		ID:               d.ID,
		Title:            d.Title,
		TotalSlides:      d.Len(),
		MaxPossibleScore: d.MaxPossibleScore(),
		PassThreshold:    d.PassThreshold(),
		SlideTitles:      titles,
	})
}

func (h *Handler) handleQuizWorkbook(w http.ResponseWriter, r *http.Request) {
	d := h.sessions.Deck()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.ID+"-quizzes.xlsx"))
	if err := deck.WriteQuizWorkbook(w, d); err != nil {
		slog.Error("writing quiz workbook", "error", err)
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.sessions.End(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.hub.CloseSession(id)
	if h.panels != nil {
		h.panels.Remove(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	initial := realtime.Message{Type: realtime.TypeSnapshot, Snapshot: &snap}
	err = h.hub.Serve(w, r, id, initial, func(ctx context.Context, msg realtime.ClientMessage) {
		if msg.Type != realtime.ClientNarrationEnded {
			return
		}
		if _, err := h.sessions.Do(ctx, id, func(s *session.Session) error {
			s.NarrationEnded()
			return nil
		}); err != nil {
			slog.Warn("narration ended for unknown session", "session_id", id, "error", err)
		}
	})
	if err != nil {
		slog.Debug("realtime connection closed", "session_id", id, "error", err)
	}
}

// act runs fn against the session and writes the action response.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn func(*session.Session) (bool, string)) {
	var resp ActionResponse
	snap, err := h.sessions.Do(r.Context(), r.PathValue("id"), func(s *session.Session) error {
		resp.Accepted, resp.Result = fn(s)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Snapshot = snap
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) navigate(fn func(*session.Session) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.act(w, r, func(s *session.Session) (bool, string) {
			return fn(s), ""
		})
	}
}

func (h *Handler) narration(fn func(*session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.act(w, r, func(s *session.Session) (bool, string) {
			fn(s)
			return true, ""
		})
	}
}

type jumpRequest struct {
	Index *int `json:"index"`
}

func (h *Handler) handleJump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Index == nil {
		writeError(w, badRequest("index is required"))
		return
	}
	h.act(w, r, func(s *session.Session) (bool, string) {
		return s.JumpTo(*req.Index), ""
	})
}

type pointRequest struct {
	Key string `json:"key"`
}

func (h *Handler) handlePoint(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" {
		writeError(w, badRequest("key is required"))
		return
	}
	h.act(w, r, func(s *session.Session) (bool, string) {
		return s.AcknowledgePoint(req.Key), ""
	})
}

type answerRequest struct {
	Option *int `json:"option"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Option == nil {
		writeError(w, badRequest("option is required"))
		return
	}
	quizID := r.PathValue("quizID")
	h.act(w, r, func(s *session.Session) (bool, string) {
		result := s.AnswerQuiz(quizID, *req.Option)
		return result != session.AnswerIgnored, string(result)
	})
}

func (h *Handler) handleLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := tutor.Levels()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

// sessionPanel returns the tutor panel of a live session. A panel whose
// session has expired is dropped.
func (h *Handler) sessionPanel(ctx context.Context, id string) (*tutor.Panel, error) {
	if _, err := h.sessions.Get(ctx, id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.panels.Remove(id)
		}
		return nil, err
	}
	return h.panels.Get(id), nil
}

func (h *Handler) handleTutorView(w http.ResponseWriter, r *http.Request) {
	panel, err := h.sessionPanel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, panel.View())
}

func (h *Handler) handleTutorClear(w http.ResponseWriter, r *http.Request) {
	panel, err := h.sessionPanel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := panel.Clear(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, panel.View())
}

type tutorRequest struct {
	Question string `json:"question"`
	Level    string `json:"level"`
}

// TutorResponse is the answer plus the panel it landed in.
type TutorResponse struct {
	Answer tutor.Answer    `json:"answer"`
	Panel  tutor.PanelView `json:"panel"`
}

func (h *Handler) handleTutorAsk(w http.ResponseWriter, r *http.Request) {
	var req tutorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	panel, err := h.sessionPanel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	answer, err := panel.Submit(r.Context(), req.Question, req.Level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TutorResponse{Answer: answer, Panel: panel.View()})
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, tutor.ErrEmptyQuestion),
		errors.Is(err, tutor.ErrQuestionTooLong),
		errors.Is(err, tutor.ErrUnknownLevel):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tutor.ErrBusy), errors.Is(err, tutor.ErrAnswerShown):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
