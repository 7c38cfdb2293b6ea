package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cchalm/cloudops-assistant/internal/chat"
	"github.com/cchalm/cloudops-assistant/internal/logger"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type sessionResponse struct {
	ID      string      `json:"id"`
	State   chat.State  `json:"state"`
	Pending string      `json:"pending,omitempty"`
	Turns   []chat.Turn `json:"turns"`
}

type messageRequest struct {
	Query string `json:"query"`
}

type messageResponse struct {
	Reply chat.Turn `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ChatHandlers struct {
	Logger   *logger.Logger
	Registry *Registry
}

func NewChatHandlers(logger *logger.Logger, registry *Registry) *ChatHandlers {
	return &ChatHandlers{Logger: logger, Registry: registry}
}

func (h *ChatHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.Registry.Create()
	h.Logger.Info("session created", logrus.Fields{"session_id": s.ID()})
	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

func (h *ChatHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Registry.Get(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

func (h *ChatHandlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.Registry.Delete(mux.Vars(r)["id"]) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostMessage submits a query and answers with the bot turn once the remote function has replied
func (h *ChatHandlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Registry.Get(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	defer r.Body.Close()

	// A client that goes away must not cancel the call mid-flight; the reply still lands in the transcript
	turn, err := s.Submit(context.WithoutCancel(r.Context()), req.Query)
	switch {
	case errors.Is(err, chat.ErrEmptyQuery):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		h.Logger.Error("failed to submit query", logrus.Fields{"session_id": s.ID(), "error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusOK, messageResponse{Reply: turn})
	}
}

func (h *ChatHandlers) QuickActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chat.QuickActions)
}

func toSessionResponse(s *chat.Session) sessionResponse {
	pending, _ := s.Pending()
	return sessionResponse{
		ID:      s.ID(),
		State:   s.State(),
		Pending: pending,
		Turns:   s.Transcript().All(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
