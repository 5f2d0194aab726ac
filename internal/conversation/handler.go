package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/middleware"
	"github.com/speakup-coach/backend/internal/models"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type startResponse struct {
	Scenario       string `json:"scenario"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req struct {
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	sess, err := h.service.Start(r.Context(), userID, req.Scenario)
	if err != nil {
		h.writeError(w, err, "Error starting conversation")
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		Scenario:       sess.Scenario,
		Message:        sess.Messages[0].Content,
		ConversationID: sess.ID,
	})
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	reply, err := h.service.Message(r.Context(), userID, req.Message)
	if err != nil {
		h.writeError(w, err, "Error in conversation")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.End(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "Error ending conversation")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Scenarios lists the named role-play settings.
func (h *Handler) Scenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"scenarios": ScenarioNames()})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrNoActiveConversation):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No active conversation. Start one first."})
	case errors.Is(err, ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Message is required"})
	case errors.Is(err, ErrUnavailable):
		h.log.Error("conversation generator failed", "error", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Content generator unavailable, please try again"})
	default:
		h.log.Error(msg, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
