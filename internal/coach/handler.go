package coach

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

// Analyze serves POST /api/ai/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid session type"})
		return
	}

	resp, err := h.service.Analyze(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err, "Error analyzing speech")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GenerateLesson serves POST /api/lessons/generate
func (h *Handler) GenerateLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	lesson, err := h.service.GenerateLesson(r.Context(), req.Topic)
	if err != nil {
		h.writeError(w, err, "Error generating lesson")
		return
	}

	writeJSON(w, http.StatusOK, lesson)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Text is required"})
	case errors.Is(err, ErrEmptyTopic):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Topic is required"})
	case errors.Is(err, ErrUnavailable):
		h.log.Error("coach generator failed", "error", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Content generator unavailable, please try again"})
	default:
		h.log.Error(fallbackMsg, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fallbackMsg})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
