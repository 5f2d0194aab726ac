package challenge

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

func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.Daily(r.Context(), userID)
	if errors.Is(err, ErrUnavailable) {
		h.log.Error("daily challenge generation failed", "error", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Content generator unavailable, please try again"})
		return
	}
	if err != nil {
		h.log.Error("error fetching challenge", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Error fetching challenge"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.CompleteChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChallengeID == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "challengeId is required"})
		return
	}

	resp, err := h.service.Complete(userID, req)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Challenge not found"})
	case errors.Is(err, ErrAlreadyCompleted):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Already completed today's challenge"})
	case errors.Is(err, ErrInvalidScore):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Score must be between 0 and 100"})
	case err != nil:
		h.log.Error("error completing challenge", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Error completing challenge"})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard()
	if err != nil {
		h.log.Error("error fetching leaderboard", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Error fetching leaderboard"})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
