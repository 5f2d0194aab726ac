package practice

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/models"
)

type Handler struct {
	generator *Generator
	log       *logger.Logger
}

func NewHandler(generator *Generator, log *logger.Logger) *Handler {
	return &Handler{generator: generator, log: log}
}

type rapidFireResponse struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty Tier   `json:"difficulty"`
	Round      int    `json:"round"`
	Mode       Mode   `json:"type"`
	Source     Source `json:"source"`
}

type wordResponse struct {
	Sentence   string   `json:"sentence"`
	Scrambled  []string `json:"scrambled"`
	Difficulty Tier     `json:"difficulty"`
	Round      int      `json:"round"`
	Mode       Mode     `json:"type"`
	Source     Source   `json:"source"`
}

type evaluateRequest struct {
	UserSentence    string `json:"userSentence"`
	CorrectSentence string `json:"correctSentence"`
}

// RapidFire serves GET /lessons/rapidfire?type=&round=&exclude=
func (h *Handler) RapidFire(w http.ResponseWriter, r *http.Request) {
	item, ok := h.generate(w, r, FamilyQuiz)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rapidFireResponse{
		Question:   item.Question,
		Answer:     item.Answer,
		Difficulty: item.Difficulty,
		Round:      item.Round,
		Mode:       item.Mode,
		Source:     item.Source,
	})
}

// WordBuilderWord serves GET /lessons/wordbuilder/word?type=&round=&exclude=
func (h *Handler) WordBuilderWord(w http.ResponseWriter, r *http.Request) {
	item, ok := h.generate(w, r, FamilySentence)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wordResponse{
		Sentence:   item.Sentence,
		Scrambled:  item.Scrambled,
		Difficulty: item.Difficulty,
		Round:      item.Round,
		Mode:       item.Mode,
		Source:     item.Source,
	})
}

func (h *Handler) WordBuilderEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.CorrectSentence) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "correctSentence is required"})
		return
	}

	writeJSON(w, http.StatusOK, Evaluate(req.UserSentence, req.CorrectSentence))
}

// Modes lists the practice modes of each family.
func (h *Handler) Modes(w http.ResponseWriter, r *http.Request) {
	c := h.generator.Catalog()
	writeJSON(w, http.StatusOK, map[Family][]Mode{
		FamilyQuiz:     c.ModesIn(FamilyQuiz),
		FamilySentence: c.ModesIn(FamilySentence),
	})
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, f Family) (*Item, bool) {
	query := r.URL.Query()
	c := h.generator.Catalog()

	mode := c.ModeOrDefault(f, Mode(strings.TrimSpace(query.Get("type"))))
	round := intQueryParam(query, "round", 1)
	if round < 1 {
		round = 1
	}
	tier := c.SelectTier(mode, round)

	item, err := h.generator.Generate(r.Context(), mode, tier, round, excludeParam(query))
	if err != nil {
		if errors.Is(err, ErrGeneratorUnavailable) {
			h.log.Error("practice generation failed", "family", f, "mode", mode, "error", err)
			writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Content generator unavailable, please try again"})
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate exercise"})
		return nil, false
	}
	return item, true
}

// excludeParam accepts exclude=a,b,c as well as repeated exclude params.
func excludeParam(query url.Values) []string {
	var out []string
	for _, v := range query["exclude"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
