package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/models"
	"github.com/speakup-coach/backend/internal/progress"
)

var (
	// ErrUnavailable wraps model call failures. Unparseable output is
	// never an error; it is replaced by a fallback.
	ErrUnavailable = errors.New("coach: generator unavailable")
	ErrEmptyText   = errors.New("coach: text is required")
	ErrEmptyTopic  = errors.New("coach: topic is required")
)

// fallbackExplanation marks a fallback analysis; it is never logged as a
// mistake.
const fallbackExplanation = "Unable to parse detailed analysis"

// Recorder persists sessions and mistakes. *progress.Service implements it.
type Recorder interface {
	RecordSession(sess *models.PracticeSession) (*models.XPResult, error)
	RecordMistake(m *models.Mistake)
}

type Service struct {
	llm      llm.Client
	recorder Recorder
	log      *logger.Logger
	timeout  time.Duration
}

func NewService(client llm.Client, recorder Recorder, log *logger.Logger, timeout time.Duration) *Service {
	return &Service{llm: client, recorder: recorder, log: log, timeout: timeout}
}

type AnalyzeRequest struct {
	Text     string             `json:"text"`
	Type     models.SessionType `json:"type"`
	Topic    string             `json:"topic"`
	Scenario string             `json:"scenario"`
}

type AnalyzeResponse struct {
	models.Analysis
	SessionID int64        `json:"sessionId"`
	XPEarned  int          `json:"xpEarned"`
	TotalXP   int          `json:"totalXP"`
	Level     models.Level `json:"level"`
}

// Analyze scores a transcript, saves it as a session worth XPAnalysis and
// logs the explained mistake, if any.
func (s *Service) Analyze(ctx context.Context, userID int64, req AnalyzeRequest) (*AnalyzeResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if req.Type == "" {
		req.Type = models.SessionPractice
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("invalid session type %q", req.Type)
	}

	content, err := s.call(ctx, llm.UserPrompt(analysisSystemPrompt, analysisUserPrompt(text, req.Topic, req.Scenario), 0.7, 800))
	if err != nil {
		return nil, err
	}

	var analysis models.Analysis
	if err := llm.DecodeJSON(content, analysisSchema, &analysis); err != nil {
		s.log.Warn("analysis unparseable, using fallback", "user_id", userID, "error", err)
		analysis = fallbackAnalysis(text)
	}

	sess := &models.PracticeSession{
		UserID:     userID,
		Type:       req.Type,
		Transcript: text,
		Analysis:   analysis,
		XPEarned:   progress.XPAnalysis,
		Scored:     true,
		Topic:      req.Topic,
		Scenario:   req.Scenario,
	}
	xp, err := s.recorder.RecordSession(sess)
	if err != nil {
		return nil, fmt.Errorf("save analysis session: %w", err)
	}

	if explanation := strings.TrimSpace(analysis.MistakeExplanation); explanation != "" && explanation != fallbackExplanation {
		corrected := analysis.ImprovedVersion
		if corrected == "" {
			corrected = text
		}
		s.recorder.RecordMistake(&models.Mistake{
			UserID:        userID,
			Category:      models.MistakeGrammar,
			OriginalText:  text,
			CorrectedText: corrected,
			Explanation:   explanation,
			SessionID:     &sess.ID,
		})
	}

	return &AnalyzeResponse{
		Analysis:  analysis,
		SessionID: sess.ID,
		XPEarned:  xp.XPEarned,
		TotalXP:   xp.TotalXP,
		Level:     xp.Level,
	}, nil
}

type VocabularyEntry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

type Lesson struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Vocabulary  []VocabularyEntry `json:"vocabulary"`
	Phrases     []string          `json:"phrases"`
	Examples    []string          `json:"examples"`
	Tips        string            `json:"tips"`
}

// GenerateLesson asks the model for a lesson on topic. Unparseable output
// yields a bare lesson titled with the topic.
func (s *Service) GenerateLesson(ctx context.Context, topic string) (*Lesson, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	content, err := s.call(ctx, llm.UserPrompt(lessonSystemPrompt(topic), lessonUserPrompt(topic), 0.8, 1000))
	if err != nil {
		return nil, err
	}

	var lesson Lesson
	if err := llm.DecodeJSON(content, lessonSchema, &lesson); err != nil {
		s.log.Warn("lesson unparseable, using fallback", "topic", topic, "error", err)
		return fallbackLesson(topic), nil
	}
	if lesson.Vocabulary == nil {
		lesson.Vocabulary = []VocabularyEntry{}
	}
	if lesson.Phrases == nil {
		lesson.Phrases = []string{}
	}
	if lesson.Examples == nil {
		lesson.Examples = []string{}
	}
	return &lesson, nil
}

func (s *Service) call(ctx context.Context, req llm.Request) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.llm.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp.Content, nil
}

func fallbackAnalysis(text string) models.Analysis {
	return models.Analysis{
		Grammar:            "Analysis completed",
		Vocabulary:         "Keep practicing",
		GrammarScore:       75,
		VocabularyScore:    75,
		Pronunciation:      75,
		Fluency:            75,
		Pace:               70,
		Clarity:            80,
		FillerWords:        10,
		EmotionTone:        "neutral",
		MistakeExplanation: fallbackExplanation,
		ImprovedVersion:    text,
		Motivation:         "Great effort! Keep practicing.",
		PronunciationDetails: &models.PronunciationDetails{
			DifficultSounds: []string{},
			StressPattern:   "good",
			PhoneticOutput:  "",
		},
	}
}

func fallbackLesson(topic string) *Lesson {
	return &Lesson{
		Title:       topic,
		Description: "Learn about " + topic,
		Vocabulary:  []VocabularyEntry{},
		Phrases:     []string{},
		Examples:    []string{},
		Tips:        "",
	}
}

func score() map[string]any {
	return map[string]any{"type": "number", "minimum": 0, "maximum": 100}
}

var analysisSchema = &llm.Schema{
	Name: "coach_analysis",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"pronunciation", "fluency", "pace", "clarity"},
		"properties": map[string]any{
			"grammar":             map[string]any{"type": "string"},
			"vocabulary":          map[string]any{"type": "string"},
			"grammarScore":        score(),
			"vocabularyScore":     score(),
			"pronunciation":       score(),
			"fluency":             score(),
			"pace":                score(),
			"clarity":             score(),
			"fillerWords":         map[string]any{"type": "number", "minimum": 0},
			"emotionTone":         map[string]any{"type": "string"},
			"mistake_explanation": map[string]any{"type": "string"},
			"improved_version":    map[string]any{"type": "string"},
			"motivation":          map[string]any{"type": "string"},
			"pronunciation_details": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"difficult_sounds": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"stress_pattern":   map[string]any{"type": "string"},
					"phonetic_output":  map[string]any{"type": "string"},
				},
			},
		},
	},
}

var lessonSchema = &llm.Schema{
	Name: "coach_lesson",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"title"},
		"properties": map[string]any{
			"title":       llm.NonEmptyString(),
			"description": map[string]any{"type": "string"},
			"vocabulary": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"word"},
					"properties": map[string]any{
						"word":       llm.NonEmptyString(),
						"definition": map[string]any{"type": "string"},
						"example":    map[string]any{"type": "string"},
					},
				},
			},
			"phrases":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"examples": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"tips":     map[string]any{"type": "string"},
		},
	},
}
