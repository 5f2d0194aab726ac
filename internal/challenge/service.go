package challenge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/models"
	"github.com/speakup-coach/backend/internal/progress"
)

var (
	ErrUnavailable  = errors.New("challenge: generator unavailable")
	ErrInvalidScore = errors.New("challenge: score must be between 0 and 100")
)

const (
	leaderboardSize = 10

	systemPrompt = `Generate a daily English challenge. Return JSON: {"sentence": "a sentence to pronounce", "vocabularyWord": {"word": "word", "definition": "def", "example": "sentence"}, "conversation": {"scenario": "name", "prompt": "starting prompt"}, "motivationalQuote": "quote"}`
	userPrompt   = "Create today's challenge"

	completedMotivation = "Daily challenge completed!"
)

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	GetByDate(date time.Time) (*models.Challenge, error)
	GetByID(id int64) (*models.Challenge, error)
	CreateIfAbsent(c *models.Challenge) (*models.Challenge, error)
	AddCompletion(challengeID, userID int64, score *int) error
	RemoveCompletion(challengeID, userID int64) error
	HasCompleted(challengeID, userID int64) (bool, error)
	CompletionCount(challengeID int64) (int, error)
	Leaderboard(limit int) ([]models.LeaderboardEntry, error)
}

// Recorder credits XP for a completed challenge. *progress.Service implements it.
type Recorder interface {
	RecordSession(sess *models.PracticeSession) (*models.XPResult, error)
}

type Service struct {
	repo     Repository
	llm      llm.Client
	recorder Recorder
	log      *logger.Logger
	timeout  time.Duration
	now      func() time.Time

	daily singleflight.Group
}

func NewService(repo Repository, client llm.Client, recorder Recorder, log *logger.Logger, timeout time.Duration) *Service {
	return &Service{repo: repo, llm: client, recorder: recorder, log: log, timeout: timeout, now: time.Now}
}

func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Daily returns the challenge for the current UTC day, generating and
// storing it on the first request of the day.
func (s *Service) Daily(ctx context.Context, userID int64) (*models.DailyChallengeResponse, error) {
	c, err := s.todaysChallenge(ctx)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.HasCompleted(c.ID, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CompletionCount(c.ID)
	if err != nil {
		return nil, err
	}

	return &models.DailyChallengeResponse{Challenge: c, Completed: completed, CompletionCount: count}, nil
}

func (s *Service) todaysChallenge(ctx context.Context) (*models.Challenge, error) {
	day := today(s.now())

	c, err := s.repo.GetByDate(day)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// concurrent first requests on this instance share one generation;
	// CreateIfAbsent settles races between instances
	v, err, _ := s.daily.Do(day.Format(time.DateOnly), func() (any, error) {
		generated, err := s.generate(ctx, day)
		if err != nil {
			return nil, err
		}
		return s.repo.CreateIfAbsent(generated)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Challenge), nil
}

func (s *Service) generate(ctx context.Context, day time.Time) (*models.Challenge, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.llm.Generate(ctx, llm.UserPrompt(systemPrompt, userPrompt, 0.9, 400))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var c models.Challenge
	if err := llm.DecodeJSON(resp.Content, challengeSchema, &c); err != nil {
		s.log.Warn("daily challenge unparseable, using fallback", "date", day.Format(time.DateOnly), "error", err)
		c = fallbackChallenge()
	}
	c.ID = 0
	c.Date = day

	s.log.Info("daily challenge generated", "date", day.Format(time.DateOnly), "word", c.VocabularyWord.Word)
	return &c, nil
}

// Complete marks the challenge done for the user and credits XPChallenge.
func (s *Service) Complete(userID int64, req models.CompleteChallengeRequest) (*models.CompleteChallengeResponse, error) {
	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		return nil, ErrInvalidScore
	}

	c, err := s.repo.GetByID(req.ChallengeID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddCompletion(c.ID, userID, req.Score); err != nil {
		return nil, err
	}

	xp, err := s.recorder.RecordSession(&models.PracticeSession{
		UserID:     userID,
		Type:       models.SessionChallenge,
		Transcript: strings.TrimSpace(req.Response),
		Analysis:   models.Analysis{Motivation: completedMotivation},
		XPEarned:   progress.XPChallenge,
	})
	if err != nil {
		if rmErr := s.repo.RemoveCompletion(c.ID, userID); rmErr != nil {
			s.log.Error("failed to roll back challenge completion", "challenge_id", c.ID, "user_id", userID, "error", rmErr)
		}
		return nil, fmt.Errorf("save challenge session: %w", err)
	}

	count, err := s.repo.CompletionCount(c.ID)
	if err != nil {
		return nil, err
	}

	return &models.CompleteChallengeResponse{
		Message:         "Challenge completed!",
		XPEarned:        xp.XPEarned,
		TotalXP:         xp.TotalXP,
		Level:           xp.Level,
		CompletionCount: count,
	}, nil
}

func (s *Service) Leaderboard() ([]models.LeaderboardEntry, error) {
	entries, err := s.repo.Leaderboard(leaderboardSize)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

func fallbackChallenge() models.Challenge {
	return models.Challenge{
		Sentence: "The quick brown fox jumps over the lazy dog.",
		VocabularyWord: models.VocabularyWord{
			Word:       "resilient",
			Definition: "able to recover quickly from difficulties",
			Example:    "She is a resilient person who never gives up.",
		},
		Conversation: models.ChallengeConversation{
			Scenario: "Casual Chat",
			Prompt:   "Talk about your favorite hobby.",
		},
		MotivationalQuote: "Practice makes perfect!",
	}
}

var challengeSchema = &llm.Schema{
	Name: "daily_challenge",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"sentence", "vocabularyWord"},
		"properties": map[string]any{
			"sentence": llm.NonEmptyString(),
			"vocabularyWord": map[string]any{
				"type":     "object",
				"required": []string{"word"},
				"properties": map[string]any{
					"word":       llm.NonEmptyString(),
					"definition": map[string]any{"type": "string"},
					"example":    map[string]any{"type": "string"},
				},
			},
			"conversation": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scenario": map[string]any{"type": "string"},
					"prompt":   map[string]any{"type": "string"},
				},
			},
			"motivationalQuote": map[string]any{"type": "string"},
		},
	},
}
