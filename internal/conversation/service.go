package conversation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/models"
	"github.com/speakup-coach/backend/internal/progress"
)

var (
	ErrUnavailable  = errors.New("conversation: generator unavailable")
	ErrEmptyMessage = errors.New("conversation: message is required")
)

const (
	fallbackScore    = 75
	fallbackFeedback = "Good response!"
	savedMotivation  = "Great conversation practice!"
)

// Recorder persists finished conversations. *progress.Service implements it.
type Recorder interface {
	RecordSession(sess *models.PracticeSession) (*models.XPResult, error)
}

type Service struct {
	llm      llm.Client
	store    Store
	recorder Recorder
	log      *logger.Logger
	timeout  time.Duration
	now      func() time.Time

	// serializes turns of the same user on this instance
	locks sync.Map // map[int64]*sync.Mutex
}

func NewService(client llm.Client, store Store, recorder Recorder, log *logger.Logger, timeout time.Duration) *Service {
	return &Service{llm: client, store: store, recorder: recorder, log: log, timeout: timeout, now: time.Now}
}

type Reply struct {
	AIMessage string `json:"aiMessage"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`
}

type EndResult struct {
	Message  string       `json:"message"`
	XPEarned int          `json:"xpEarned"`
	TotalXP  int          `json:"totalXP"`
	Level    models.Level `json:"level"`
}

func (s *Service) lock(userID int64) func() {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Start opens a new conversation for the user, replacing any active one,
// and returns it with the partner's opening line as the first message.
func (s *Service) Start(ctx context.Context, userID int64, scenario string) (*Session, error) {
	defer s.lock(userID)()

	scenario = strings.TrimSpace(scenario)
	system := SystemPromptFor(scenario)
	label := scenario
	if label == "" {
		label = "casual"
	}

	opening, err := s.call(ctx, llm.UserPrompt(system+openingInstruction, fmt.Sprintf("Start a %s conversation.", label), 0.8, 200))
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Scenario:     scenario,
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: llm.RoleAssistant, Content: opening}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	s.log.Info("conversation started", "user_id", userID, "conversation_id", sess.ID, "scenario", scenario)
	return sess, nil
}

// Message sends one user turn. The partner's reply and the turn's score are
// requested concurrently; a failed or unparseable score falls back to a
// neutral one, a failed reply fails the turn and leaves history unchanged.
func (s *Service) Message(ctx context.Context, userID int64, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	defer s.lock(userID)()

	sess, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess.Messages = append(sess.Messages, llm.Message{Role: llm.RoleUser, Content: text})
	history := append([]llm.Message(nil), sess.Messages...)

	var (
		reply    string
		score    = fallbackScore
		feedback = fallbackFeedback
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		reply, err = s.call(gctx, llm.Request{
			System:      sess.SystemPrompt,
			Messages:    history,
			Temperature: 0.8,
			MaxTokens:   300,
		})
		return err
	})
	g.Go(func() error {
		score, feedback = s.score(gctx, text)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sess.Messages = append(sess.Messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		if errors.Is(err, ErrNoActiveConversation) {
			return nil, err
		}
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	return &Reply{AIMessage: reply, Score: score, Feedback: feedback}, nil
}

// End saves the transcript as a conversation session worth XPConversation
// and closes the conversation.
func (s *Service) End(ctx context.Context, userID int64) (*EndResult, error) {
	defer s.lock(userID)()

	sess, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	xp, err := s.recorder.RecordSession(&models.PracticeSession{
		UserID:     userID,
		Type:       models.SessionConversation,
		Transcript: Transcript(sess.Messages),
		Analysis:   models.Analysis{Motivation: savedMotivation},
		XPEarned:   progress.XPConversation,
		Scenario:   sess.Scenario,
	})
	if err != nil {
		return nil, fmt.Errorf("save conversation session: %w", err)
	}

	if err := s.store.Delete(ctx, userID); err != nil {
		s.log.Error("failed to drop ended conversation", "user_id", userID, "conversation_id", sess.ID, "error", err)
	}

	s.log.Info("conversation ended", "user_id", userID, "conversation_id", sess.ID, "turns", len(sess.Messages))
	return &EndResult{
		Message:  "Conversation saved successfully",
		XPEarned: xp.XPEarned,
		TotalXP:  xp.TotalXP,
		Level:    xp.Level,
	}, nil
}

// Transcript renders messages as "role: content" blocks separated by a
// blank line.
func Transcript(messages []llm.Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

var scoreSchema = &llm.Schema{
	Name: "conversation_score",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"score", "feedback"},
		"properties": map[string]any{
			"score":    map[string]any{"type": "number", "minimum": 0, "maximum": 100},
			"feedback": llm.NonEmptyString(),
		},
	},
}

func (s *Service) score(ctx context.Context, text string) (int, string) {
	content, err := s.call(ctx, llm.UserPrompt(scoreSystemPrompt, text, 0.7, 150))
	if err != nil {
		s.log.Warn("turn scoring failed, using fallback", "error", err)
		return fallbackScore, fallbackFeedback
	}

	var out struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := llm.DecodeJSON(content, scoreSchema, &out); err != nil {
		s.log.Warn("turn score unparseable, using fallback", "error", err)
		return fallbackScore, fallbackFeedback
	}
	return int(math.Round(out.Score)), out.Feedback
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
