package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/middleware"
	"github.com/speakup-coach/backend/internal/models"
)

type completionKey struct{ challengeID, userID int64 }

type memRepo struct {
	mu          sync.Mutex
	nextID      int64
	byDate      map[string]*models.Challenge
	completions map[completionKey]*int
	users       []models.LeaderboardEntry
	creates     int
}

func newMemRepo() *memRepo {
	return &memRepo{byDate: map[string]*models.Challenge{}, completions: map[completionKey]*int{}}
}

func (m *memRepo) GetByDate(date time.Time) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byDate[date.Format(time.DateOnly)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memRepo) GetByID(id int64) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byDate {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) CreateIfAbsent(c *models.Challenge) (*models.Challenge, error) {
	m.mu.Lock()
	key := c.Date.Format(time.DateOnly)
	if _, ok := m.byDate[key]; !ok {
		m.nextID++
		m.creates++
		cp := *c
		cp.ID = m.nextID
		m.byDate[key] = &cp
	}
	m.mu.Unlock()
	return m.GetByDate(c.Date)
}

func (m *memRepo) AddCompletion(challengeID, userID int64, score *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := completionKey{challengeID, userID}
	if _, ok := m.completions[k]; ok {
		return ErrAlreadyCompleted
	}
	m.completions[k] = score
	return nil
}

func (m *memRepo) RemoveCompletion(challengeID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.completions, completionKey{challengeID, userID})
	return nil
}

func (m *memRepo) HasCompleted(challengeID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.completions[completionKey{challengeID, userID}]
	return ok, nil
}

func (m *memRepo) CompletionCount(challengeID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.completions {
		if k.challengeID == challengeID {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	if len(m.users) > limit {
		return m.users[:limit], nil
	}
	return m.users, nil
}

type fakeRecorder struct {
	sessions []models.PracticeSession
	err      error
}

func (f *fakeRecorder) RecordSession(sess *models.PracticeSession) (*models.XPResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sessions = append(f.sessions, *sess)
	return &models.XPResult{XPEarned: sess.XPEarned, TotalXP: 205, Level: models.LevelIntermediate}, nil
}

var fixedNow = time.Date(2026, 3, 4, 22, 30, 0, 0, time.FixedZone("EST", -5*3600))

func newTestService(repo *memRepo, client llm.Client, rec *fakeRecorder) *Service {
	svc := NewService(repo, client, rec, logger.Nop(), 0)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

const generated = `{"sentence":"She sells seashells by the seashore.",
"vocabularyWord":{"word":"eloquent","definition":"fluent and persuasive","example":"He gave an eloquent speech."},
"conversation":{"scenario":"Book Club","prompt":"Describe the last book you read."},
"motivationalQuote":"Every word counts."}`

func TestDaily_GeneratesOncePerDay(t *testing.T) {
	repo := newMemRepo()
	mock := llm.NewMockClient(llm.MockResponse{Content: generated})
	svc := newTestService(repo, mock, &fakeRecorder{})

	resp, err := svc.Daily(context.Background(), 1)
	require.NoError(t, err)
	c := resp.Challenge
	assert.Equal(t, "She sells seashells by the seashore.", c.Sentence)
	assert.Equal(t, "eloquent", c.VocabularyWord.Word)
	assert.Equal(t, "Book Club", c.Conversation.Scenario)
	// 22:30 EST is already the next day in UTC
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), c.Date)
	assert.False(t, resp.Completed)
	assert.Zero(t, resp.CompletionCount)

	call := mock.LastCall()
	assert.Equal(t, 0.9, call.Temperature)
	assert.Equal(t, 400, call.MaxTokens)

	again, err := svc.Daily(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.Challenge.ID)
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, 1, repo.creates)
}

func TestDaily_Fallback(t *testing.T) {
	for name, content := range map[string]string{
		"prose":        "Here's a fun challenge for today!",
		"missing word": `{"sentence":"Hi.","vocabularyWord":{"definition":"x"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(newMemRepo(), llm.NewMockClient(llm.MockResponse{Content: content}), &fakeRecorder{})

			resp, err := svc.Daily(context.Background(), 1)
			require.NoError(t, err)
			c := resp.Challenge
			assert.Equal(t, "The quick brown fox jumps over the lazy dog.", c.Sentence)
			assert.Equal(t, "resilient", c.VocabularyWord.Word)
			assert.Equal(t, "Casual Chat", c.Conversation.Scenario)
			assert.Equal(t, "Talk about your favorite hobby.", c.Conversation.Prompt)
			assert.Equal(t, "Practice makes perfect!", c.MotivationalQuote)
		})
	}
}

func TestDaily_GeneratorDownStoresNothing(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, llm.NewMockClient(llm.MockResponse{Err: errors.New("502")}), &fakeRecorder{})

	_, err := svc.Daily(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, repo.byDate)
}

func TestComplete(t *testing.T) {
	repo := newMemRepo()
	rec := &fakeRecorder{}
	svc := newTestService(repo, llm.NewMockClient(llm.MockResponse{Content: generated}), rec)

	daily, err := svc.Daily(context.Background(), 1)
	require.NoError(t, err)
	id := daily.Challenge.ID

	score := 92
	resp, err := svc.Complete(1, models.CompleteChallengeRequest{ChallengeID: id, Response: " I read a mystery novel. ", Score: &score})
	require.NoError(t, err)
	assert.Equal(t, "Challenge completed!", resp.Message)
	assert.Equal(t, 5, resp.XPEarned)
	assert.Equal(t, 205, resp.TotalXP)
	assert.Equal(t, models.LevelIntermediate, resp.Level)
	assert.Equal(t, 1, resp.CompletionCount)

	require.Len(t, rec.sessions, 1)
	assert.Equal(t, models.SessionChallenge, rec.sessions[0].Type)
	assert.Equal(t, "I read a mystery novel.", rec.sessions[0].Transcript)
	assert.Equal(t, "Daily challenge completed!", rec.sessions[0].Analysis.Motivation)

	_, err = svc.Complete(1, models.CompleteChallengeRequest{ChallengeID: id})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Len(t, rec.sessions, 1)

	after, err := svc.Daily(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, after.Completed)
	assert.Equal(t, 1, after.CompletionCount)
}

func TestComplete_Errors(t *testing.T) {
	repo := newMemRepo()
	rec := &fakeRecorder{}
	svc := newTestService(repo, llm.NewMockClient(llm.MockResponse{Content: generated}), rec)

	_, err := svc.Complete(1, models.CompleteChallengeRequest{ChallengeID: 99})
	assert.ErrorIs(t, err, ErrNotFound)

	bad := 101
	_, err = svc.Complete(1, models.CompleteChallengeRequest{ChallengeID: 1, Score: &bad})
	assert.ErrorIs(t, err, ErrInvalidScore)

	daily, err := svc.Daily(context.Background(), 1)
	require.NoError(t, err)

	rec.err = errors.New("db down")
	_, err = svc.Complete(1, models.CompleteChallengeRequest{ChallengeID: daily.Challenge.ID})
	require.Error(t, err)
	done, _ := repo.HasCompleted(daily.Challenge.ID, 1)
	assert.False(t, done, "failed completion is rolled back")
}

func withUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func TestHandlers(t *testing.T) {
	repo := newMemRepo()
	repo.users = []models.LeaderboardEntry{{ID: 2, Name: "Asha", TotalXP: 640, Level: models.LevelAdvanced}}
	h := NewHandler(newTestService(repo, llm.NewMockClient(llm.MockResponse{Content: generated}), &fakeRecorder{}), logger.Nop())

	w := httptest.NewRecorder()
	h.Daily(w, withUser(httptest.NewRequest(http.MethodGet, "/api/challenge/daily", nil), 1))
	require.Equal(t, http.StatusOK, w.Code)
	var daily models.DailyChallengeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&daily))
	require.NotNil(t, daily.Challenge)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing id", `{}`, http.StatusBadRequest},
		{"unknown", `{"challengeId":42}`, http.StatusNotFound},
		{"ok", `{"challengeId":1,"response":"done"}`, http.StatusOK},
		{"again", `{"challengeId":1,"response":"done"}`, http.StatusBadRequest},
		{"bad score", `{"challengeId":1,"score":-3}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Complete(w, withUser(httptest.NewRequest(http.MethodPost, "/api/challenge/complete", strings.NewReader(tt.body)), 1))
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w = httptest.NewRecorder()
	h.Leaderboard(w, httptest.NewRequest(http.MethodGet, "/api/challenge/leaderboard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var board []models.LeaderboardEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&board))
	require.Len(t, board, 1)
	assert.Equal(t, "Asha", board[0].Name)

	w = httptest.NewRecorder()
	h.Daily(w, httptest.NewRequest(http.MethodGet, "/api/challenge/daily", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
