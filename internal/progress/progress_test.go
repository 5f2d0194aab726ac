package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/middleware"
	"github.com/speakup-coach/backend/internal/models"
)

type memRepo struct {
	mu       sync.Mutex
	now      time.Time
	nextID   int64
	sessions []models.PracticeSession
	progress map[int64]*models.Progress
	mistakes []models.Mistake
}

func newMemRepo(now time.Time) *memRepo {
	return &memRepo{now: now, progress: map[int64]*models.Progress{}}
}

func (m *memRepo) getOrCreate(userID int64) *models.Progress {
	p, ok := m.progress[userID]
	if !ok {
		p = &models.Progress{UserID: userID, Level: models.LevelBeginner}
		m.progress[userID] = p
	}
	return p
}

func (m *memRepo) RecordSession(sess *models.PracticeSession, apply func(*models.Progress)) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sess.ID = m.nextID
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = m.now
	}
	m.sessions = append(m.sessions, *sess)
	p := m.getOrCreate(sess.UserID)
	apply(p)
	cp := *p
	return &cp, nil
}

func (m *memRepo) GetSession(userID, sessionID int64) (*models.PracticeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			return &s, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (m *memRepo) filter(userID int64, keep func(models.PracticeSession) bool) []models.PracticeSession {
	var out []models.PracticeSession
	for _, s := range m.sessions {
		if s.UserID == userID && keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memRepo) SessionsSince(userID int64, since time.Time, scoredOnly bool) ([]models.PracticeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(userID, func(s models.PracticeSession) bool {
		return !s.CreatedAt.Before(since) && (s.Scored || !scoredOnly)
	}), nil
}

func (m *memRepo) RecentSessions(userID int64, limit int, scoredOnly bool) ([]models.PracticeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(userID, func(s models.PracticeSession) bool { return s.Scored || !scoredOnly })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) GetOrCreateProgress(userID int64) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.getOrCreate(userID)
	return &cp, nil
}

func (m *memRepo) SaveProgress(p *models.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.progress[p.UserID] = &cp
	return nil
}

func (m *memRepo) AddMistake(mk *models.Mistake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk.Frequency = 1
	m.mistakes = append(m.mistakes, *mk)
	return nil
}

func (m *memRepo) TopMistakes(userID int64, limit int) ([]models.Mistake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Mistake
	for _, mk := range m.mistakes {
		if mk.UserID == userID && len(out) < limit {
			out = append(out, mk)
		}
	}
	return out, nil
}

func scored(userID int64, pron, flu float64, at time.Time) *models.PracticeSession {
	return &models.PracticeSession{
		UserID:     userID,
		Type:       models.SessionPractice,
		Transcript: "hello",
		XPEarned:   XPAnalysis,
		Scored:     true,
		Analysis:   models.Analysis{Pronunciation: pron, Fluency: flu, GrammarScore: 60, VocabularyScore: 70},
		CreatedAt:  at,
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp   int
		want models.Level
	}{
		{0, models.LevelBeginner},
		{199, models.LevelBeginner},
		{200, models.LevelIntermediate},
		{499, models.LevelIntermediate},
		{500, models.LevelAdvanced},
		{999, models.LevelAdvanced},
		{1000, models.LevelExpert},
		{5000, models.LevelExpert},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.xp), "xp=%d", tt.xp)
	}
	assert.Equal(t, 200, NextLevelXP(0))
	assert.Equal(t, 1, NextLevelXP(999))
	assert.Equal(t, 0, NextLevelXP(1200))
}

func TestRecordSession_RunningAverages(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	svc := NewService(newMemRepo(now), logger.Nop())

	res, err := svc.RecordSession(scored(1, 80, 70, now))
	require.NoError(t, err)
	assert.Equal(t, 10, res.TotalXP)

	_, err = svc.RecordSession(scored(1, 60, 90, now))
	require.NoError(t, err)

	res, err = svc.RecordSession(&models.PracticeSession{
		UserID: 1, Type: models.SessionConversation, Transcript: "t", XPEarned: XPConversation,
	})
	require.NoError(t, err)
	assert.Equal(t, 35, res.TotalXP)
	assert.Equal(t, 15, res.XPEarned)

	p, err := svc.repo.GetOrCreateProgress(1)
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalSessions)
	assert.Equal(t, 2, p.ScoredSessions)
	assert.InDelta(t, 70, p.AveragePronunciation, 0.001)
	assert.InDelta(t, 80, p.AverageFluency, 0.001)
	assert.InDelta(t, 60, p.AverageGrammar, 0.001)
}

func TestRecordSession_LevelsUp(t *testing.T) {
	svc := NewService(newMemRepo(time.Now()), logger.Nop())
	var res *models.XPResult
	for i := 0; i < 20; i++ {
		var err error
		res, err = svc.RecordSession(scored(9, 50, 50, time.Now()))
		require.NoError(t, err)
	}
	assert.Equal(t, 200, res.TotalXP)
	assert.Equal(t, models.LevelIntermediate, res.Level)
}

func TestRecordSession_InvalidType(t *testing.T) {
	svc := NewService(newMemRepo(time.Now()), logger.Nop())
	_, err := svc.RecordSession(&models.PracticeSession{UserID: 1, Type: "karaoke"})
	assert.Error(t, err)
}

func TestWeeklyBuckets(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) // Wednesday
	sessions := []models.PracticeSession{
		{XPEarned: 10, CreatedAt: now},
		{XPEarned: 15, CreatedAt: now.Add(-time.Hour)},
		{XPEarned: 5, CreatedAt: now.AddDate(0, 0, -1)},
	}

	got := weeklyBuckets(sessions, now)
	assert.Len(t, got, 7)
	assert.Equal(t, models.DayStats{Sessions: 2, XP: 25}, got["Wednesday"])
	assert.Equal(t, models.DayStats{Sessions: 1, XP: 5}, got["Tuesday"])
	assert.Equal(t, models.DayStats{}, got["Thursday"])
}

func TestSkillBreakdown(t *testing.T) {
	assert.Equal(t, models.SkillBreakdown{}, skillBreakdown(nil))

	got := skillBreakdown([]models.PracticeSession{
		{Analysis: models.Analysis{Pronunciation: 80, Fluency: 71, GrammarScore: 60, VocabularyScore: 50}},
		{Analysis: models.Analysis{Pronunciation: 71, Fluency: 70, GrammarScore: 61, VocabularyScore: 50}},
	})
	assert.Equal(t, models.SkillBreakdown{Pronunciation: 76, Fluency: 71, Grammar: 61, Vocabulary: 50}, got)
}

func TestImprovementPercentage(t *testing.T) {
	assert.Zero(t, improvementPercentage(nil))
	trend := []models.TrendPoint{
		{Pronunciation: 60, Fluency: 60},
		{Pronunciation: 70, Fluency: 80},
	}
	assert.InDelta(t, 25.0, improvementPercentage(trend), 0.001)
}

func TestDashboard(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo(now)
	svc := NewService(repo, logger.Nop())
	svc.now = func() time.Time { return now }

	_, _ = svc.RecordSession(scored(1, 60, 60, now.AddDate(0, 0, -10)))
	for i := 0; i < 6; i++ {
		_, _ = svc.RecordSession(scored(1, 70, 80, now.Add(-time.Duration(i)*time.Hour)))
	}
	svc.RecordMistake(&models.Mistake{UserID: 1, Category: models.MistakeGrammar, OriginalText: "a", CorrectedText: "b", Explanation: "c"})

	d, err := svc.Dashboard(1)
	require.NoError(t, err)
	assert.Equal(t, 6, d.WeeklyStats.SessionsThisWeek)
	assert.Equal(t, 60, d.WeeklyStats.XPGained)
	assert.Len(t, d.RecentSessions, 5)
	assert.Len(t, d.ImprovementTrend, 7)
	assert.True(t, d.ImprovementTrend[0].Date.Before(d.ImprovementTrend[6].Date))
	assert.InDelta(t, 25.0, d.Progress.ImprovementPercentage, 0.001)
	assert.Len(t, d.TopMistakes, 1)
}

func TestRecalculate(t *testing.T) {
	now := time.Now()
	repo := newMemRepo(now)
	svc := NewService(repo, logger.Nop())

	first, _ := svc.RecordSession(scored(1, 81, 70, now))
	require.NotNil(t, first)
	_, _ = svc.RecordSession(scored(1, 70, 70, now))
	_, _ = svc.RecordSession(&models.PracticeSession{UserID: 1, Type: models.SessionChallenge, Transcript: "x", XPEarned: 5})

	// corrupt the stored row, recalculation must rebuild it
	repo.progress[1].TotalXP = 9999

	p, err := svc.Recalculate(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, p.TotalXP)
	assert.Equal(t, 3, p.TotalSessions)
	assert.Equal(t, float64(76), p.AveragePronunciation)
	assert.Equal(t, models.LevelBeginner, p.Level)

	_, err = svc.Recalculate(2, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandler_UpdateNotFound(t *testing.T) {
	h := NewHandler(NewService(newMemRepo(time.Now()), logger.Nop()))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sessionId":42}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Skills(t *testing.T) {
	svc := NewService(newMemRepo(time.Now()), logger.Nop())
	_, _ = svc.RecordSession(scored(3, 90, 80, time.Now()))
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 3))
	rec := httptest.NewRecorder()
	h.Skills(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.SkillBreakdown
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, models.SkillBreakdown{Pronunciation: 90, Fluency: 80, Grammar: 60, Vocabulary: 70}, got)
}
