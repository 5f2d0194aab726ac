package gamification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/middleware"
	"github.com/speakup-coach/backend/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStreaks(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name             string
		days             []string
		current, longest int
	}{
		{"no activity", nil, 0, 0},
		{"today only", []string{"2026-03-10"}, 1, 1},
		{"through yesterday", []string{"2026-03-09", "2026-03-08", "2026-03-07"}, 3, 3},
		{"broken", []string{"2026-03-07", "2026-03-06"}, 0, 2},
		{"longest in the past", []string{"2026-03-10", "2026-03-01", "2026-02-28", "2026-02-27", "2026-02-26"}, 1, 4},
		{"duplicates and order", []string{"2026-03-09", "2026-03-10", "2026-03-10", "2026-03-08"}, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var days []time.Time
			for _, d := range tt.days {
				days = append(days, day(d))
			}
			current, longest := Streaks(days, now)
			assert.Equal(t, tt.current, current)
			assert.Equal(t, tt.longest, longest)
		})
	}
}

func TestStreaks_UsesUTCDays(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 01:00 IST on the 11th is still the 10th in UTC
	now := time.Date(2026, 3, 11, 1, 0, 0, 0, ist)
	current, _ := Streaks([]time.Time{day("2026-03-09")}, now)
	assert.Equal(t, 1, current)
}

func TestCheckAchievements(t *testing.T) {
	assert.Empty(t, CheckAchievements(Stats{}))

	got := CheckAchievements(Stats{
		Sessions:      map[models.SessionType]int{models.SessionPractice: 9, models.SessionConversation: 1, models.SessionChallenge: 2},
		TotalSessions: 12,
		TotalXP:       520,
		CurrentStreak: 7,
	})
	assert.ElementsMatch(t, []string{
		"first_session", "sessions_10", "conversation_1", "challenge_1",
		"streak_3", "streak_7", "xp_200", "xp_500",
	}, got)
}

func TestAchievementKeysUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range Achievements {
		assert.False(t, seen[a.Key], "duplicate key %s", a.Key)
		seen[a.Key] = true
		assert.NotEmpty(t, a.Name)
		assert.LessOrEqual(t, len(a.Key), 40)
	}
}

type memRepo struct {
	counts  map[models.SessionType]int
	days    []time.Time
	xp      int
	earned  map[string]time.Time
	awarded []string
}

func (m *memRepo) SessionCounts(int64) (map[models.SessionType]int, error) { return m.counts, nil }
func (m *memRepo) ActiveDays(int64) ([]time.Time, error)                   { return m.days, nil }
func (m *memRepo) TotalXP(int64) (int, error)                              { return m.xp, nil }

func (m *memRepo) EarnedAchievements(int64) (map[string]time.Time, error) {
	cp := make(map[string]time.Time, len(m.earned))
	for k, v := range m.earned {
		cp[k] = v
	}
	return cp, nil
}

func (m *memRepo) AwardAchievement(_ int64, key string) error {
	m.awarded = append(m.awarded, key)
	m.earned[key] = time.Now()
	return nil
}

func TestService_Achievements(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)
	repo := &memRepo{
		counts: map[models.SessionType]int{models.SessionPractice: 2, models.SessionConversation: 1},
		days:   []time.Time{day("2026-03-10"), day("2026-03-09"), day("2026-03-08")},
		xp:     45,
		earned: map[string]time.Time{"first_session": earlier},
	}
	svc := NewService(repo, logger.Nop())
	svc.now = func() time.Time { return now }

	resp, err := svc.Achievements(1)
	require.NoError(t, err)
	assert.Equal(t, models.StreakInfo{Current: 3, Longest: 3}, resp.Streak)
	assert.ElementsMatch(t, []string{"conversation_1", "streak_3"}, resp.Unlocked)
	assert.ElementsMatch(t, resp.Unlocked, repo.awarded)
	require.Len(t, resp.Achievements, len(Achievements))

	byKey := map[string]models.Achievement{}
	for _, a := range resp.Achievements {
		byKey[a.Key] = a
	}
	assert.True(t, byKey["first_session"].Earned)
	assert.Equal(t, earlier, *byKey["first_session"].EarnedAt)
	assert.True(t, byKey["streak_3"].Earned)
	assert.False(t, byKey["xp_200"].Earned)
	assert.Nil(t, byKey["xp_200"].EarnedAt)

	// a second look awards nothing new
	again, err := svc.Achievements(1)
	require.NoError(t, err)
	assert.Empty(t, again.Unlocked)
	assert.Len(t, repo.awarded, 2)
}

func TestHandler_GetAchievements(t *testing.T) {
	repo := &memRepo{counts: map[models.SessionType]int{}, earned: map[string]time.Time{}}
	h := NewHandler(NewService(repo, logger.Nop()))

	w := httptest.NewRecorder()
	h.GetAchievements(w, httptest.NewRequest(http.MethodGet, "/api/progress/achievements", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/progress/achievements", nil)
	w = httptest.NewRecorder()
	h.GetAchievements(w, req.WithContext(middleware.WithUserID(req.Context(), 5)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AchievementsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Zero(t, resp.Streak.Current)
	assert.NotNil(t, resp.Unlocked)
	assert.Len(t, resp.Achievements, len(Achievements))
}
