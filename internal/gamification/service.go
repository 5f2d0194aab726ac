package gamification

import (
	"fmt"
	"time"

	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/models"
)

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	SessionCounts(userID int64) (map[models.SessionType]int, error)
	ActiveDays(userID int64) ([]time.Time, error)
	TotalXP(userID int64) (int, error)
	EarnedAchievements(userID int64) (map[string]time.Time, error)
	AwardAchievement(userID int64, achievement string) error
}

type Service struct {
	store Repository
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Repository, log *logger.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// Achievements reports the user's streak and every achievement, awarding
// any newly reached ones first.
func (s *Service) Achievements(userID int64) (*models.AchievementsResponse, error) {
	now := s.now()

	counts, err := s.store.SessionCounts(userID)
	if err != nil {
		return nil, err
	}
	days, err := s.store.ActiveDays(userID)
	if err != nil {
		return nil, err
	}
	totalXP, err := s.store.TotalXP(userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.store.EarnedAchievements(userID)
	if err != nil {
		return nil, err
	}

	current, longest := Streaks(days, now)
	stats := Stats{Sessions: counts, TotalXP: totalXP, CurrentStreak: current}
	for _, n := range counts {
		stats.TotalSessions += n
	}

	unlocked := []string{}
	for _, key := range CheckAchievements(stats) {
		if _, ok := earned[key]; ok {
			continue
		}
		if err := s.store.AwardAchievement(userID, key); err != nil {
			return nil, fmt.Errorf("award %s: %w", key, err)
		}
		earned[key] = now
		unlocked = append(unlocked, key)
	}
	if len(unlocked) > 0 {
		s.log.Info("achievements unlocked", "user_id", userID, "keys", unlocked)
	}

	list := make([]models.Achievement, len(Achievements))
	for i, def := range Achievements {
		list[i] = models.Achievement{Key: def.Key, Name: def.Name, Description: def.Description}
		if at, ok := earned[def.Key]; ok {
			list[i].Earned = true
			list[i].EarnedAt = &at
		}
	}

	return &models.AchievementsResponse{
		Streak:       models.StreakInfo{Current: current, Longest: longest},
		Achievements: list,
		Unlocked:     unlocked,
	}, nil
}
