package gamification

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/speakup-coach/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Activity ────────────────────────────────────────────

// SessionCounts returns the user's saved sessions per type.
func (s *Store) SessionCounts(userID int64) (map[models.SessionType]int, error) {
	rows, err := s.db.Query(
		`SELECT type, COUNT(*) FROM practice_sessions WHERE user_id = $1 GROUP BY type`, userID)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SessionType]int)
	for rows.Next() {
		var t models.SessionType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// ActiveDays returns every UTC day on which the user saved a session.
func (s *Store) ActiveDays(userID int64) ([]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT (created_at AT TIME ZONE 'UTC')::date AS day
		 FROM practice_sessions WHERE user_id = $1
		 ORDER BY day DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get active days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) TotalXP(userID int64) (int, error) {
	var xp int
	if err := s.db.QueryRow(`SELECT total_xp FROM users WHERE id = $1`, userID).Scan(&xp); err != nil {
		return 0, fmt.Errorf("get total xp: %w", err)
	}
	return xp, nil
}

// ── Achievements ────────────────────────────────────────

// EarnedAchievements maps achievement keys to when they were earned.
func (s *Store) EarnedAchievements(userID int64) (map[string]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT achievement, earned_at FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get achievements: %w", err)
	}
	defer rows.Close()

	earned := make(map[string]time.Time)
	for rows.Next() {
		var key string
		var at time.Time
		if err := rows.Scan(&key, &at); err != nil {
			return nil, err
		}
		earned[key] = at
	}
	return earned, rows.Err()
}

func (s *Store) AwardAchievement(userID int64, achievement string) error {
	_, err := s.db.Exec(
		`INSERT INTO user_achievements (user_id, achievement) VALUES ($1, $2)
		 ON CONFLICT (user_id, achievement) DO NOTHING`,
		userID, achievement,
	)
	return err
}
