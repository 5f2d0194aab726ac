package progress

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/speakup-coach/backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, user_id, type, transcript, analysis, xp_earned, scored, topic, scenario, created_at`

const progressColumns = `user_id, total_sessions, scored_sessions, average_pronunciation, average_fluency,
	average_grammar, average_vocabulary, total_xp, level, improvement_percentage, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Sessions + progress (single transaction) ────────────

// RecordSession inserts sess, then applies apply to the user's locked
// progress row and mirrors the XP totals onto the user.
func (s *Store) RecordSession(sess *models.PracticeSession, apply func(*models.Progress)) (*models.Progress, error) {
	analysis, err := json.Marshal(sess.Analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRow(
		`INSERT INTO practice_sessions (user_id, type, transcript, analysis, xp_earned, scored, topic, scenario)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		sess.UserID, sess.Type, sess.Transcript, analysis, sess.XPEarned, sess.Scored, sess.Topic, sess.Scenario,
	).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO progress (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, sess.UserID,
	); err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}

	p, err := scanProgress(tx.QueryRow(
		`SELECT `+progressColumns+` FROM progress WHERE user_id = $1 FOR UPDATE`, sess.UserID))
	if err != nil {
		return nil, fmt.Errorf("lock progress: %w", err)
	}

	apply(p)

	if err := saveProgress(tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *Store) GetSession(userID, sessionID int64) (*models.PracticeSession, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM practice_sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	return &sessions[0], nil
}

// SessionsSince returns the user's sessions created at or after since,
// newest first. With scoredOnly set, unscored sessions are skipped.
func (s *Store) SessionsSince(userID int64, since time.Time, scoredOnly bool) ([]models.PracticeSession, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM practice_sessions
		 WHERE user_id = $1 AND created_at >= $2 AND (scored OR NOT $3)
		 ORDER BY created_at DESC`,
		userID, since, scoredOnly)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return scanSessions(rows)
}

// RecentSessions returns up to limit sessions, newest first. A limit of 0
// returns every session.
func (s *Store) RecentSessions(userID int64, limit int, scoredOnly bool) ([]models.PracticeSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM practice_sessions
		 WHERE user_id = $1 AND (scored OR NOT $2)
		 ORDER BY created_at DESC`
	args := []interface{}{userID, scoredOnly}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]models.PracticeSession, error) {
	defer rows.Close()

	var out []models.PracticeSession
	for rows.Next() {
		var sess models.PracticeSession
		var analysis []byte
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Type, &sess.Transcript, &analysis,
			&sess.XPEarned, &sess.Scored, &sess.Topic, &sess.Scenario, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if len(analysis) > 0 {
			if err := json.Unmarshal(analysis, &sess.Analysis); err != nil {
				return nil, fmt.Errorf("decode analysis for session %d: %w", sess.ID, err)
			}
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ── Progress ────────────────────────────────────────────

func (s *Store) GetOrCreateProgress(userID int64) (*models.Progress, error) {
	if _, err := s.db.Exec(
		`INSERT INTO progress (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID,
	); err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	p, err := scanProgress(s.db.QueryRow(`SELECT `+progressColumns+` FROM progress WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

func (s *Store) SaveProgress(p *models.Progress) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveProgress(tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func saveProgress(tx *sql.Tx, p *models.Progress) error {
	err := tx.QueryRow(
		`UPDATE progress SET
		    total_sessions = $2, scored_sessions = $3,
		    average_pronunciation = $4, average_fluency = $5,
		    average_grammar = $6, average_vocabulary = $7,
		    total_xp = $8, level = $9, improvement_percentage = $10,
		    updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING updated_at`,
		p.UserID, p.TotalSessions, p.ScoredSessions,
		p.AveragePronunciation, p.AverageFluency, p.AverageGrammar, p.AverageVocabulary,
		p.TotalXP, p.Level, p.ImprovementPercentage,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE users SET total_xp = $2, level = $3, updated_at = NOW() WHERE id = $1`,
		p.UserID, p.TotalXP, p.Level,
	); err != nil {
		return fmt.Errorf("sync user xp: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (*models.Progress, error) {
	var p models.Progress
	err := row.Scan(&p.UserID, &p.TotalSessions, &p.ScoredSessions,
		&p.AveragePronunciation, &p.AverageFluency, &p.AverageGrammar, &p.AverageVocabulary,
		&p.TotalXP, &p.Level, &p.ImprovementPercentage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ── Mistakes ────────────────────────────────────────────

// AddMistake bumps the frequency of an identical earlier mistake, or
// records a new one.
func (s *Store) AddMistake(m *models.Mistake) error {
	res, err := s.db.Exec(
		`UPDATE mistakes SET frequency = frequency + 1, session_id = COALESCE($5, session_id)
		 WHERE user_id = $1 AND category = $2 AND original_text = $3 AND explanation = $4`,
		m.UserID, m.Category, m.OriginalText, m.Explanation, m.SessionID)
	if err != nil {
		return fmt.Errorf("bump mistake: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	err = s.db.QueryRow(
		`INSERT INTO mistakes (user_id, category, original_text, corrected_text, explanation, session_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, frequency, created_at`,
		m.UserID, m.Category, m.OriginalText, m.CorrectedText, m.Explanation, m.SessionID,
	).Scan(&m.ID, &m.Frequency, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert mistake: %w", err)
	}
	return nil
}

func (s *Store) TopMistakes(userID int64, limit int) ([]models.Mistake, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, category, original_text, corrected_text, explanation, frequency, session_id, created_at
		 FROM mistakes WHERE user_id = $1
		 ORDER BY frequency DESC, created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	defer rows.Close()

	var out []models.Mistake
	for rows.Next() {
		var m models.Mistake
		if err := rows.Scan(&m.ID, &m.UserID, &m.Category, &m.OriginalText, &m.CorrectedText,
			&m.Explanation, &m.Frequency, &m.SessionID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mistake: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
