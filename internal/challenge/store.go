package challenge

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/speakup-coach/backend/internal/models"
)

var (
	ErrNotFound         = errors.New("challenge not found")
	ErrAlreadyCompleted = errors.New("challenge already completed")
)

const challengeColumns = `id, challenge_date, sentence, vocabulary_word, vocabulary_definition, vocabulary_example,
	conversation_scenario, conversation_prompt, motivational_quote, created_at`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetByDate(date time.Time) (*models.Challenge, error) {
	return s.getOne(`SELECT `+challengeColumns+` FROM challenges WHERE challenge_date = $1`, date.Format(time.DateOnly))
}

func (s *Store) GetByID(id int64) (*models.Challenge, error) {
	return s.getOne(`SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
}

// CreateIfAbsent inserts c unless its day already has a challenge, and
// returns whichever challenge the day ends up with.
func (s *Store) CreateIfAbsent(c *models.Challenge) (*models.Challenge, error) {
	_, err := s.db.Exec(
		`INSERT INTO challenges (challenge_date, sentence, vocabulary_word, vocabulary_definition, vocabulary_example,
			conversation_scenario, conversation_prompt, motivational_quote)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (challenge_date) DO NOTHING`,
		c.Date.Format(time.DateOnly), c.Sentence,
		c.VocabularyWord.Word, c.VocabularyWord.Definition, c.VocabularyWord.Example,
		c.Conversation.Scenario, c.Conversation.Prompt, c.MotivationalQuote,
	)
	if err != nil {
		return nil, fmt.Errorf("insert challenge: %w", err)
	}
	return s.GetByDate(c.Date)
}

func (s *Store) AddCompletion(challengeID, userID int64, score *int) error {
	_, err := s.db.Exec(
		`INSERT INTO challenge_completions (challenge_id, user_id, score) VALUES ($1, $2, $3)`,
		challengeID, userID, score,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyCompleted
		}
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (s *Store) RemoveCompletion(challengeID, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM challenge_completions WHERE challenge_id = $1 AND user_id = $2`, challengeID, userID)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func (s *Store) HasCompleted(challengeID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM challenge_completions WHERE challenge_id = $1 AND user_id = $2)`,
		challengeID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completion: %w", err)
	}
	return exists, nil
}

func (s *Store) CompletionCount(challengeID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM challenge_completions WHERE challenge_id = $1`, challengeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

// Leaderboard returns the users with the most XP, ties broken by signup.
func (s *Store) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, name, total_xp, level, avatar FROM users ORDER BY total_xp DESC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.TotalXP, &e.Level, &e.Avatar); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) getOne(query string, arg any) (*models.Challenge, error) {
	var c models.Challenge
	err := s.db.QueryRow(query, arg).Scan(
		&c.ID, &c.Date, &c.Sentence,
		&c.VocabularyWord.Word, &c.VocabularyWord.Definition, &c.VocabularyWord.Example,
		&c.Conversation.Scenario, &c.Conversation.Prompt, &c.MotivationalQuote, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query challenge: %w", err)
	}
	return &c, nil
}
