package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/speakup-coach/backend/internal/models"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

const userColumns = `id, email, name, password, avatar, language, total_xp, level, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts u and fills in its ID and timestamps.
func (s *Store) Create(u *models.User) error {
	now := time.Now()
	err := s.db.QueryRow(
		`INSERT INTO users (email, name, password, avatar, language, total_xp, level, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.Password, u.Avatar, u.Language, u.TotalXP, u.Level, now,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetByEmail(email string) (*models.User, error) {
	return s.scanOne(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *Store) GetByID(id int64) (*models.User, error) {
	return s.scanOne(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// Update writes the mutable profile fields of u.
func (s *Store) Update(u *models.User) error {
	err := s.db.QueryRow(
		`UPDATE users SET name = $2, avatar = $3, language = $4, password = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		u.ID, u.Name, u.Avatar, u.Language, u.Password,
	).Scan(&u.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

func (s *Store) scanOne(query string, arg interface{}) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.Password, &u.Avatar, &u.Language,
		&u.TotalXP, &u.Level, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
