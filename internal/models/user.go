package models

import (
	"net/url"
	"strings"
	"time"
)

type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelExpert       Level = "Expert"
)

// Interface languages the frontend ships translations for.
var SupportedLanguages = map[string]bool{"en": true, "hi": true, "ta": true, "ka": true}

const DefaultLanguage = "en"

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	Avatar    string    `json:"avatar"`
	Language  string    `json:"language"`
	TotalXP   int       `json:"totalXP"`
	Level     Level     `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultAvatar builds a generated avatar URL from the user's name.
func DefaultAvatar(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		n = "User"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(n) + "&background=random"
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Language string `json:"language"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries optional profile changes. Nil fields are
// left untouched.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Language *string `json:"language"`
	Password *string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type LeaderboardEntry struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	TotalXP int    `json:"totalXP"`
	Level   Level  `json:"level"`
	Avatar  string `json:"avatar"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
