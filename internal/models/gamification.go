package models

import "time"

// Achievement is one milestone and, once reached, when the user earned it.
type Achievement struct {
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earnedAt,omitempty"`
}

type StreakInfo struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

type AchievementsResponse struct {
	Streak       StreakInfo    `json:"streak"`
	Achievements []Achievement `json:"achievements"`
	Unlocked     []string      `json:"unlocked"`
}
