package models

import "time"

type VocabularyWord struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

type ChallengeConversation struct {
	Scenario string `json:"scenario"`
	Prompt   string `json:"prompt"`
}

// Challenge is the shared challenge for one UTC day.
type Challenge struct {
	ID                int64                 `json:"id"`
	Date              time.Time             `json:"date"`
	Sentence          string                `json:"sentence"`
	VocabularyWord    VocabularyWord        `json:"vocabularyWord"`
	Conversation      ChallengeConversation `json:"conversation"`
	MotivationalQuote string                `json:"motivationalQuote"`
	CreatedAt         time.Time             `json:"createdAt"`
}

type DailyChallengeResponse struct {
	Challenge       *Challenge `json:"challenge"`
	Completed       bool       `json:"completed"`
	CompletionCount int        `json:"completionCount"`
}

type CompleteChallengeRequest struct {
	ChallengeID int64  `json:"challengeId"`
	Response    string `json:"response"`
	Score       *int   `json:"score"`
}

type CompleteChallengeResponse struct {
	Message         string `json:"message"`
	XPEarned        int    `json:"xpEarned"`
	TotalXP         int    `json:"totalXP"`
	Level           Level  `json:"level"`
	CompletionCount int    `json:"completionCount"`
}
