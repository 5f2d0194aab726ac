package models

import "time"

type SessionType string

const (
	SessionPractice     SessionType = "practice"
	SessionGame         SessionType = "game"
	SessionLesson       SessionType = "lesson"
	SessionConversation SessionType = "conversation"
	SessionChallenge    SessionType = "challenge"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionPractice, SessionGame, SessionLesson, SessionConversation, SessionChallenge:
		return true
	}
	return false
}

// PracticeSession is one saved piece of practice with its analysis.
type PracticeSession struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"userId"`
	Type       SessionType `json:"type"`
	Transcript string      `json:"transcript"`
	Analysis   Analysis    `json:"analysis"`
	XPEarned   int         `json:"xpEarned"`
	Scored     bool        `json:"scored"`
	Topic      string      `json:"topic,omitempty"`
	Scenario   string      `json:"scenario,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Analysis is the coach's assessment of a transcript. Grammar and
// Vocabulary are free-text feedback; the numeric fields are 0-100 scores.
type Analysis struct {
	Grammar              string                `json:"grammar,omitempty"`
	Vocabulary           string                `json:"vocabulary,omitempty"`
	GrammarScore         float64               `json:"grammarScore"`
	VocabularyScore      float64               `json:"vocabularyScore"`
	Pronunciation        float64               `json:"pronunciation"`
	Fluency              float64               `json:"fluency"`
	Pace                 float64               `json:"pace"`
	Clarity              float64               `json:"clarity"`
	FillerWords          float64               `json:"fillerWords"`
	EmotionTone          string                `json:"emotionTone,omitempty"`
	MistakeExplanation   string                `json:"mistake_explanation,omitempty"`
	ImprovedVersion      string                `json:"improved_version,omitempty"`
	Motivation           string                `json:"motivation,omitempty"`
	PronunciationDetails *PronunciationDetails `json:"pronunciation_details,omitempty"`
}

type PronunciationDetails struct {
	DifficultSounds []string `json:"difficult_sounds"`
	StressPattern   string   `json:"stress_pattern"`
	PhoneticOutput  string   `json:"phonetic_output"`
}

type MistakeCategory string

const (
	MistakeGrammar       MistakeCategory = "Grammar"
	MistakeVocabulary    MistakeCategory = "Vocabulary"
	MistakePronunciation MistakeCategory = "Pronunciation"
	MistakeFluency       MistakeCategory = "Fluency"
)

type Mistake struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	Category      MistakeCategory `json:"category"`
	OriginalText  string          `json:"originalText"`
	CorrectedText string          `json:"correctedText"`
	Explanation   string          `json:"explanation"`
	Frequency     int             `json:"frequency"`
	SessionID     *int64          `json:"sessionId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Progress struct {
	UserID                int64     `json:"userId"`
	TotalSessions         int       `json:"totalSessions"`
	ScoredSessions        int       `json:"scoredSessions"`
	AveragePronunciation  float64   `json:"averagePronunciation"`
	AverageFluency        float64   `json:"averageFluency"`
	AverageGrammar        float64   `json:"averageGrammar"`
	AverageVocabulary     float64   `json:"averageVocabulary"`
	TotalXP               int       `json:"totalXP"`
	Level                 Level     `json:"level"`
	ImprovementPercentage float64   `json:"improvementPercentage"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

type WeeklyStats struct {
	SessionsThisWeek int `json:"sessionsThisWeek"`
	XPGained         int `json:"xpGained"`
}

type TrendPoint struct {
	Date          time.Time `json:"date"`
	Pronunciation float64   `json:"pronunciation"`
	Fluency       float64   `json:"fluency"`
	Grammar       float64   `json:"grammar"`
}

type Dashboard struct {
	Progress         *Progress         `json:"progress"`
	WeeklyStats      WeeklyStats       `json:"weeklyStats"`
	TopMistakes      []Mistake         `json:"topMistakes"`
	ImprovementTrend []TrendPoint      `json:"improvementTrend"`
	RecentSessions   []PracticeSession `json:"recentSessions"`
}

type DayStats struct {
	Sessions int `json:"sessions"`
	XP       int `json:"xp"`
}

type SkillBreakdown struct {
	Pronunciation int `json:"pronunciation"`
	Fluency       int `json:"fluency"`
	Grammar       int `json:"grammar"`
	Vocabulary    int `json:"vocabulary"`
}

// XPResult reports a user's totals after an award.
type XPResult struct {
	XPEarned int   `json:"xpEarned"`
	TotalXP  int   `json:"totalXP"`
	Level    Level `json:"level"`
}
