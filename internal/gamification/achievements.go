package gamification

import "github.com/speakup-coach/backend/internal/models"

// AchievementDef defines a single achievement.
type AchievementDef struct {
	Key         string
	Name        string
	Description string
	reached     func(Stats) bool
}

// Stats is the activity summary achievements are judged on.
type Stats struct {
	Sessions      map[models.SessionType]int
	TotalSessions int
	TotalXP       int
	CurrentStreak int
}

func atLeast(n int, field func(Stats) int) func(Stats) bool {
	return func(s Stats) bool { return field(s) >= n }
}

func sessions(s Stats) int      { return s.TotalSessions }
func conversations(s Stats) int { return s.Sessions[models.SessionConversation] }
func challenges(s Stats) int    { return s.Sessions[models.SessionChallenge] }
func streak(s Stats) int        { return s.CurrentStreak }
func xp(s Stats) int            { return s.TotalXP }

// Achievements in display order. Keys are stored; never rename one.
var Achievements = []AchievementDef{
	{"first_session", "First Words", "Complete your first practice session", atLeast(1, sessions)},
	{"sessions_10", "Getting Chatty", "Complete 10 sessions", atLeast(10, sessions)},
	{"sessions_50", "Regular Speaker", "Complete 50 sessions", atLeast(50, sessions)},
	{"conversation_1", "Icebreaker", "Finish your first role-play conversation", atLeast(1, conversations)},
	{"conversation_10", "Smooth Talker", "Finish 10 role-play conversations", atLeast(10, conversations)},
	{"challenge_1", "Challenger", "Complete a daily challenge", atLeast(1, challenges)},
	{"challenge_7", "Challenge Week", "Complete 7 daily challenges", atLeast(7, challenges)},
	{"streak_3", "Getting Started", "3-day streak", atLeast(3, streak)},
	{"streak_7", "Week Warrior", "7-day streak", atLeast(7, streak)},
	{"streak_30", "Monthly Master", "30-day streak", atLeast(30, streak)},
	{"xp_200", "Intermediate Speaker", "Earn 200 total XP", atLeast(200, xp)},
	{"xp_500", "Advanced Speaker", "Earn 500 total XP", atLeast(500, xp)},
	{"xp_1000", "Expert Speaker", "Earn 1,000 total XP", atLeast(1000, xp)},
}

// CheckAchievements returns the keys of every achievement stats qualify
// for. The caller filters out the ones already earned.
func CheckAchievements(stats Stats) []string {
	var earned []string
	for _, a := range Achievements {
		if a.reached(stats) {
			earned = append(earned, a.Key)
		}
	}
	return earned
}
