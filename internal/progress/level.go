package progress

import (
	"math"
	"time"

	"github.com/speakup-coach/backend/internal/models"
)

// XP awarded per activity.
const (
	XPAnalysis     = 10
	XPConversation = 15
	XPChallenge    = 5
)

// LevelFor maps total XP onto a level.
func LevelFor(totalXP int) models.Level {
	switch {
	case totalXP >= 1000:
		return models.LevelExpert
	case totalXP >= 500:
		return models.LevelAdvanced
	case totalXP >= 200:
		return models.LevelIntermediate
	default:
		return models.LevelBeginner
	}
}

// NextLevelXP returns the XP needed for the next level, or 0 at the top.
func NextLevelXP(totalXP int) int {
	for _, threshold := range []int{200, 500, 1000} {
		if totalXP < threshold {
			return threshold - totalXP
		}
	}
	return 0
}

// applySession folds one saved session into p.
func applySession(p *models.Progress, s *models.PracticeSession) {
	p.TotalSessions++
	p.TotalXP += s.XPEarned
	p.Level = LevelFor(p.TotalXP)

	if !s.Scored {
		return
	}
	p.ScoredSessions++
	n := float64(p.ScoredSessions)
	p.AveragePronunciation = runningAverage(p.AveragePronunciation, s.Analysis.Pronunciation, n)
	p.AverageFluency = runningAverage(p.AverageFluency, s.Analysis.Fluency, n)
	p.AverageGrammar = runningAverage(p.AverageGrammar, s.Analysis.GrammarScore, n)
	p.AverageVocabulary = runningAverage(p.AverageVocabulary, s.Analysis.VocabularyScore, n)
}

func runningAverage(prev, value, n float64) float64 {
	return (prev*(n-1) + value) / n
}

// recompute rebuilds totals and averages from the full session list.
func recompute(p *models.Progress, sessions []models.PracticeSession) {
	p.TotalSessions, p.ScoredSessions, p.TotalXP = 0, 0, 0
	p.AveragePronunciation, p.AverageFluency, p.AverageGrammar, p.AverageVocabulary = 0, 0, 0, 0

	var pron, flu, gram, vocab float64
	for _, s := range sessions {
		p.TotalSessions++
		p.TotalXP += s.XPEarned
		if s.Scored {
			p.ScoredSessions++
			pron += s.Analysis.Pronunciation
			flu += s.Analysis.Fluency
			gram += s.Analysis.GrammarScore
			vocab += s.Analysis.VocabularyScore
		}
	}
	if p.ScoredSessions > 0 {
		n := float64(p.ScoredSessions)
		p.AveragePronunciation = math.Round(pron / n)
		p.AverageFluency = math.Round(flu / n)
		p.AverageGrammar = math.Round(gram / n)
		p.AverageVocabulary = math.Round(vocab / n)
	}
	p.Level = LevelFor(p.TotalXP)
}

// skillBreakdown averages the scores of the given sessions, rounded.
func skillBreakdown(sessions []models.PracticeSession) models.SkillBreakdown {
	var out models.SkillBreakdown
	if len(sessions) == 0 {
		return out
	}
	var pron, flu, gram, vocab float64
	for _, s := range sessions {
		pron += s.Analysis.Pronunciation
		flu += s.Analysis.Fluency
		gram += s.Analysis.GrammarScore
		vocab += s.Analysis.VocabularyScore
	}
	n := float64(len(sessions))
	out.Pronunciation = int(math.Round(pron / n))
	out.Fluency = int(math.Round(flu / n))
	out.Grammar = int(math.Round(gram / n))
	out.Vocabulary = int(math.Round(vocab / n))
	return out
}

// weeklyBuckets groups sessions into the seven weekdays ending on now's day.
func weeklyBuckets(sessions []models.PracticeSession, now time.Time) map[string]models.DayStats {
	out := make(map[string]models.DayStats, 7)
	for i := 6; i >= 0; i-- {
		out[now.AddDate(0, 0, -i).Weekday().String()] = models.DayStats{}
	}
	for _, s := range sessions {
		day := s.CreatedAt.In(now.Location()).Weekday().String()
		stats, ok := out[day]
		if !ok {
			continue
		}
		stats.Sessions++
		stats.XP += s.XPEarned
		out[day] = stats
	}
	return out
}

// improvementTrend turns scored sessions, oldest first, into chart points.
func improvementTrend(sessions []models.PracticeSession) []models.TrendPoint {
	out := make([]models.TrendPoint, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, models.TrendPoint{
			Date:          s.CreatedAt,
			Pronunciation: s.Analysis.Pronunciation,
			Fluency:       s.Analysis.Fluency,
			Grammar:       s.Analysis.GrammarScore,
		})
	}
	return out
}

// improvementPercentage compares the first and last trend points by their
// mean pronunciation and fluency.
func improvementPercentage(trend []models.TrendPoint) float64 {
	if len(trend) < 2 {
		return 0
	}
	first := (trend[0].Pronunciation + trend[0].Fluency) / 2
	last := (trend[len(trend)-1].Pronunciation + trend[len(trend)-1].Fluency) / 2
	if first == 0 {
		return 0
	}
	return math.Round((last-first)/first*1000) / 10
}
