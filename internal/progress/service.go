package progress

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/models"
)

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	RecordSession(sess *models.PracticeSession, apply func(*models.Progress)) (*models.Progress, error)
	GetSession(userID, sessionID int64) (*models.PracticeSession, error)
	SessionsSince(userID int64, since time.Time, scoredOnly bool) ([]models.PracticeSession, error)
	RecentSessions(userID int64, limit int, scoredOnly bool) ([]models.PracticeSession, error)
	GetOrCreateProgress(userID int64) (*models.Progress, error)
	SaveProgress(p *models.Progress) error
	AddMistake(m *models.Mistake) error
	TopMistakes(userID int64, limit int) ([]models.Mistake, error)
}

const (
	recentSessionLimit = 5
	topMistakeLimit    = 5
	skillSampleSize    = 20
	trendWindow        = 30 * 24 * time.Hour
	weekWindow         = 7 * 24 * time.Hour
)

type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// ── Recording (called by coach, conversation, challenge) ──

// RecordSession saves a session and credits its XP. Scored sessions also
// move the running skill averages.
func (s *Service) RecordSession(sess *models.PracticeSession) (*models.XPResult, error) {
	if !sess.Type.Valid() {
		return nil, fmt.Errorf("invalid session type %q", sess.Type)
	}
	p, err := s.repo.RecordSession(sess, func(p *models.Progress) {
		applySession(p, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	s.log.Info("session recorded",
		"user_id", sess.UserID, "type", sess.Type, "xp", sess.XPEarned, "total_xp", p.TotalXP, "level", p.Level)
	return &models.XPResult{XPEarned: sess.XPEarned, TotalXP: p.TotalXP, Level: p.Level}, nil
}

// RecordMistake logs a mistake. Failures are logged, not returned: the
// session it belongs to is already saved.
func (s *Service) RecordMistake(m *models.Mistake) {
	if err := s.repo.AddMistake(m); err != nil {
		s.log.Error("failed to record mistake", "user_id", m.UserID, "error", err)
	}
}

// ── Reads ───────────────────────────────────────────────

func (s *Service) Dashboard(userID int64) (*models.Dashboard, error) {
	now := s.now()
	var (
		prog     *models.Progress
		week     []models.PracticeSession
		month    []models.PracticeSession
		mistakes []models.Mistake
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		prog, err = s.repo.GetOrCreateProgress(userID)
		return err
	})
	g.Go(func() (err error) {
		week, err = s.repo.SessionsSince(userID, now.Add(-weekWindow), false)
		return err
	})
	g.Go(func() (err error) {
		month, err = s.repo.SessionsSince(userID, now.Add(-trendWindow), true)
		return err
	})
	g.Go(func() (err error) {
		mistakes, err = s.repo.TopMistakes(userID, topMistakeLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	stats := models.WeeklyStats{SessionsThisWeek: len(week)}
	for _, sess := range week {
		stats.XPGained += sess.XPEarned
	}

	// oldest first for charting
	for i, j := 0, len(month)-1; i < j; i, j = i+1, j-1 {
		month[i], month[j] = month[j], month[i]
	}
	trend := improvementTrend(month)
	prog.ImprovementPercentage = improvementPercentage(trend)

	recent := week
	if len(recent) > recentSessionLimit {
		recent = recent[:recentSessionLimit]
	}

	return &models.Dashboard{
		Progress:         prog,
		WeeklyStats:      stats,
		TopMistakes:      nonNil(mistakes),
		ImprovementTrend: trend,
		RecentSessions:   nonNil(recent),
	}, nil
}

func (s *Service) Weekly(userID int64) (map[string]models.DayStats, error) {
	now := s.now()
	sessions, err := s.repo.SessionsSince(userID, now.Add(-weekWindow), false)
	if err != nil {
		return nil, fmt.Errorf("load weekly sessions: %w", err)
	}
	return weeklyBuckets(sessions, now), nil
}

func (s *Service) Skills(userID int64) (models.SkillBreakdown, error) {
	sessions, err := s.repo.RecentSessions(userID, skillSampleSize, true)
	if err != nil {
		return models.SkillBreakdown{}, fmt.Errorf("load scored sessions: %w", err)
	}
	return skillBreakdown(sessions), nil
}

// Recalculate rebuilds the user's progress from every saved session. The
// session id only has to belong to the user.
func (s *Service) Recalculate(userID, sessionID int64) (*models.Progress, error) {
	if _, err := s.repo.GetSession(userID, sessionID); err != nil {
		return nil, err
	}

	p, err := s.repo.GetOrCreateProgress(userID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	sessions, err := s.repo.RecentSessions(userID, 0, false)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	recompute(p, sessions)
	if err := s.repo.SaveProgress(p); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return p, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
