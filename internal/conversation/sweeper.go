package conversation

import (
	"context"
	"time"

	"github.com/speakup-coach/backend/internal/logger"
)

// Sweeper periodically drops conversations that have gone idle.
type Sweeper struct {
	store    Store
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewSweeper(store Store, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, interval: interval, log: log, now: time.Now}
}

// Start runs the sweeper in a goroutine until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	s.log.Info("conversation sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("conversation sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) int {
	expired, err := s.store.Expired(ctx, s.now())
	if err != nil {
		s.log.Error("failed to list idle conversations", "error", err)
		return 0
	}

	removed := 0
	for _, sess := range expired {
		if err := s.store.Delete(ctx, sess.UserID); err != nil {
			s.log.Error("failed to drop idle conversation", "id", sess.ID, "user_id", sess.UserID, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("idle conversations dropped", "count", removed)
	}
	return removed
}
