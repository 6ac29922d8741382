package tuning

import (
	"context"
	"log/slog"
	"time"

	"github.com/siherrmann/weaver/helper"
)

// DefaultTuneInterval is how often the scheduler sweeps all users
const DefaultTuneInterval = 24 * time.Hour

// Scheduler periodically runs the tuner for every user with recent
// feedback. Users without feedback in the window are never touched.
type Scheduler struct {
	tuner    *Tuner
	interval time.Duration
	log      *slog.Logger
}

// NewScheduler creates a new scheduler. A non-positive interval falls
// back to the default.
func NewScheduler(tuner *Tuner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultTuneInterval
	}
	return &Scheduler{
		tuner:    tuner,
		interval: interval,
		log:      logger,
	}
}

// Run sweeps immediately, then on every interval tick until the context
// is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce tunes every user with feedback inside the window. A failing
// user is logged and skipped, one bad user never blocks the sweep.
func (s *Scheduler) RunOnce(ctx context.Context) {
	since := s.tuner.now().Add(-FeedbackWindow)

	userIDs, err := s.tuner.feedback.SelectFeedbackUserIDs(since)
	if err != nil {
		s.log.Error("Failed to list users for tuning",
			slog.String("error", helper.NewError("select feedback user ids", err).Error()),
		)
		return
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}

		err := s.tuner.TuneUser(ctx, userID)
		if err != nil {
			s.log.Error("Tuning run failed",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.log.Info("Completed tuning sweep",
		slog.Int("users", len(userIDs)),
	)
}
