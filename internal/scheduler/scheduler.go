// Package scheduler runs the periodic reminder scan: every tick it walks
// all unfinished cases, asks the domain evaluator which are due, delivers
// those and applies the matching store mutation.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

// Sender delivers one rendered reminder. The Telegram router implements it.
type Sender interface {
	SendReminder(chatID string, c domain.Case) error
}

// CaseStore is the slice of the repository the scanner needs.
type CaseStore interface {
	ListUnfinished(ctx context.Context) ([]domain.Case, error)
	SetFinished(ctx context.Context, caseID int64, finished bool) error
	SetLastNotification(ctx context.Context, caseID int64, t time.Time) error
}

// Scanner polls the store and dispatches due reminders.
type Scanner struct {
	store    CaseStore
	sender   Sender
	log      *zap.Logger
	interval time.Duration
}

// New creates a Scanner polling at the given interval.
func New(store CaseStore, sender Sender, log *zap.Logger, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scanner{store: store, sender: sender, log: log, interval: interval}
}

// Start registers the scan as a repeating gocron job and starts the
// scheduler. The returned scheduler should be shut down by the caller.
func (s *Scanner) Start(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Tick(ctx, time.Now()) }),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

// Tick performs one scan cycle. Failures are isolated per case: a send or
// store error is logged and the remaining cases are still evaluated.
func (s *Scanner) Tick(ctx context.Context, now time.Time) {
	cases, err := s.store.ListUnfinished(ctx)
	if err != nil {
		s.log.Error("list unfinished cases failed", zap.Error(err))
		return
	}

	for i := range cases {
		c := cases[i]
		switch domain.Evaluate(&c, now) {
		case domain.NoAction:
			continue

		case domain.FireAndFinish:
			// Deliver first: a failed send leaves the case unfinished so
			// the next tick inside the window can retry.
			if err := s.sender.SendReminder(c.UserID, c); err != nil {
				s.log.Error("reminder delivery failed",
					zap.Error(err), zap.Int64("case_id", c.ID))
				continue
			}
			if err := s.store.SetFinished(ctx, c.ID, true); err != nil {
				s.log.Error("mark finished failed",
					zap.Error(err), zap.Int64("case_id", c.ID))
			}

		case domain.FireAndReschedule:
			if err := s.sender.SendReminder(c.UserID, c); err != nil {
				s.log.Error("reminder delivery failed",
					zap.Error(err), zap.Int64("case_id", c.ID))
				continue
			}
			if err := s.store.SetLastNotification(ctx, c.ID, now); err != nil {
				s.log.Error("record notification failed",
					zap.Error(err), zap.Int64("case_id", c.ID))
			}
		}
	}
}
