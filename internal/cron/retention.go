package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// NotificationPurger is the part of the notification log the retention job
// needs.
type NotificationPurger interface {
	PurgeNotificationsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler runs housekeeping jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	purger  NotificationPurger
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewScheduler registers the notification purge on schedule. Entries last
// received more than maxAge ago are deleted.
func NewScheduler(schedule string, maxAge time.Duration, purger NotificationPurger, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		logger:  logger.Named("cron"),
		purger:  purger,
		maxAge:  maxAge,
		timeout: time.Minute,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.purgeNotifications); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) purgeNotifications() {
	defer s.recoverFromPanic("purgeNotifications")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	before := s.now().Add(-s.maxAge)
	n, err := s.purger.PurgeNotificationsBefore(ctx, before)
	if err != nil {
		s.logger.Error("notification purge failed", zap.Error(err))
		return
	}

	s.logger.Info("notification log purged", zap.Int64("deleted", n), zap.Time("before", before))
}

func (s *Scheduler) recoverFromPanic(job string) {
	if r := recover(); r != nil {
		s.logger.Error("cron job panicked", zap.String("job", job), zap.Any("panic", r))
	}
}
