package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/zfsutils/scrubwatch/internal/model"
)

// Watch keeps the process resident and runs one gated cycle per schedule
// tick. Cycle failures are logged, not fatal: the next tick gets a fresh
// chance. Returns nil on graceful cancellation.
func (s *Service) Watch(ctx context.Context) error {
	start := make(chan struct{}, 1)
	scheduler, err := newScheduler(s.cfg, func() {
		select {
		case start <- struct{}{}:
		default: // a trigger is already pending
		}
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			slog.ErrorContext(ctx, "shutting down scheduler failed", "error", err)
		}
	}()
	slog.InfoContext(ctx, "watch mode started", "every", s.cfg.Every)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-start:
			err := s.RunOnce(ctx)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				slog.ErrorContext(ctx, "scrub cycle failed", "error", err)
			}
		}
	}
}

func newScheduler(cfg model.Config, task func()) (gocron.Scheduler, error) {
	var def gocron.JobDefinition
	switch {
	case cfg.Schedule != nil && cfg.Schedule.Cron != "":
		if err := ParseCron(cfg.Schedule.Cron); err != nil {
			return nil, fmt.Errorf("parsing schedule.cron: %w", err)
		}
		def = gocron.CronJob(cfg.Schedule.Cron, false)
	case cfg.Every != "":
		interval, err := model.ParseInterval(cfg.Every)
		if err != nil {
			return nil, fmt.Errorf("parsing every: %w", err)
		}
		def = gocron.DurationJob(interval.Duration())
	default:
		return nil, errors.New("watch mode needs schedule.cron or every")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing scheduler: %w", err)
	}
	if _, err := scheduler.NewJob(def, gocron.NewTask(task)); err != nil {
		return nil, fmt.Errorf("initializing scheduled job: %w", err)
	}
	return scheduler, nil
}
