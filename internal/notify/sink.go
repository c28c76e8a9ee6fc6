// Package notify defines the reporting sink a supervised scrub talks to
// and its implementations: structured logging, Telegram, and a fan-out.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zfsutils/scrubwatch/internal/model"
)

// Sink receives progress updates during a running scrub and exactly one
// terminal outcome when supervision ends. Implementations must not block
// the poll loop longer than necessary; errors are reported back so the
// supervisor can log them, they never abort supervision.
type Sink interface {
	Progress(ctx context.Context, percent float64) error
	Finished(ctx context.Context, outcome model.Outcome) error
}

// LogSink reports through slog. Pool and session attributes arrive via the
// logging context.
type LogSink struct{}

func (LogSink) Progress(ctx context.Context, percent float64) error {
	slog.InfoContext(ctx, "scrub progress", "percent", percent)
	return nil
}

func (LogSink) Finished(ctx context.Context, outcome model.Outcome) error {
	switch outcome.Kind {
	case model.OutcomeNoErrors:
		slog.InfoContext(ctx, "scrub finished with no errors", "pool", outcome.Pool)
	case model.OutcomeWithErrors:
		slog.WarnContext(ctx, "scrub finished with errors", "pool", outcome.Pool, "detail", outcome.Detail)
	case model.OutcomeStartFailed:
		slog.ErrorContext(ctx, "scrub did not start", "pool", outcome.Pool, "detail", outcome.Detail)
	default:
		slog.ErrorContext(ctx, "scrub finished in unknown state", "pool", outcome.Pool)
	}
	return nil
}

// MultiSink fans out to every sink; errors are joined so one failing
// channel does not hide the others.
type MultiSink []Sink

func (m MultiSink) Progress(ctx context.Context, percent float64) error {
	var errs []error
	for _, s := range m {
		if err := s.Progress(ctx, percent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Finished(ctx context.Context, outcome model.Outcome) error {
	var errs []error
	for _, s := range m {
		if err := s.Finished(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
