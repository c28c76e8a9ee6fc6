package scrub

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zfsutils/scrubwatch/internal/log"
	"github.com/zfsutils/scrubwatch/internal/model"
	"github.com/zfsutils/scrubwatch/internal/notify"
)

// Supervisor owns the poll loop of one scrub from confirmed start to
// terminal state. Progress goes to the sink on every observed increase,
// the terminal outcome exactly once. Sink failures are logged, never
// fatal: a flaky notification channel must not abort a running scan.
type Supervisor struct {
	client       PoolClient
	sink         notify.Sink
	starter      *Starter
	pollInterval time.Duration
}

func NewSupervisor(client PoolClient, sink notify.Sink) *Supervisor {
	return &Supervisor{
		client:       client,
		sink:         sink,
		starter:      NewStarter(client),
		pollInterval: DefaultPollInterval,
	}
}

// WithStarter replaces the default starter, e.g. one with a configured
// timeout budget.
func (s *Supervisor) WithStarter(starter *Starter) *Supervisor {
	s.starter = starter
	return s
}

// WithPollInterval overrides the running-state poll interval.
func (s *Supervisor) WithPollInterval(d time.Duration) *Supervisor {
	if d > 0 {
		s.pollInterval = d
	}
	return s
}

// Run drives one scrub from start request to terminal outcome.
//
// States:
//   - starting: delegate to the Starter. A start timeout is delivered to
//     the sink as a start-failed outcome and returned as an error; no
//     progress was ever reported for it.
//   - running: poll status at the fixed interval. Progress reported to the
//     sink is monotonically non-decreasing; a regressing observation is
//     clamped and never forwarded.
//   - done: a clean completion forces the indicator to exactly 100 (the
//     last observed percent may sit below 100 even though the scrub
//     finished) and yields a no-errors outcome; a completion with data
//     errors yields a warning outcome, not a supervision failure.
//
// Cancellation never cancels the underlying scrub - that is a property of
// the storage subsystem - it is logged and the context error propagated.
func (s *Supervisor) Run(ctx context.Context, pool string) (model.Outcome, error) {
	if err := s.starter.Start(ctx, pool); err != nil {
		var timeout *model.StartTimeoutError
		if errors.As(err, &timeout) {
			outcome := model.Outcome{Kind: model.OutcomeStartFailed, Pool: pool, Detail: timeout.Detail}
			s.deliver(ctx, outcome)
			return outcome, err
		}
		return model.Outcome{}, err
	}

	session := model.NewSession(pool)
	ctx = log.ContextAttrs(ctx, slog.String("session", session.ID.String()))
	slog.InfoContext(ctx, "scrub running", "pool", pool)

	for {
		state, err := s.client.Status(ctx, pool)
		if err != nil {
			return model.Outcome{}, err
		}
		if state.Terminal() {
			return s.conclude(ctx, session, state), nil
		}
		if state.Progress > session.LastProgress {
			session.LastProgress = state.Progress
			s.progress(ctx, session.LastProgress)
		}

		select {
		case <-ctx.Done():
			slog.WarnContext(ctx, "supervision interrupted, the scrub itself keeps running", "pool", pool)
			return model.Outcome{}, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *Supervisor) conclude(ctx context.Context, session *model.Session, state model.ScanState) model.Outcome {
	var outcome model.Outcome
	switch state.Kind {
	case model.StateNoErrors:
		if session.LastProgress < 100 {
			session.LastProgress = 100
			s.progress(ctx, 100)
		}
		outcome = model.Outcome{Kind: model.OutcomeNoErrors, Pool: session.Pool, Detail: state.RawDetail}
	case model.StateErrors:
		outcome = model.Outcome{Kind: model.OutcomeWithErrors, Pool: session.Pool, Detail: state.RawDetail}
	default:
		panic("scrub: concluding a non-terminal state")
	}
	session.Outcome = &outcome
	s.deliver(ctx, outcome)
	return outcome
}

func (s *Supervisor) progress(ctx context.Context, percent float64) {
	if err := s.sink.Progress(ctx, percent); err != nil {
		slog.WarnContext(ctx, "reporting progress failed", "error", err)
	}
}

func (s *Supervisor) deliver(ctx context.Context, outcome model.Outcome) {
	if err := s.sink.Finished(ctx, outcome); err != nil {
		slog.WarnContext(ctx, "reporting outcome failed", "error", err)
	}
}
