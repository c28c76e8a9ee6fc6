// Package scrub implements the scrub supervision state machine: confirm a
// scan actually began, poll it until a terminal state, and translate that
// state into an operator-visible outcome.
package scrub

import (
	"context"
	"log/slog"
	"time"

	"github.com/zfsutils/scrubwatch/internal/model"
)

// PoolClient is the slice of the zpool surface the state machine needs.
type PoolClient interface {
	Status(ctx context.Context, pool string) (model.ScanState, error)
	StartScrub(ctx context.Context, pool string) error
}

const (
	DefaultStartPollInterval = 500 * time.Millisecond
	DefaultPollInterval      = 2 * time.Second
	DefaultStartTimeout      = 10 * time.Second
)

// Starter issues the scrub start command and waits, bounded, until the
// status query confirms scanning. Starting is asynchronous at the OS
// level: the start command returning success does not mean the subsystem
// has begun scanning, so the first status read must not be trusted as a
// terminal state until the budget elapses.
type Starter struct {
	client       PoolClient
	pollInterval time.Duration
	timeout      time.Duration
}

func NewStarter(client PoolClient) *Starter {
	return &Starter{
		client:       client,
		pollInterval: DefaultStartPollInterval,
		timeout:      DefaultStartTimeout,
	}
}

// WithTimeout overrides the start confirmation budget.
func (s *Starter) WithTimeout(d time.Duration) *Starter {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithPollInterval overrides the confirmation poll interval.
func (s *Starter) WithPollInterval(d time.Duration) *Starter {
	if d > 0 {
		s.pollInterval = d
	}
	return s
}

// Start returns nil once the pool reports scanning. A status that stays
// non-scanning for the whole budget yields a StartTimeoutError carrying
// the last raw detail seen - possibly a stale completion from a prior
// scrub. Tool failures abort immediately.
func (s *Starter) Start(ctx context.Context, pool string) error {
	if err := s.client.StartScrub(ctx, pool); err != nil {
		return err
	}
	slog.DebugContext(ctx, "scrub start issued, waiting for confirmation", "pool", pool)

	deadline := time.Now().Add(s.timeout)
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		state, err := s.client.Status(ctx, pool)
		if err != nil {
			return err
		}
		if state.Kind == model.StateScanning {
			slog.DebugContext(ctx, "scrub confirmed started", "pool", pool, "percent", state.Progress)
			return nil
		}
		if time.Now().After(deadline) {
			return &model.StartTimeoutError{Pool: pool, Budget: s.timeout, Detail: state.RawDetail}
		}
		timer.Reset(s.pollInterval)
	}
}
