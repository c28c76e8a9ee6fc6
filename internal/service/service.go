// Package service wires the scrub cycle together: single-instance guard,
// pool discovery and selection, execution gate, supervision, record
// update. It also provides the resident watch mode.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/zfsutils/scrubwatch/internal/gate"
	"github.com/zfsutils/scrubwatch/internal/log"
	"github.com/zfsutils/scrubwatch/internal/model"
	"github.com/zfsutils/scrubwatch/internal/notify"
	"github.com/zfsutils/scrubwatch/internal/scrub"
	"github.com/zfsutils/scrubwatch/internal/zpool"
)

// Pools is the zpool surface the service consumes.
type Pools interface {
	ListPools(ctx context.Context) ([]string, error)
	Status(ctx context.Context, pool string) (model.ScanState, error)
	StartScrub(ctx context.Context, pool string) error
}

// SinkFactory builds the reporting sink for one supervised pool.
type SinkFactory func(pool string) (notify.Sink, error)

type Service struct {
	cfg         model.Config
	policy      model.Interval
	pools       Pools
	gate        *gate.Gate
	guard       func(ctx context.Context) (bool, error)
	sinkFactory SinkFactory

	// poll tuning, zero means the scrub package defaults
	startPollInterval time.Duration
	pollInterval      time.Duration
}

func New(cfg model.Config) (*Service, error) {
	var policy model.Interval
	if cfg.Every != "" {
		var err error
		policy, err = model.ParseInterval(cfg.Every)
		if err != nil {
			return nil, err
		}
	}

	recordPath := cfg.RecordPath
	if recordPath == "" {
		var err error
		recordPath, err = defaultRecordPath()
		if err != nil {
			return nil, fmt.Errorf("resolving record path: %w", err)
		}
	}

	return &Service{
		cfg:    cfg,
		policy: policy,
		pools:  zpool.New(zpool.ExecRunner{Binary: cfg.ZpoolBinary}),
		gate:   gate.New(recordPath),
		guard:  AlreadyRunning,
	}, nil
}

// WithPools replaces the zpool client. For unit testing.
func (s *Service) WithPools(pools Pools) *Service {
	s.pools = pools
	return s
}

// WithGate replaces the execution gate. For unit testing.
func (s *Service) WithGate(g *gate.Gate) *Service {
	s.gate = g
	return s
}

// WithGuard replaces the single-instance check. For unit testing.
func (s *Service) WithGuard(guard func(ctx context.Context) (bool, error)) *Service {
	s.guard = guard
	return s
}

// WithSinkFactory replaces the sink construction. For unit testing.
func (s *Service) WithSinkFactory(factory SinkFactory) *Service {
	s.sinkFactory = factory
	return s
}

// WithPollIntervals overrides the start confirmation and running-state
// poll intervals. For unit testing.
func (s *Service) WithPollIntervals(startPoll, poll time.Duration) *Service {
	s.startPollInterval = startPoll
	s.pollInterval = poll
	return s
}

// RunOnce performs one gated scrub cycle: at most one supervised scan, and
// the execution record updated only after a scan reached a terminal state.
// "Nothing to do" (no pools, or the gate is closed) is a clean nil.
func (s *Service) RunOnce(ctx context.Context) error {
	if running, err := s.guard(ctx); err != nil {
		slog.WarnContext(ctx, "single instance check failed, continuing", "error", err)
	} else if running {
		return model.ErrAlreadyRunning
	}

	pools, err := s.pools.ListPools(ctx)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		slog.InfoContext(ctx, "no pools available on the system, nothing to do")
		return nil
	}

	pool := s.cfg.Pool
	if pool == "" {
		pool = pools[0]
	}
	if !slices.Contains(pools, pool) {
		return fmt.Errorf("pool %q: %w", pool, model.ErrUnknownPool)
	}

	if !s.gate.ShouldRun(ctx, s.policy) {
		slog.InfoContext(ctx, "scrub already ran within the interval, nothing to do",
			"pool", pool, "every", string(s.policy))
		return nil
	}

	sink, err := s.sinkFor(pool)
	if err != nil {
		return err
	}

	ctx = log.ContextAttrs(ctx, slog.String("pool", pool))
	starter := scrub.NewStarter(s.pools).
		WithTimeout(time.Duration(s.cfg.StartTimeout)).
		WithPollInterval(s.startPollInterval)
	supervisor := scrub.NewSupervisor(s.pools, sink).
		WithStarter(starter).
		WithPollInterval(s.pollInterval)

	if _, err := supervisor.Run(ctx, pool); err != nil {
		return err
	}

	s.gate.RecordRun(ctx)
	return nil
}

func (s *Service) sinkFor(pool string) (notify.Sink, error) {
	if s.sinkFactory != nil {
		return s.sinkFactory(pool)
	}
	sinks := notify.MultiSink{notify.LogSink{}}
	if s.cfg.Telegram != nil {
		telegram, err := notify.NewTelegram(*s.cfg.Telegram)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, telegram.WithPool(pool))
	}
	return sinks, nil
}

func defaultRecordPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "scrubwatch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "last-execution.txt"), nil
}
