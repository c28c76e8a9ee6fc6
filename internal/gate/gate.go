// Package gate enforces the minimum interval between scrub runs via a
// single persisted timestamp.
package gate

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zfsutils/scrubwatch/internal/model"
)

// Gate decides whether enough time has passed since the last completed
// run. The record is one RFC 3339 timestamp in a plain-text file; it is
// read once at check time and overwritten once after a completed run. A
// missing or unreadable record fails open: a broken record must lead to a
// scrub, not to a skipped one.
type Gate struct {
	path string
	now  func() time.Time
}

func New(path string) *Gate {
	return &Gate{path: path, now: time.Now}
}

// WithNow replaces the clock. For unit testing.
func (g *Gate) WithNow(now func() time.Time) *Gate {
	g.now = now
	return g
}

// ShouldRun reports whether a run is permitted under the given policy.
// An empty policy always permits.
func (g *Gate) ShouldRun(ctx context.Context, policy model.Interval) bool {
	if policy == "" {
		return true
	}
	last, ok := g.lastRun(ctx)
	if !ok {
		return true
	}
	return g.now().Sub(last) >= policy.Duration()
}

func (g *Gate) lastRun(ctx context.Context) (time.Time, bool) {
	raw, err := os.ReadFile(g.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.WarnContext(ctx, "reading last execution record failed, treating as absent",
				"path", g.path, "error", err)
		}
		return time.Time{}, false
	}
	last, err := time.Parse(time.RFC3339, strings.TrimSpace(string(raw)))
	if err != nil {
		slog.WarnContext(ctx, "last execution record is corrupt, treating as absent",
			"path", g.path, "error", err)
		return time.Time{}, false
	}
	return last, true
}

// RecordRun overwrites the record with the current time. Persist failures
// are logged, never fatal: a transient write failure must not abort an
// otherwise successful scrub cycle.
func (g *Gate) RecordRun(ctx context.Context) {
	stamp := g.now().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(g.path, []byte(stamp), 0o644); err != nil {
		slog.WarnContext(ctx, "writing last execution record failed",
			"path", g.path, "error", err)
	}
}
