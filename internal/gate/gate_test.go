package gate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zfsutils/scrubwatch/internal/gate"
	"github.com/zfsutils/scrubwatch/internal/model"

	"github.com/stretchr/testify/require"
)

func TestShouldRun(t *testing.T) {
	t.Parallel()

	recordAt := func(t *testing.T, stamp time.Time) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "last-execution.txt")
		require.NoError(t, os.WriteFile(path, []byte(stamp.Format(time.RFC3339)+"\n"), 0o644))
		return path
	}

	t.Run("no_policy_always_runs", func(t *testing.T) {
		t.Parallel()
		path := recordAt(t, time.Now())
		require.True(t, gate.New(path).ShouldRun(context.Background(), ""))
	})

	t.Run("missing_record_runs", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "last-execution.txt")
		require.True(t, gate.New(path).ShouldRun(context.Background(), model.IntervalWeek))
	})

	t.Run("corrupt_record_runs", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "last-execution.txt")
		require.NoError(t, os.WriteFile(path, []byte("not a timestamp"), 0o644))
		require.True(t, gate.New(path).ShouldRun(context.Background(), model.IntervalDay))
	})

	t.Run("boundary_is_inclusive", func(t *testing.T) {
		t.Parallel()
		recorded := time.Date(2025, 8, 10, 3, 0, 0, 0, time.UTC)
		path := recordAt(t, recorded)

		type given struct {
			policy model.Interval
			now    time.Time
		}
		cases := []struct {
			scenario string
			given    given
			then     bool
		}{
			{"just_before_day", given{model.IntervalDay, recorded.Add(24*time.Hour - time.Second)}, false},
			{"exactly_day", given{model.IntervalDay, recorded.Add(24 * time.Hour)}, true},
			{"after_day", given{model.IntervalDay, recorded.Add(25 * time.Hour)}, true},
			{"just_before_week", given{model.IntervalWeek, recorded.Add(7*24*time.Hour - time.Minute)}, false},
			{"exactly_week", given{model.IntervalWeek, recorded.Add(7 * 24 * time.Hour)}, true},
			{"just_before_2weeks", given{model.IntervalTwoWeeks, recorded.Add(14*24*time.Hour - time.Second)}, false},
			{"exactly_2weeks", given{model.IntervalTwoWeeks, recorded.Add(14 * 24 * time.Hour)}, true},
			{"just_before_month", given{model.IntervalMonth, recorded.Add(30*24*time.Hour - time.Second)}, false},
			{"exactly_month", given{model.IntervalMonth, recorded.Add(30 * 24 * time.Hour)}, true},
		}
		for _, tc := range cases {
			t.Run(tc.scenario, func(t *testing.T) {
				g := gate.New(path).WithNow(func() time.Time { return tc.given.now })
				require.Equal(t, tc.then, g.ShouldRun(context.Background(), tc.given.policy))
			})
		}
	})
}

func TestRecordRun(t *testing.T) {
	t.Parallel()

	t.Run("writes_rfc3339", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "last-execution.txt")
		now := time.Date(2025, 8, 10, 11, 0, 0, 0, time.UTC)
		g := gate.New(path).WithNow(func() time.Time { return now })

		g.RecordRun(context.Background())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "2025-08-10T11:00:00Z\n", string(raw))

		// and the gate now closes for a day
		require.False(t, g.ShouldRun(context.Background(), model.IntervalDay))
	})

	t.Run("overwrites_previous_record", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "last-execution.txt")
		require.NoError(t, os.WriteFile(path, []byte("2020-01-01T00:00:00Z\n"), 0o644))

		now := time.Date(2025, 8, 10, 11, 0, 0, 0, time.UTC)
		gate.New(path).WithNow(func() time.Time { return now }).RecordRun(context.Background())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "2025-08-10T11:00:00Z\n", string(raw))
	})

	t.Run("write_failure_is_not_fatal", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "missing", "last-execution.txt")
		// must only log, not panic or error out
		gate.New(path).RecordRun(context.Background())
		require.NoFileExists(t, path)
	})
}
