package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zfsutils/scrubwatch/internal/model"
	"github.com/zfsutils/scrubwatch/internal/notify"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	progress []float64
	finished []model.Outcome
	err      error
}

func (r *recordingSink) Progress(_ context.Context, percent float64) error {
	r.progress = append(r.progress, percent)
	return r.err
}

func (r *recordingSink) Finished(_ context.Context, outcome model.Outcome) error {
	r.finished = append(r.finished, outcome)
	return r.err
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	t.Run("fan_out", func(t *testing.T) {
		t.Parallel()
		a, b := &recordingSink{}, &recordingSink{}
		sink := notify.MultiSink{a, b}

		require.NoError(t, sink.Progress(context.Background(), 50))
		require.NoError(t, sink.Finished(context.Background(), model.Outcome{Kind: model.OutcomeNoErrors, Pool: "tank"}))

		require.Equal(t, []float64{50}, a.progress)
		require.Equal(t, []float64{50}, b.progress)
		require.Len(t, a.finished, 1)
		require.Len(t, b.finished, 1)
	})

	t.Run("one_failure_does_not_hide_others", func(t *testing.T) {
		t.Parallel()
		broken := &recordingSink{err: errors.New("boom")}
		healthy := &recordingSink{}
		sink := notify.MultiSink{broken, healthy}

		err := sink.Progress(context.Background(), 10)
		require.Error(t, err)
		require.Equal(t, []float64{10}, healthy.progress)
	})
}
