package scrub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zfsutils/scrubwatch/internal/model"
	"github.com/zfsutils/scrubwatch/internal/scrub"

	"github.com/stretchr/testify/require"
)

type step struct {
	state model.ScanState
	err   error
}

// fakeClient replays a scripted sequence of status observations. Once the
// script is exhausted the last step repeats forever.
type fakeClient struct {
	mx       sync.Mutex
	steps    []step
	idx      int
	started  int
	startErr error
}

func (f *fakeClient) StartScrub(context.Context, string) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.started++
	return f.startErr
}

func (f *fakeClient) Status(context.Context, string) (model.ScanState, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	if len(f.steps) == 0 {
		return model.ScanState{}, errors.New("no scripted status")
	}
	s := f.steps[f.idx]
	if f.idx < len(f.steps)-1 {
		f.idx++
	}
	return s.state, s.err
}

func fastStarter(client *fakeClient, timeout time.Duration) *scrub.Starter {
	return scrub.NewStarter(client).
		WithPollInterval(time.Millisecond).
		WithTimeout(timeout)
}

func TestStarter(t *testing.T) {
	t.Parallel()

	t.Run("confirms_after_stale_status", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{steps: []step{
			{state: model.NoErrors("No known data errors")}, // prior scrub, not ours
			{state: model.Scanning(0.5)},
		}}
		err := fastStarter(client, time.Second).Start(context.Background(), "tank")
		require.NoError(t, err)
		require.Equal(t, 1, client.started)
	})

	t.Run("timeout_when_never_scanning", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{steps: []step{
			{state: model.NoErrors("No known data errors")},
		}}
		begin := time.Now()
		err := fastStarter(client, 25*time.Millisecond).Start(context.Background(), "tank")

		var timeout *model.StartTimeoutError
		require.ErrorAs(t, err, &timeout)
		require.Equal(t, "tank", timeout.Pool)
		require.Equal(t, "No known data errors", timeout.Detail)
		require.GreaterOrEqual(t, time.Since(begin), 25*time.Millisecond)
	})

	t.Run("start_command_fails_fast", func(t *testing.T) {
		t.Parallel()
		toolErr := &model.ExternalToolError{Args: []string{"zpool", "scrub", "tank"}, Err: errors.New("exit status 1")}
		client := &fakeClient{startErr: toolErr}
		err := fastStarter(client, time.Second).Start(context.Background(), "tank")
		var external *model.ExternalToolError
		require.ErrorAs(t, err, &external)
	})

	t.Run("status_error_aborts", func(t *testing.T) {
		t.Parallel()
		toolErr := &model.ExternalToolError{Args: []string{"zpool", "status", "tank"}, Err: errors.New("exit status 1")}
		client := &fakeClient{steps: []step{{err: toolErr}}}
		err := fastStarter(client, time.Second).Start(context.Background(), "tank")
		var external *model.ExternalToolError
		require.ErrorAs(t, err, &external)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{steps: []step{
			{state: model.NoErrors("No known data errors")},
		}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := fastStarter(client, time.Second).Start(ctx, "tank")
		require.ErrorIs(t, err, context.Canceled)
	})
}
