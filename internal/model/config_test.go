package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/zfsutils/scrubwatch/internal/model"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("full", func(t *testing.T) {
		t.Parallel()
		const yml = `
pool: tank
every: week
verbose: true
log: stdout
zpool_binary: /sbin/zpool
record_path: /var/lib/scrubwatch/last-execution.txt
start_timeout: 30s
telegram:
  token: "123:abc"
  chat_ids: ["-1001", "42"]
schedule:
  cron: "0 3 * * 0"
`
		cfg, err := model.LoadConfig(strings.NewReader(yml))
		require.NoError(t, err)
		require.Equal(t, "tank", cfg.Pool)
		require.Equal(t, "week", cfg.Every)
		require.True(t, cfg.Verbose)
		require.Equal(t, model.LogStdout, cfg.Log)
		require.Equal(t, "/sbin/zpool", cfg.ZpoolBinary)
		require.Equal(t, model.Duration(30*time.Second), cfg.StartTimeout)
		require.NotNil(t, cfg.Telegram)
		require.Equal(t, []string{"-1001", "42"}, cfg.Telegram.ChatIDs)
		require.NotNil(t, cfg.Schedule)
		require.Equal(t, "0 3 * * 0", cfg.Schedule.Cron)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := model.LoadConfig(strings.NewReader("pool: tank\n"))
		require.NoError(t, err)
		require.Equal(t, model.LogStderr, cfg.Log)
		require.Equal(t, "zpool", cfg.ZpoolBinary)
		require.Equal(t, model.Duration(10*time.Second), cfg.StartTimeout)
		require.Empty(t, cfg.Every)
		require.Nil(t, cfg.Telegram)
	})

	type given struct {
		yml string
	}
	invalid := []struct {
		scenario string
		given    given
	}{
		{"bad_every", given{"every: fortnight\n"}},
		{"bad_duration", given{"start_timeout: soon\n"}},
		{"telegram_without_token", given{"telegram:\n  chat_ids: [\"1\"]\n"}},
		{"telegram_without_chats", given{"telegram:\n  token: \"123:abc\"\n"}},
		{"unknown_field", given{"pools: [tank]\n"}},
	}
	for _, tc := range invalid {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := model.LoadConfig(strings.NewReader(tc.given.yml))
			require.Error(t, err)
		})
	}
}
