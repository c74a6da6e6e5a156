package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: " Polling "}}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]*Config{
		"nil":            nil,
		"no token":       {},
		"bad mode":       {Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
		"webhook no url": {Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}},
		"bad exclude":    {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"photo"}}},
		"neg workers":    {Telegram: TelegramConfig{Token: "t"}, Sender: SenderConfig{Workers: -1}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(cfg))
		})
	}
}

func TestNormalizeSenderAndExcludes(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}},
		Sender:    SenderConfig{MaxRetries: -3},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
	assert.Zero(t, cfg.Sender.MaxRetries)
}

func TestLoadAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: from-file
  run_mode: webhook
webhook:
  url: https://bot.example.com/hook
  listen: 0.0.0.0
  port: 8443
sender:
  workers: 8
`), 0o600))
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("SENDER_MAX_RETRIES", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
	assert.Equal(t, 8, cfg.Sender.Workers)
	assert.Equal(t, 5, cfg.Sender.MaxRetries)
}
