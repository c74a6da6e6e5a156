package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/ratebot/internal/rates"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, rates.DefaultBaseURL, cfg.Rates.BaseURL)
	assert.Equal(t, DefaultDictionaryURL, cfg.Rates.DictionaryURL)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout())
	assert.Equal(t, time.Local, cfg.Location())
	y, m, d := cfg.StartDate().Date()
	assert.Equal(t, 2014, y)
	assert.Equal(t, time.December, m)
	assert.Equal(t, 1, d)
	assert.False(t, cfg.Database.Enabled)
	assert.Empty(t, cfg.Ops.Listen)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
sender:
  workers: 2
rates:
  base_url: "http://localhost:9000/rates?date="
  start_date: "01.01.2020"
  timeout_seconds: 3
dialogue:
  timezone: "Europe/Berlin"
  date_layouts: ["2.1.2006"]
messages:
  path: "messages.yaml"
database:
  enabled: true
  user: bot
  name: rates
ops:
  listen: "127.0.0.1:8081"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, 2, cfg.Sender.Workers)
	assert.Equal(t, "http://localhost:9000/rates?date=", cfg.Rates.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.LookupTimeout())
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, cfg.Location(), cfg.StartDate().Location())
	assert.Equal(t, 2020, cfg.StartDate().Year())
	assert.Equal(t, []string{"2.1.2006"}, cfg.Dialogue.DateLayouts)
	assert.Equal(t, "messages.yaml", cfg.Messages.Path)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "127.0.0.1:8081", cfg.Ops.Listen)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: file-token\n")
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("RATES_START_DATE", "15.06.2018")
	t.Setenv("OPS_LISTEN", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, 2018, cfg.StartDate().Year())
	assert.Equal(t, ":9090", cfg.Ops.Listen)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"missing token": "rates:\n  start_date: 01.01.2020\n",
		"bad start":     "telegram:\n  token: t\nrates:\n  start_date: 2020-01-01\n",
		"bad timezone":  "telegram:\n  token: t\ndialogue:\n  timezone: Mars/Olympus\n",
		"bad timeout":   "telegram:\n  token: t\nrates:\n  timeout_seconds: -1\n",
		"db incomplete": "telegram:\n  token: t\ndatabase:\n  enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
