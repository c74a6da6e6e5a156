// Package config loads the ratebot configuration: the shared core sections
// plus the rate lookup, dialogue and infrastructure sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/ratebot/core/config"
	coredatabase "github.com/m3rciful/ratebot/core/database"
	"github.com/m3rciful/ratebot/internal/rates"
)

const (
	DefaultStartDate     = "01.12.2014"
	DefaultDictionaryURL = "https://en.wikipedia.org/wiki/ISO_4217"
	defaultTimeout       = 10
)

// RatesConfig points at the bank API.
type RatesConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"RATES_BASE_URL"`
	DictionaryURL  string `yaml:"dictionary_url" envconfig:"RATES_DICTIONARY_URL"`
	StartDate      string `yaml:"start_date" envconfig:"RATES_START_DATE"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"RATES_TIMEOUT_SECONDS"`
}

// DialogueConfig tunes input parsing.
type DialogueConfig struct {
	DateLayouts []string `yaml:"date_layouts" envconfig:"DIALOGUE_DATE_LAYOUTS"`
	Timezone    string   `yaml:"timezone" envconfig:"DIALOGUE_TIMEZONE"`
}

// MessagesConfig locates an optional YAML override of the reply texts.
type MessagesConfig struct {
	Path string `yaml:"path" envconfig:"MESSAGES_PATH"`
}

// OpsConfig enables the ops HTTP endpoint when Listen is set.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Rates    RatesConfig         `yaml:"rates"`
	Dialogue DialogueConfig      `yaml:"dialogue"`
	Messages MessagesConfig      `yaml:"messages"`
	Database coredatabase.Config `yaml:"database"`
	Ops      OpsConfig           `yaml:"ops"`

	startDate time.Time
	location  *time.Location
}

// CoreConfig exposes the embedded core section to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// StartDate is the earliest day users may ask for.
func (c *Config) StartDate() time.Time { return c.startDate }

// Location is the zone used for calendar-day comparisons.
func (c *Config) Location() *time.Location { return c.location }

// LookupTimeout bounds a single upstream call.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Rates.TimeoutSeconds) * time.Second
}

// Load reads path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Rates.BaseURL) == "" {
		cfg.Rates.BaseURL = rates.DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Rates.DictionaryURL) == "" {
		cfg.Rates.DictionaryURL = DefaultDictionaryURL
	}
	if cfg.Rates.TimeoutSeconds < 0 {
		return fmt.Errorf("rates.timeout_seconds must be >= 0")
	}
	if cfg.Rates.TimeoutSeconds == 0 {
		cfg.Rates.TimeoutSeconds = defaultTimeout
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Dialogue.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid dialogue.timezone %q: %w", tz, err)
		}
		loc = l
	}
	cfg.location = loc

	start := strings.TrimSpace(cfg.Rates.StartDate)
	if start == "" {
		start = DefaultStartDate
	}
	day, err := time.ParseInLocation(rates.DateLayout, start, loc)
	if err != nil {
		return fmt.Errorf("invalid rates.start_date %q (want dd.mm.yyyy): %w", cfg.Rates.StartDate, err)
	}
	cfg.Rates.StartDate = start
	cfg.startDate = day

	if err := cfg.Database.Normalize(); err != nil {
		return err
	}
	return nil
}
