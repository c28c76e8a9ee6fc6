package model

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Log output selectors. Anything else is treated as a file path.
const (
	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"
)

// Duration is a time.Duration readable from YAML as "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	Pool         string    `yaml:"pool,omitempty"`          // empty: first discovered pool
	Every        string    `yaml:"every,omitempty"`         // day|week|2weeks|month, empty: always run
	Verbose      bool      `yaml:"verbose,omitempty"`
	Log          string    `yaml:"log,omitempty"`           // stderr|stdout|discard|path
	ZpoolBinary  string    `yaml:"zpool_binary,omitempty"`  // path or name, default zpool
	RecordPath   string    `yaml:"record_path,omitempty"`   // last execution timestamp file
	StartTimeout Duration  `yaml:"start_timeout,omitempty"` // scrub start confirmation budget
	Telegram     *Telegram `yaml:"telegram,omitempty"`
	Schedule     *Schedule `yaml:"schedule,omitempty"`
}

// Telegram notification channel settings.
type Telegram struct {
	Token   string   `yaml:"token"`
	ChatIDs []string `yaml:"chat_ids"`
}

// Schedule configures the resident watch mode. When Cron is empty, watch
// derives its period from Config.Every.
type Schedule struct {
	Cron string `yaml:"cron,omitempty"` // standard 5-field expression or @macro
}

func DefaultConfig() Config {
	return Config{
		Log:          LogStderr,
		ZpoolBinary:  "zpool",
		StartTimeout: Duration(10 * time.Second),
	}
}

// LoadConfig decodes YAML from r on top of the defaults and validates the
// result.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Every != "" {
		if _, err := ParseInterval(c.Every); err != nil {
			return fmt.Errorf("config every: %w", err)
		}
	}
	if c.StartTimeout < 0 {
		return fmt.Errorf("config start_timeout: must not be negative")
	}
	if c.Telegram != nil {
		if c.Telegram.Token == "" {
			return fmt.Errorf("config telegram: token is required")
		}
		if len(c.Telegram.ChatIDs) == 0 {
			return fmt.Errorf("config telegram: at least one chat id is required")
		}
	}
	return nil
}
