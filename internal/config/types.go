// Package config loads and watches the bot configuration file
// (JSON or YAML, decoded strictly).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Sheets   SheetsConfig   `json:"sheets"`
	Digest   DigestConfig   `json:"digest"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via the
	// BUNKBOT_TOKEN environment variable (.env supported).
	Token string `json:"token,omitempty"`

	// ControlChatID is the shared chat used as the worker control
	// channel. Zero disables the scrape relay (the rest of the bot
	// keeps working).
	ControlChatID int64 `json:"control_chat_id,omitempty"`

	// PollTimeout is a Go duration string (default "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type SheetsConfig struct {
	URL string `json:"url"`

	// Timeout is a Go duration string (default "20s").
	Timeout string `json:"timeout,omitempty"`
}

type DigestConfig struct {
	Enabled bool `json:"enabled"`

	// At is the daily wall-clock trigger, "HH:MM".
	At string `json:"at,omitempty"`

	// Timezone is an IANA name; host local time if empty.
	Timezone string `json:"timezone,omitempty"`

	// RatePerSec paces fan-out sends (default 3).
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// StorageConfig controls subscription persistence.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./alerts.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// Validate rejects configs the process cannot start with. A missing
// control_chat_id is deliberately NOT an error here: it only disables
// the relay feature (the app logs that loudly at startup).
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (file or BUNKBOT_TOKEN)")
	}
	if strings.TrimSpace(c.Sheets.URL) == "" {
		return errors.New("sheets.url is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("sheets.timeout", c.Sheets.Timeout); err != nil {
		return err
	}
	if c.Digest.Enabled {
		at := strings.TrimSpace(c.Digest.At)
		if at == "" {
			return errors.New("digest.at is required when digest.enabled")
		}
		if err := checkHHMM(at); err != nil {
			return fmt.Errorf("digest.at: %w", err)
		}
		if tz := strings.TrimSpace(c.Digest.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("digest.timezone: %w", err)
			}
		}
	}
	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

func checkHHMM(s string) error {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return fmt.Errorf("invalid HH:MM %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("invalid HH:MM %q", s)
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
