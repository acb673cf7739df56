// Package config loads the run configuration: a YAML or JSON file for the
// watch list and tuning knobs, plus credentials from the environment.
// Everything is read once at startup; a one-shot process never reloads.
package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`
	Reddit  RedditConfig  `json:"reddit"`
	Notify  NotifyConfig  `json:"notify"`
	Watch   WatchConfig   `json:"watch"`
	Users   []UserConfig  `json:"users"`
}

// UserConfig is one watch target.
//
// Mode values: "activity" (default; posts + comments) or "availability"
// (username availability transitions).
type UserConfig struct {
	Username    string   `json:"username"`
	Label       string   `json:"label,omitempty"`
	Communities []string `json:"communities,omitempty"`
	Mode        string   `json:"mode,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Discord LoggingDiscord `json:"discord"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingDiscord mirrors warnings and errors to a second Discord webhook.
// The webhook URL itself comes from LOG_DISCORD_WEBHOOK_URL.
type LoggingDiscord struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the watch-state persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./snoowatch_state" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// RedditConfig tunes the API client.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - page_limit: 25 (API default listing size; max 100)
//   - request_timeout: "15s"
//   - rate_per_sec: 1
type RedditConfig struct {
	UserAgent      string `json:"user_agent,omitempty"`
	PageLimit      int    `json:"page_limit,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
}

// NotifyConfig controls the notification channels.
//
// Discord is the primary channel and needs DISCORD_WEBHOOK_URL.
// Telegram is optional and needs TELEGRAM_BOT_TOKEN plus a chat id.
type NotifyConfig struct {
	RatePerSec int                  `json:"rate_per_sec,omitempty"`
	Discord    DiscordNotifyConfig  `json:"discord"`
	Telegram   TelegramNotifyConfig `json:"telegram"`
}

type DiscordNotifyConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramNotifyConfig struct {
	Enabled bool  `json:"enabled"`
	ChatID  int64 `json:"chat_id,omitempty"`
}

// WatchConfig controls marker semantics for the cycle.
//
// HoldMarkerOnNotifyFailure keeps a target's marker unchanged when any of
// its notifications fail, so the items are retried next run (and may then
// be delivered twice). The default advances the marker regardless, trading
// a possible silent miss on a persistent outage for no duplicate spam.
type WatchConfig struct {
	HoldMarkerOnNotifyFailure bool `json:"hold_marker_on_notify_failure,omitempty"`
	DryRun                    bool `json:"dry_run,omitempty"`
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Discord.RatePerSec <= 0 {
		c.Logging.Discord.RatePerSec = 1
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./snoowatch_state"
	}
	if c.Reddit.PageLimit <= 0 {
		c.Reddit.PageLimit = 25
	}
	if c.Reddit.RatePerSec <= 0 {
		c.Reddit.RatePerSec = 1
	}
	if c.Notify.RatePerSec <= 0 {
		c.Notify.RatePerSec = 1
	}
}

func (c *Config) validate() error {
	if len(c.Users) == 0 {
		return fmt.Errorf("users: at least one watch target is required")
	}
	seen := map[string]bool{}
	for i := range c.Users {
		u := &c.Users[i]
		u.Username = strings.TrimSpace(u.Username)
		if u.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}
		key := strings.ToLower(u.Username)
		if seen[key] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		seen[key] = true

		switch strings.ToLower(strings.TrimSpace(u.Mode)) {
		case "", "activity":
			u.Mode = "activity"
		case "availability":
			u.Mode = "availability"
		default:
			return fmt.Errorf("users[%d]: unknown mode %q", i, u.Mode)
		}

		// Standardize case of community names for comparisons.
		for j, comm := range u.Communities {
			u.Communities[j] = strings.ToLower(strings.TrimSpace(comm))
		}
	}

	if c.Reddit.PageLimit > 100 {
		return fmt.Errorf("reddit.page_limit: must be <= 100")
	}
	if _, err := ParseDurationField("reddit.request_timeout", c.Reddit.RequestTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}
