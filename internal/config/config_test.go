package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
notify:
  discord:
    enabled: true
users:
  - username: spez
    label: Admin
    communities: [GoLang, Programming]
  - username: ghost_account
    mode: availability
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(cfg.Users))
	}
	if cfg.Users[0].Mode != "activity" {
		t.Fatalf("expected default mode activity, got %q", cfg.Users[0].Mode)
	}
	if cfg.Users[0].Communities[0] != "golang" || cfg.Users[0].Communities[1] != "programming" {
		t.Fatalf("communities not lowercased: %v", cfg.Users[0].Communities)
	}
	if cfg.Users[1].Mode != "availability" {
		t.Fatalf("expected availability mode, got %q", cfg.Users[1].Mode)
	}
	if cfg.Reddit.PageLimit != 25 {
		t.Fatalf("expected default page limit 25, got %d", cfg.Reddit.PageLimit)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"users":[{"username":"spez"}]}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Users[0].Username != "spez" {
		t.Fatalf("unexpected user: %+v", cfg.Users[0])
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.json", `{"users":[{"username":"spez","labell":"typo"}]}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadRejectsEmptyWatchList(t *testing.T) {
	path := writeConfig(t, "config.json", `{"users":[]}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty users")
	}
}

func TestLoadRejectsDuplicateUsernames(t *testing.T) {
	path := writeConfig(t, "config.json", `{"users":[{"username":"spez"},{"username":"Spez"}]}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for duplicate username")
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, "config.json", `{"users":[{"username":"spez","mode":"karma"}]}`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "mode") {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "config.json", `{"reddit":{"request_timeout":"fast"},"users":[{"username":"spez"}]}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("REDDIT_USERNAME", "bot")
	t.Setenv("REDDIT_PASSWORD", "hunter2")
	t.Setenv("DISCORD_WEBHOOK_URL", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("LOG_DISCORD_WEBHOOK_URL", "")

	cfg := &Config{}
	creds, err := LoadCredentials(cfg)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.RedditUsername != "bot" {
		t.Fatalf("unexpected creds: %+v", creds)
	}

	cfg.Notify.Discord.Enabled = true
	if _, err := LoadCredentials(cfg); err == nil {
		t.Fatalf("expected error when discord enabled without webhook URL")
	}

	cfg.Notify.Discord.Enabled = false
	cfg.Notify.Telegram.Enabled = true
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	if _, err := LoadCredentials(cfg); err == nil {
		t.Fatalf("expected error when telegram enabled without chat_id")
	}

	t.Setenv("REDDIT_PASSWORD", "")
	cfg.Notify.Telegram.Enabled = false
	if _, err := LoadCredentials(cfg); err == nil {
		t.Fatalf("expected error for missing reddit password")
	}
}
