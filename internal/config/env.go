package config

import (
	"fmt"
	"os"
	"strings"
)

// Credentials are read from the environment (optionally via a .env file
// loaded by main) so secrets stay out of the config file.
type Credentials struct {
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string

	DiscordWebhookURL    string
	LogDiscordWebhookURL string
	TelegramBotToken     string
}

// LoadCredentials pulls credentials from the environment and checks that
// every enabled surface has what it needs. Reddit credentials are always
// required; channel secrets only when that channel is enabled.
func LoadCredentials(cfg *Config) (Credentials, error) {
	creds := Credentials{
		RedditClientID:     strings.TrimSpace(os.Getenv("REDDIT_CLIENT_ID")),
		RedditClientSecret: strings.TrimSpace(os.Getenv("REDDIT_CLIENT_SECRET")),
		RedditUsername:     strings.TrimSpace(os.Getenv("REDDIT_USERNAME")),
		RedditPassword:     os.Getenv("REDDIT_PASSWORD"),

		DiscordWebhookURL:    strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
		LogDiscordWebhookURL: strings.TrimSpace(os.Getenv("LOG_DISCORD_WEBHOOK_URL")),
		TelegramBotToken:     strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
	}

	for _, req := range []struct {
		name, value string
	}{
		{"REDDIT_CLIENT_ID", creds.RedditClientID},
		{"REDDIT_CLIENT_SECRET", creds.RedditClientSecret},
		{"REDDIT_USERNAME", creds.RedditUsername},
		{"REDDIT_PASSWORD", creds.RedditPassword},
	} {
		if req.value == "" {
			return Credentials{}, fmt.Errorf("%s is not set", req.name)
		}
	}

	if cfg.Notify.Discord.Enabled && creds.DiscordWebhookURL == "" {
		return Credentials{}, fmt.Errorf("notify.discord is enabled but DISCORD_WEBHOOK_URL is not set")
	}
	if cfg.Notify.Telegram.Enabled {
		if creds.TelegramBotToken == "" {
			return Credentials{}, fmt.Errorf("notify.telegram is enabled but TELEGRAM_BOT_TOKEN is not set")
		}
		if cfg.Notify.Telegram.ChatID == 0 {
			return Credentials{}, fmt.Errorf("notify.telegram.chat_id is required")
		}
	}
	if cfg.Logging.Discord.Enabled && creds.LogDiscordWebhookURL == "" {
		return Credentials{}, fmt.Errorf("logging.discord is enabled but LOG_DISCORD_WEBHOOK_URL is not set")
	}
	return creds, nil
}
