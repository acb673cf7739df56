package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"snoowatch/internal/config"
	"snoowatch/internal/notify"
	"snoowatch/internal/reddit"
	"snoowatch/internal/runner"
	"snoowatch/internal/storage"
	"snoowatch/internal/watch"
	logx "snoowatch/pkg/logx"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		cfgPath string
		dryRun  bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&dryRun, "dry-run", false, "run the cycle without sending or committing markers")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Optional .env next to the binary; real deployments set the
	// environment via cron/systemd.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	creds, err := config.LoadCredentials(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}

	logsvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Discord: logx.DiscordConfig{
			Enabled:    cfg.Logging.Discord.Enabled,
			WebhookURL: creds.LogDiscordWebhookURL,
			MinLevel:   cfg.Logging.Discord.MinLevel,
			RatePerSec: cfg.Logging.Discord.RatePerSec,
		},
	})
	defer logsvc.Close()

	busyTimeout, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log)
	if err != nil {
		log.Error("failed to open state store", logx.Err(err))
		return 1
	}
	defer store.Close()

	requestTimeout, _ := config.ParseDurationField("reddit.request_timeout", cfg.Reddit.RequestTimeout)
	client := reddit.New(reddit.Config{
		ClientID:       creds.RedditClientID,
		ClientSecret:   creds.RedditClientSecret,
		Username:       creds.RedditUsername,
		Password:       creds.RedditPassword,
		UserAgent:      cfg.Reddit.UserAgent,
		PageLimit:      cfg.Reddit.PageLimit,
		RequestTimeout: requestTimeout,
		RatePerSec:     cfg.Reddit.RatePerSec,
	}, log)

	if err := client.Authenticate(ctx); err != nil {
		log.Error("reddit authentication failed", logx.Err(err))
		return 1
	}

	var channels []notify.Notifier
	if cfg.Notify.Discord.Enabled {
		channels = append(channels, notify.NewDiscord(creds.DiscordWebhookURL))
	}
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(creds.TelegramBotToken, cfg.Notify.Telegram.ChatID)
		if err != nil {
			log.Error("telegram channel setup failed", logx.Err(err))
			return 1
		}
		channels = append(channels, tg)
	}
	if len(channels) == 0 {
		log.Warn("no notification channels enabled; new activity will only be logged")
	}

	dryRun = dryRun || cfg.Watch.DryRun
	dispatcher := notify.NewDispatcher(channels, cfg.Notify.RatePerSec, dryRun, log)

	targets := make([]watch.Target, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		targets = append(targets, watch.Target{
			Username:    u.Username,
			Label:       u.Label,
			Communities: u.Communities,
			Mode:        watch.Mode(u.Mode),
		})
	}

	r := runner.New(client, store, dispatcher, runner.Options{
		HoldMarkerOnNotifyFailure: cfg.Watch.HoldMarkerOnNotifyFailure,
		DryRun:                    dryRun,
	}, log)

	// Per-target failures are logged inside the cycle; a completed cycle
	// exits 0 regardless.
	r.Cycle(ctx, targets)
	return 0
}
