package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/audio"
	"github.com/simoncinid/hostgpt-sub000/internal/config"
	"github.com/simoncinid/hostgpt-sub000/internal/db"
	"github.com/simoncinid/hostgpt-sub000/internal/notify"
	"github.com/simoncinid/hostgpt-sub000/internal/session"
	"github.com/simoncinid/hostgpt-sub000/internal/store"
)

// buildEngine wires a session engine from the config file: backend client,
// persistence backend, optional recorder and notifiers.
func buildEngine(configPath string, onEvent func(session.Event)) (*session.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	client, err := api.NewHTTPClient(api.HTTPClientOpts{
		BaseURL:    cfg.BaseURL,
		PropertyID: cfg.PropertyID,
	})
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	var recorder audio.Recorder
	if cfg.Audio.Enabled {
		recorder = audio.NewExecRecorder(audio.ExecRecorderOpts{
			Formats: preferFormats(cfg.Audio.Binary),
		})
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return nil, nil, err
	}

	engine, err := session.NewEngine(session.EngineOpts{
		Store:        st,
		Client:       client,
		Recorder:     recorder,
		Notifier:     notifier,
		PollInterval: cfg.Suspend.PollInterval(),
		OnEvent:      onEvent,
	})
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

// openStore opens the configured persistence backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		gormDB, err := db.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(gormDB); err != nil {
			return nil, err
		}
		return store.NewGormStore(gormDB, cfg.PropertyID)
	case "mysql":
		gormDB, err := db.OpenMySQL(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(gormDB); err != nil {
			return nil, err
		}
		return store.NewGormStore(gormDB, cfg.PropertyID)
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.Redis})
		return store.NewRedisStore(rdb, cfg.PropertyID)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// preferFormats moves the preferred capture binary to the front of the
// negotiation order.
func preferFormats(binary string) []audio.Format {
	if binary == "" {
		return nil
	}
	formats := make([]audio.Format, 0, len(audio.DefaultFormats))
	var rest []audio.Format
	for _, f := range audio.DefaultFormats {
		if f.Binary == binary {
			formats = append(formats, f)
		} else {
			rest = append(rest, f)
		}
	}
	return append(formats, rest...)
}

// buildNotifier assembles the configured lock alert channels.
func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	var notifiers []notify.Notifier
	if cfg.SlackWebhookURL != "" {
		n, err := notify.NewSlackNotifier(cfg.SlackWebhookURL)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.DiscordBotToken != "" {
		n, err := notify.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	switch len(notifiers) {
	case 0:
		return nil, nil
	case 1:
		return notifiers[0], nil
	default:
		return notify.Multi(notifiers), nil
	}
}
