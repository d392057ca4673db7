// Package config provides YAML-based configuration loading for HostGPT.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level HostGPT configuration, loaded from config.yaml.
type Config struct {
	PropertyID string        `yaml:"property_id"`
	BaseURL    string        `yaml:"base_url"`
	Store      StoreConfig   `yaml:"store"`
	Suspend    SuspendConfig `yaml:"suspend"`
	Audio      AudioConfig   `yaml:"audio"`
	Notify     NotifyConfig  `yaml:"notify"`
	Serve      ServeConfig   `yaml:"serve"`
}

// StoreConfig selects where session state is persisted. Backend is one of
// "sqlite", "mysql", or "redis".
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`  // sqlite file path
	DSN     string `yaml:"dsn"`   // mysql DSN
	Redis   string `yaml:"redis"` // redis address, host:port
}

// SuspendConfig tunes the moderation lock poll.
type SuspendConfig struct {
	PollSeconds int `yaml:"poll_seconds"`
}

// PollInterval returns the poll cadence as a duration.
func (s SuspendConfig) PollInterval() time.Duration {
	return time.Duration(s.PollSeconds) * time.Second
}

// AudioConfig tunes voice message capture.
type AudioConfig struct {
	Enabled bool   `yaml:"enabled"`
	Binary  string `yaml:"binary"` // preferred capture binary, tried first
}

// NotifyConfig configures lock transition alerts. Either or both channels
// may be set; unset channels are skipped.
type NotifyConfig struct {
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
	DiscordBotToken  string `yaml:"discord_bot_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// ServeConfig configures the local widget bridge server.
type ServeConfig struct {
	Addr        string `yaml:"addr"`
	RefreshCron string `yaml:"refresh_cron"` // chatbot info refresh schedule
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.hostgpt.it"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" && c.PropertyID != "" {
		c.Store.Path = "hostgpt_" + c.PropertyID + ".db"
	}
	if c.Store.Backend == "redis" && c.Store.Redis == "" {
		c.Store.Redis = "127.0.0.1:6379"
	}
	if c.Suspend.PollSeconds == 0 {
		c.Suspend.PollSeconds = 10
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8090"
	}
	if c.Serve.RefreshCron == "" {
		c.Serve.RefreshCron = "@every 1h"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.PropertyID == "" {
		errs = append(errs, "property_id is required")
	}
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the sqlite backend")
		}
	case "mysql":
		if c.Store.DSN == "" {
			errs = append(errs, "store.dsn is required for the mysql backend")
		}
	case "redis":
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q is not one of sqlite, mysql, redis", c.Store.Backend))
	}
	if c.Suspend.PollSeconds < 0 {
		errs = append(errs, "suspend.poll_seconds must not be negative")
	}
	if (c.Notify.DiscordBotToken == "") != (c.Notify.DiscordChannelID == "") {
		errs = append(errs, "notify.discord_bot_token and notify.discord_channel_id must be set together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
