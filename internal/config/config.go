// Package config provides YAML-based configuration loading for Waggle.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Waggle configuration, loaded from waggle.yaml.
type Config struct {
	Swarm  string       `yaml:"swarm"` // instance name, used as default scope
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Sweep  SweepConfig  `yaml:"sweep"`
	Notify NotifyConfig `yaml:"notify"`
}

// StoreConfig selects and configures the durable store backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" (default) or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	User     string `yaml:"user"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SweepConfig drives the background maintenance loop.
type SweepConfig struct {
	Schedule          string `yaml:"schedule"`         // 5-field cron expression
	StaleAfterS       int    `yaml:"stale_after_s"`    // busy agent considered stale
	TaskRetentionD    int    `yaml:"task_retention_d"` // terminal task retention
	MessageRetentionD int    `yaml:"message_retention_d"`
	MemoryRetentionD  int    `yaml:"memory_retention_d"`
}

// NotifyConfig configures optional escalation notifiers.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack notifier credentials.
type SlackConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord notifier credentials.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
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
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "waggle.db"
	}
	if c.Store.User == "" {
		c.Store.User = "root"
	}
	if c.Store.Host == "" {
		c.Store.Host = "127.0.0.1"
	}
	if c.Store.Port == 0 {
		c.Store.Port = 3306
	}
	if c.Store.Database == "" && c.Swarm != "" {
		c.Store.Database = "waggle_" + c.Swarm
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = "*/5 * * * *"
	}
	if c.Sweep.StaleAfterS == 0 {
		c.Sweep.StaleAfterS = 300
	}
	if c.Sweep.TaskRetentionD == 0 {
		c.Sweep.TaskRetentionD = 30
	}
	if c.Sweep.MessageRetentionD == 0 {
		c.Sweep.MessageRetentionD = 7
	}
	if c.Sweep.MemoryRetentionD == 0 {
		c.Sweep.MemoryRetentionD = 90
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Swarm == "" {
		errs = append(errs, "swarm is required")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for sqlite")
		}
	case "mysql":
		if c.Store.Database == "" {
			errs = append(errs, "store.database is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not sqlite or mysql", c.Store.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
