package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the persistent seagent configuration stored as
// config.toml in the .seagent/ directory.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Chat    ChatConfig    `toml:"chat"`
	Storage StorageConfig `toml:"storage"`
	Events  EventsConfig  `toml:"events"`
}

// ClientConfig holds settings for talking to the SeAgent backend.
type ClientConfig struct {
	// APITarget is the backend API base URL, including the /api prefix.
	APITarget string `toml:"api_target,omitempty"`

	// Timeout bounds non-streaming requests, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`
}

// RequestTimeout parses Timeout.
func (c ClientConfig) RequestTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid client.timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid client.timeout %q: must be positive", c.Timeout)
	}
	return d, nil
}

// ChatConfig holds defaults for the interactive chat command.
type ChatConfig struct {
	// Collection is the knowledge base collection attached to new messages.
	Collection string `toml:"collection,omitempty"`

	// Render selects how a completed reply is re-rendered: "markdown" or "plain".
	Render string `toml:"render,omitempty"`
}

// StorageConfig holds local transcript storage settings.
type StorageConfig struct {
	// Driver is "sqlite", "postgres", "memory", or "none".
	Driver string `toml:"driver,omitempty"`

	// SQLitePath overrides the transcript database location. Empty means
	// transcripts.db inside the .seagent/ directory.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// PostgresDSN is the connection string used by the postgres driver.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig holds settings for publishing recorded turns.
type EventsConfig struct {
	// Driver is "kafka" or "none".
	Driver string `toml:"driver,omitempty"`

	// KafkaBrokers is a comma-separated list of host:port broker addresses.
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`

	// KafkaTopic receives one message per recorded turn.
	KafkaTopic string `toml:"kafka_topic,omitempty"`
}

// Brokers splits KafkaBrokers into addresses, skipping blanks.
func (e EventsConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if _, err := (ClientConfig{Timeout: v}).RequestTimeout(); err != nil {
				return err
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"chat.collection": {
		get: func(c *Config) string { return c.Chat.Collection },
		set: func(c *Config, v string) error { c.Chat.Collection = v; return nil },
	},
	"chat.render": {
		get: func(c *Config) string { return c.Chat.Render },
		set: func(c *Config, v string) error {
			switch v {
			case RenderMarkdown, RenderPlain:
				c.Chat.Render = v
				return nil
			default:
				return fmt.Errorf("invalid value for chat.render: %q (expected %s or %s)", v, RenderMarkdown, RenderPlain)
			}
		},
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case StorageSQLite, StoragePostgres, StorageMemory, StorageNone:
				c.Storage.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.driver: %q (expected one of %s, %s, %s, %s)",
					v, StorageSQLite, StoragePostgres, StorageMemory, StorageNone)
			}
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"events.driver": {
		get: func(c *Config) string { return c.Events.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case EventsKafka, EventsNone:
				c.Events.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for events.driver: %q (expected %s or %s)", v, EventsKafka, EventsNone)
			}
		},
	},
	"events.kafka_brokers": {
		get: func(c *Config) string { return c.Events.KafkaBrokers },
		set: func(c *Config, v string) error { c.Events.KafkaBrokers = v; return nil },
	},
	"events.kafka_topic": {
		get: func(c *Config) string { return c.Events.KafkaTopic },
		set: func(c *Config, v string) error { c.Events.KafkaTopic = v; return nil },
	},
}
