package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete monitor configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Feed       FeedConfig       `yaml:"feed"`
	Push       PushConfig       `yaml:"push"`
	Archive    ArchiveConfig    `yaml:"archive"`
	StateCache StateCacheConfig `yaml:"state_cache"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	UI         UIConfig         `yaml:"ui"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains general instance settings
type ServerConfig struct {
	Name   string `yaml:"name"`
	NodeID string `yaml:"node_id"`
}

// FeedConfig contains the metadata-service polling settings
type FeedConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	PollSeconds    int    `yaml:"poll_seconds"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PushConfig contains MQTT push-update settings
type PushConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Broker        string `yaml:"broker"`
	Port          int    `yaml:"port"`
	Topic         string `yaml:"topic"`
	Name          string `yaml:"name"`
	DedupeSeconds int    `yaml:"dedupe_seconds"`
}

// ArchiveConfig contains SQLite event-archive settings
type ArchiveConfig struct {
	Enabled            bool   `yaml:"enabled"`
	DBPath             string `yaml:"db_path"`
	QueueSize          int    `yaml:"queue_size"`
	BatchSize          int    `yaml:"batch_size"`
	BatchIntervalMS    int    `yaml:"batch_interval_ms"`
	BusyTimeoutMS      int    `yaml:"busy_timeout_ms"`
	RetentionDays      int    `yaml:"retention_days"`
	PreflightTimeoutMS int    `yaml:"preflight_timeout_ms"`
}

// StateCacheConfig contains the pebble warm-start cache settings
type StateCacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	CacheMB int    `yaml:"cache_mb"`
}

// RefreshConfig tunes the adaptive poll cadence. Push-event volume moves the
// poller between quiet/normal/busy intervals.
type RefreshConfig struct {
	Enabled             bool `yaml:"enabled"`
	QuietPollSeconds    int  `yaml:"quiet_poll_seconds"`
	NormalPollSeconds   int  `yaml:"normal_poll_seconds"`
	BusyPollSeconds     int  `yaml:"busy_poll_seconds"`
	BusyEventsPerMinute int  `yaml:"busy_events_per_minute"`
	QuietIdleMinutes    int  `yaml:"quiet_idle_minutes"`
}

// UIConfig contains dashboard settings
type UIConfig struct {
	Enabled     bool              `yaml:"enabled"`
	TargetFPS   int               `yaml:"target_fps"`
	EnableMouse bool              `yaml:"enable_mouse"`
	Pages       []string          `yaml:"pages"`
	EventBuffer EventBufferConfig `yaml:"event_buffer"`
	Keybindings KeybindingsConfig `yaml:"keybindings"`
}

// EventBufferConfig bounds the dashboard event pane
type EventBufferConfig struct {
	MaxEvents        int  `yaml:"max_events"`
	MaxBytesMB       int  `yaml:"max_bytes_mb"`
	MaxMessageBytes  int  `yaml:"max_message_bytes"`
	EvictOnByteLimit bool `yaml:"evict_on_byte_limit"`
	LogDrops         bool `yaml:"log_drops"`
}

// KeybindingsConfig toggles alternative single-letter page bindings
type KeybindingsConfig struct {
	UseAlternatives bool `yaml:"use_alternatives"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load loads configuration from a YAML file and applies defaults
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Feed.Enabled = true
	cfg.UI.Enabled = true
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "assetwatch"
	}
	if c.Feed.PollSeconds <= 0 {
		c.Feed.PollSeconds = 15
	}
	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = 10
	}
	if c.Push.Port <= 0 {
		c.Push.Port = 1883
	}
	if c.Push.DedupeSeconds <= 0 {
		c.Push.DedupeSeconds = 30
	}
	if c.Archive.DBPath == "" {
		c.Archive.DBPath = "data/archive/events.db"
	}
	if c.Archive.QueueSize <= 0 {
		c.Archive.QueueSize = 10000
	}
	if c.Archive.BatchSize <= 0 {
		c.Archive.BatchSize = 200
	}
	if c.Archive.BatchIntervalMS <= 0 {
		c.Archive.BatchIntervalMS = 1000
	}
	if c.Archive.BusyTimeoutMS <= 0 {
		c.Archive.BusyTimeoutMS = 5000
	}
	if c.Archive.RetentionDays <= 0 {
		c.Archive.RetentionDays = 30
	}
	if c.Archive.PreflightTimeoutMS <= 0 {
		c.Archive.PreflightTimeoutMS = 2000
	}
	if c.StateCache.Dir == "" {
		c.StateCache.Dir = "data/statecache"
	}
	if c.StateCache.CacheMB <= 0 {
		c.StateCache.CacheMB = 8
	}
	if c.Refresh.QuietPollSeconds <= 0 {
		c.Refresh.QuietPollSeconds = 60
	}
	if c.Refresh.NormalPollSeconds <= 0 {
		c.Refresh.NormalPollSeconds = c.Feed.PollSeconds
	}
	if c.Refresh.BusyPollSeconds <= 0 {
		c.Refresh.BusyPollSeconds = 5
	}
	if c.Refresh.BusyEventsPerMinute <= 0 {
		c.Refresh.BusyEventsPerMinute = 20
	}
	if c.Refresh.QuietIdleMinutes <= 0 {
		c.Refresh.QuietIdleMinutes = 10
	}
	if c.UI.TargetFPS <= 0 {
		c.UI.TargetFPS = 30
	}
	if len(c.UI.Pages) == 0 {
		c.UI.Pages = []string{"assets", "events", "overview"}
	}
	if c.UI.EventBuffer.MaxEvents <= 0 {
		c.UI.EventBuffer.MaxEvents = 2000
	}
	if c.UI.EventBuffer.MaxBytesMB <= 0 {
		c.UI.EventBuffer.MaxBytesMB = 4
	}
	if c.UI.EventBuffer.MaxMessageBytes <= 0 {
		c.UI.EventBuffer.MaxMessageBytes = 2048
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "data/logs"
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}
}

// Print displays the configuration
func (c *Config) Print() {
	fmt.Printf("Server: %s (%s)\n", c.Server.Name, c.Server.NodeID)
	if c.Feed.Enabled {
		fmt.Printf("Feed: %s (poll %ds)\n", c.Feed.URL, c.Feed.PollSeconds)
	}
	if c.Push.Enabled {
		fmt.Printf("Push: %s:%d (topic: %s)\n", c.Push.Broker, c.Push.Port, c.Push.Topic)
	}
	if c.Archive.Enabled {
		fmt.Printf("Archive: %s (retention %dd)\n", c.Archive.DBPath, c.Archive.RetentionDays)
	}
	if c.StateCache.Enabled {
		fmt.Printf("State cache: %s\n", c.StateCache.Dir)
	}
	if c.UI.Enabled {
		fmt.Printf("UI: pages %s\n", strings.Join(c.UI.Pages, ", "))
	}
}
