package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures all tunable settings for the FieldVault MCP server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Browser  BrowserConfig  `yaml:"browser"`
	MCP      MCPConfig      `yaml:"mcp"`
	Recorder RecorderConfig `yaml:"recorder"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// StoreConfig configures the durable entry collection.
type StoreConfig struct {
	// Path to the SQLite database holding stored entries.
	Path string `yaml:"path"`
	// Watch enables a filesystem watcher on the database so edits made by
	// external writers also invalidate the in-process cache.
	Watch *bool `yaml:"watch"`
}

// BrowserConfig configures how we attach to Chrome for the tab feed.
type BrowserConfig struct {
	// Control endpoint for Rod (e.g., ws://localhost:9222). Required when
	// the tab feed is enabled.
	DebuggerURL string `yaml:"debugger_url"`
	// AutoStart controls whether the server attaches to Chrome at startup.
	AutoStart bool `yaml:"auto_start"`
	// Default timeout when attaching to an existing target (e.g., "10s").
	DefaultAttachTimeout string `yaml:"default_attach_timeout"`
	// Interval (ms) at which buffered in-page field interactions are
	// drained. Field events are already deduplicated by selector, so this
	// only bounds delivery latency.
	FieldPollMs int `yaml:"field_poll_ms"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// RecorderConfig controls the resolution decision trace.
type RecorderConfig struct {
	Enable bool   `yaml:"enable"`
	Dir    string `yaml:"dir"`
}

// DefaultConfig provides reasonable defaults for local use.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "fieldvault-mcp",
			Version: "0.1.0",
			LogFile: "fieldvault-mcp.log",
		},
		Store: StoreConfig{
			Path: "data/entries.db",
		},
		Browser: BrowserConfig{
			AutoStart:            false,
			DefaultAttachTimeout: "10s",
			FieldPollMs:          250,
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Recorder: RecorderConfig{
			Enable: true,
			Dir:    "data/traces",
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate ensures required fields exist so the server can start
// deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Browser.AutoStart && c.Browser.DebuggerURL == "" {
		return errors.New("browser.debugger_url must be provided when auto_start is enabled")
	}
	return nil
}

// AttachTimeout returns the parsed attach timeout with a sane default.
func (b BrowserConfig) AttachTimeout() time.Duration {
	if b.DefaultAttachTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(b.DefaultAttachTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// FieldPollInterval returns the field drain interval with a sane default.
func (b BrowserConfig) FieldPollInterval() time.Duration {
	if b.FieldPollMs <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(b.FieldPollMs) * time.Millisecond
}

// WatchEnabled reports whether the store watcher should run (default: true).
func (s StoreConfig) WatchEnabled() bool {
	if s.Watch == nil {
		return true
	}
	return *s.Watch
}
