package config

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/harun/tabkeeper/internal/logger"
	"github.com/harun/tabkeeper/pkg/browser"
	"github.com/harun/tabkeeper/pkg/session"
)

// Config represents the tabkeeper configuration file.
type Config struct {
	// SessionDirectory is where relative session names resolve.
	// Defaults to <runtime_path>/sessions.
	SessionDirectory string `json:"session_directory" mapstructure:"session_directory"`

	// SessionOptions is the default sessionoptions value.
	SessionOptions []string `json:"session_options" mapstructure:"session_options"`

	// RuntimePath is written by the runtime option and holds logs and state.
	RuntimePath string `json:"runtime_path" mapstructure:"runtime_path"`

	// HistoryFile receives one JSON line per session operation. Empty
	// disables the journal.
	HistoryFile string `json:"history_file,omitempty" mapstructure:"history_file"`

	// MetricsAddr is the listen address of the /metrics endpoint in watch mode.
	MetricsAddr string `json:"metrics_addr,omitempty" mapstructure:"metrics_addr"`

	Browser  browser.Config `json:"browser" mapstructure:"browser"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Autosave AutosaveConfig `json:"autosave" mapstructure:"autosave"`
	Tracing  TracingConfig  `json:"tracing" mapstructure:"tracing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
}

// AutosaveConfig controls periodic saves in watch mode.
type AutosaveConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@every 10m".
	Schedule string `json:"schedule" mapstructure:"schedule"`

	// File is overwritten on every run. Empty writes timestamped
	// autosave-<millis>.session files that are pruned by Keep and MaxAge.
	File string `json:"file,omitempty" mapstructure:"file"`

	Keep   int `json:"keep" mapstructure:"keep"`
	MaxAge int `json:"max_age" mapstructure:"max_age"` // days; 0 keeps everything
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint    string `json:"endpoint,omitempty" mapstructure:"endpoint"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		SessionOptions: session.DefaultOptions().Tokens(),
		RuntimePath:    "~/.tabkeeper",
		MetricsAddr:    "127.0.0.1:9464",
		Browser:        browser.DefaultConfig(),
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   10,
			MaxAge:    14,
			Compress:  true,
			Redaction: true,
			Pretty:    true,
		},
		Autosave: AutosaveConfig{
			Enabled:  false,
			Schedule: "@every 10m",
			Keep:     10,
			MaxAge:   30,
		},
		Tracing: TracingConfig{
			ServiceName: "tabkeeper",
		},
	}
}

// ApplyDefaults fills derived paths and expands "~/" prefixes.
func (c *Config) ApplyDefaults() {
	if c.RuntimePath == "" {
		c.RuntimePath = "~/.tabkeeper"
	}
	c.RuntimePath = session.ExpandHome(c.RuntimePath)

	if c.SessionDirectory == "" {
		c.SessionDirectory = filepath.Join(c.RuntimePath, "sessions")
	}
	c.SessionDirectory = session.ExpandHome(c.SessionDirectory)

	if c.Logging.File != "" {
		c.Logging.File = session.ExpandHome(c.Logging.File)
	}
	if c.HistoryFile != "" {
		c.HistoryFile = session.ExpandHome(c.HistoryFile)
	}
	if c.Autosave.File != "" {
		c.Autosave.File = session.ExpandHome(c.Autosave.File)
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "tabkeeper"
	}
}

// Options returns SessionOptions as a session.Options set.
func (c *Config) Options() session.Options {
	return session.NewOptions(c.SessionOptions...)
}

// LoggerConfig converts the logging section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:     c.Logging.Level,
		File:      c.Logging.File,
		Console:   true,
		Pretty:    c.Logging.Pretty,
		Redaction: c.Logging.Redaction,
		MaxSizeMB: c.Logging.MaxSize,
		MaxAge:    c.Logging.MaxAge,
		Compress:  c.Logging.Compress,
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
