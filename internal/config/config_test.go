package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, []string{"curdir", "help", "tabs"}, cfg.SessionOptions)
	assert.Equal(t, "~/.tabkeeper", cfg.RuntimePath)
	assert.Empty(t, cfg.SessionDirectory)
	assert.Equal(t, 9222, cfg.Browser.CDPPort)
	assert.Equal(t, 10*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Autosave.Enabled)
	assert.Equal(t, "@every 10m", cfg.Autosave.Schedule)
	assert.Equal(t, "tabkeeper", cfg.Tracing.ServiceName)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults(t *testing.T) {
	t.Run("derives session directory", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RuntimePath = "/srv/tabkeeper"
		cfg.ApplyDefaults()

		assert.Equal(t, filepath.Join("/srv/tabkeeper", "sessions"), cfg.SessionDirectory)
	})

	t.Run("expands home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}

		cfg := DefaultConfig()
		cfg.SessionDirectory = "~/sessions"
		cfg.HistoryFile = "~/.tabkeeper/history.jsonl"
		cfg.ApplyDefaults()

		assert.Equal(t, filepath.Join(home, ".tabkeeper"), cfg.RuntimePath)
		assert.Equal(t, filepath.Join(home, "sessions"), cfg.SessionDirectory)
		assert.Equal(t, filepath.Join(home, ".tabkeeper", "history.jsonl"), cfg.HistoryFile)
	})

	t.Run("keeps explicit directory", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RuntimePath = "/srv/tabkeeper"
		cfg.SessionDirectory = "/data/sessions"
		cfg.ApplyDefaults()

		assert.Equal(t, "/data/sessions", cfg.SessionDirectory)
	})
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionOptions = []string{"sesdir", "tabs"}

	opts := cfg.Options()
	assert.True(t, opts.Has("sesdir"))
	assert.True(t, opts.Has("tabs"))
	assert.False(t, opts.Has("curdir"))
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.File = "/var/log/tabkeeper.log"
	cfg.Logging.Level = "debug"

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "/var/log/tabkeeper.log", lc.File)
	assert.True(t, lc.Console)
	assert.Equal(t, cfg.Logging.MaxSize, lc.MaxSizeMB)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Autosave.Enabled = true
		cfg.Autosave.Schedule = "*/15 * * * *"

		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown session option", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SessionOptions = []string{"tabs", "cursor"}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cursor")
	})

	t.Run("bad schedule only checked when enabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Autosave.Schedule = "every now and then"
		assert.NoError(t, cfg.Validate())

		cfg.Autosave.Enabled = true
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "autosave schedule")
	})

	t.Run("tracing without endpoint", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Tracing.Enabled = true

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "tracing.endpoint")
	})

	t.Run("cdp port ignored when attaching", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Browser.CDPPort = 80
		assert.Error(t, cfg.Validate())

		cfg.Browser.ControlURL = "ws://127.0.0.1:9222/devtools/browser/x"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("collects every error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "loud"
		cfg.MetricsAddr = "nonsense"
		cfg.Autosave.Keep = -1

		errs := NewValidator().ValidateConfig(cfg)
		assert.Len(t, errs, 3)
	})
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()

	assert.Contains(t, s, `"session_options"`)
	assert.Contains(t, s, `"cdp_port": 9222`)
}
