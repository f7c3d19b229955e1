package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("TABKEEPER_RUNTIME_PATH", tmpDir)

		cfg, err := NewLoader(filepath.Join(tmpDir, "nonexistent.json")).Load()
		require.NoError(t, err)

		assert.Equal(t, tmpDir, cfg.RuntimePath)
		assert.Equal(t, filepath.Join(tmpDir, "sessions"), cfg.SessionDirectory)
		assert.Equal(t, filepath.Join(tmpDir, "tabkeeper.log"), cfg.Logging.File)
		assert.Equal(t, []string{"curdir", "help", "tabs"}, cfg.SessionOptions)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "tabkeeper.json")

		testConfig := `{
			"session_directory": "` + filepath.Join(tmpDir, "s") + `",
			"session_options": ["sesdir", "tabs", "options"],
			"runtime_path": "` + tmpDir + `",
			"browser": {
				"control_url": "http://127.0.0.1:9222",
				"timeout": "3s",
				"security": {"blocked_domains": ["*.ads.example"]}
			},
			"logging": {"level": "debug"},
			"autosave": {"enabled": true, "schedule": "@every 5m", "keep": 3}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0600))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(tmpDir, "s"), cfg.SessionDirectory)
		assert.Equal(t, []string{"sesdir", "tabs", "options"}, cfg.SessionOptions)
		assert.Equal(t, "http://127.0.0.1:9222", cfg.Browser.ControlURL)
		assert.Equal(t, 3*time.Second, cfg.Browser.Timeout)
		assert.Equal(t, 9222, cfg.Browser.CDPPort)
		assert.Equal(t, []string{"*.ads.example"}, cfg.Browser.Security.BlockedDomains)
		assert.True(t, cfg.Browser.Security.AllowLocalhostUrls)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.Logging.Redaction)
		assert.True(t, cfg.Autosave.Enabled)
		assert.Equal(t, "@every 5m", cfg.Autosave.Schedule)
		assert.Equal(t, 3, cfg.Autosave.Keep)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "tabkeeper.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"runtime_path": "`+tmpDir+`"}`), 0600))

		t.Setenv("TABKEEPER_BROWSER_CONTROL_URL", "ws://127.0.0.1:9333/devtools/browser/abc")
		t.Setenv("TABKEEPER_LOGGING_LEVEL", "warn")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, "ws://127.0.0.1:9333/devtools/browser/abc", cfg.Browser.ControlURL)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("schema rejects unknown keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "tabkeeper.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"session_dir": "/tmp"}`), 0600))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "session_dir")
	})

	t.Run("schema rejects wrong types", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "tabkeeper.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"session_options": "tabs"}`), 0600))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.json")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0600))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "tabkeeper.json")
	loader := NewLoader(configPath)

	cfg := DefaultConfig()
	cfg.RuntimePath = tmpDir
	cfg.SessionOptions = []string{"blank", "tabs"}
	cfg.Browser.Timeout = 7 * time.Second
	cfg.Autosave.File = filepath.Join(tmpDir, "last.session")

	require.NoError(t, loader.Save(cfg))

	_, err := os.Stat(configPath)
	require.NoError(t, err)

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"blank", "tabs"}, loaded.SessionOptions)
	assert.Equal(t, 7*time.Second, loaded.Browser.Timeout)
	assert.Equal(t, filepath.Join(tmpDir, "last.session"), loaded.Autosave.File)
	assert.Equal(t, filepath.Join(tmpDir, "sessions"), loaded.SessionDirectory)
}

func TestLoadConvenience(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TABKEEPER_RUNTIME_PATH", tmpDir)

	cfg, err := Load(filepath.Join(tmpDir, "missing.json"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
