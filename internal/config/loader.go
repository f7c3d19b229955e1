package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
)

// EnvPrefix prefixes environment overrides, e.g. TABKEEPER_SESSION_DIRECTORY
// or TABKEEPER_BROWSER_CONTROL_URL.
const EnvPrefix = "TABKEEPER"

// Loader handles configuration loading
type Loader struct {
	configPath string
	schema     gojsonschema.JSONLoader
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		schema:     gojsonschema.NewStringLoader(Schema),
	}
}

// Load reads the config file, if any, applies environment overrides and
// fills derived defaults. A missing file yields the defaults.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return nil, fmt.Errorf("failed to determine config path")
	}

	v := l.newViper(configPath)

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := l.validateSchema(data); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults and environment only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.RuntimePath, "tabkeeper.log")
	}

	return cfg, nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("session_directory", cfg.SessionDirectory)
	v.Set("session_options", cfg.SessionOptions)
	v.Set("runtime_path", cfg.RuntimePath)
	v.Set("history_file", cfg.HistoryFile)
	v.Set("metrics_addr", cfg.MetricsAddr)
	v.Set("browser", browserDocument(cfg))
	v.Set("logging", cfg.Logging)
	v.Set("autosave", cfg.Autosave)
	v.Set("tracing", cfg.Tracing)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tabkeeper", "tabkeeper.json")
}

func (l *Loader) newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only covers keys viper already knows about.
	defaults := DefaultConfig()
	v.SetDefault("session_directory", defaults.SessionDirectory)
	v.SetDefault("session_options", defaults.SessionOptions)
	v.SetDefault("runtime_path", defaults.RuntimePath)
	v.SetDefault("history_file", defaults.HistoryFile)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("browser.control_url", defaults.Browser.ControlURL)
	v.SetDefault("browser.chrome_path", defaults.Browser.ChromePath)
	v.SetDefault("browser.launch", defaults.Browser.Launch)
	v.SetDefault("browser.headless", defaults.Browser.Headless)
	v.SetDefault("browser.cdp_port", defaults.Browser.CDPPort)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("autosave.enabled", defaults.Autosave.Enabled)
	v.SetDefault("autosave.schedule", defaults.Autosave.Schedule)
	v.SetDefault("autosave.file", defaults.Autosave.File)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", defaults.Tracing.Endpoint)

	return v
}

// validateSchema validates raw config JSON against Schema.
func (l *Loader) validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(l.schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			msgs = append(msgs, resultErr.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// browserDocument writes the timeout as a duration string so the file stays
// readable and round-trips through the schema.
func browserDocument(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"control_url":   cfg.Browser.ControlURL,
		"launch":        cfg.Browser.Launch,
		"chrome_path":   cfg.Browser.ChromePath,
		"headless":      cfg.Browser.Headless,
		"no_sandbox":    cfg.Browser.NoSandbox,
		"user_data_dir": cfg.Browser.UserDataDir,
		"cdp_port":      cfg.Browser.CDPPort,
		"timeout":       cfg.Browser.Timeout.String(),
		"security":      cfg.Browser.Security,
	}
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
