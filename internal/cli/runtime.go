package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/tabkeeper/internal/app"
	"github.com/harun/tabkeeper/internal/config"
	"github.com/harun/tabkeeper/internal/logger"
	"github.com/harun/tabkeeper/internal/observability"
	"github.com/harun/tabkeeper/internal/tracing"
	"github.com/harun/tabkeeper/pkg/browser"
	"github.com/harun/tabkeeper/pkg/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// tabSession is a connected browser window.
type tabSession interface {
	app.TabDriver
	Close() error
}

// connectTabs attaches to or launches the browser. Tests replace it.
var connectTabs = func(ctx context.Context, cfg browser.Config) (tabSession, error) {
	host, err := browser.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return host, nil
}

var errDetached = errors.New("no browser attached")

// detachedTabs stands in for the browser in commands that never touch tabs.
type detachedTabs struct{}

func (detachedTabs) ListVisibleTabs(ctx context.Context) ([]session.Tab, error) {
	return nil, errDetached
}

func (detachedTabs) ActiveTab(ctx context.Context) (session.Tab, error) {
	return session.Tab{}, errDetached
}

func (detachedTabs) CloseAllExcept(ctx context.Context, keep session.Tab) error {
	return errDetached
}

func (detachedTabs) CloseTab(ctx context.Context, tab session.Tab) error {
	return errDetached
}

func (detachedTabs) OpenTab(ctx context.Context, url string) (session.Tab, error) {
	return session.Tab{}, errDetached
}

func (detachedTabs) Close() error { return nil }

// browserMode says how a command reaches the browser.
type browserMode int

const (
	// detached commands never touch tabs.
	detached browserMode = iota
	// attachOnly commands exit while the user keeps browsing, so they must
	// not own the browser: browser.launch is ignored.
	attachOnly
	// attachOrLaunch honours browser.launch; used by watch, which stays up.
	attachOrLaunch
)

// runtime is everything a command needs: configuration, logging, the
// browser and the app on top of it.
type runtime struct {
	cfg    *config.Config
	loader *config.Loader
	logger *logger.Logger
	tabs   tabSession
	app    *app.App
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *config.Loader, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if controlURL != "" {
		cfg.Browser.ControlURL = controlURL
	}
	if cmd.Flags().Changed("options") {
		cfg.SessionOptions = splitOptions(sessionOptions)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

func splitOptions(value string) []string {
	var out []string
	for _, token := range strings.Split(value, ",") {
		if token = strings.TrimSpace(token); token != "" {
			out = append(out, token)
		}
	}
	return out
}

// openRuntime loads configuration, sets up logging and tracing, connects to
// the browser per mode and builds the app. Callers must Close the result.
func openRuntime(cmd *cobra.Command, mode browserMode) (*runtime, error) {
	cfg, loader, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt := &runtime{cfg: cfg, loader: loader, logger: lg}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		}
	}
	if cfg.HistoryFile != "" {
		if err := observability.InitAuditLogger(cfg.HistoryFile); err != nil {
			log.Warn().Err(err).Str("path", cfg.HistoryFile).Msg("Failed to open session history")
		}
	}

	var tabs tabSession = detachedTabs{}
	if mode != detached {
		browserCfg := cfg.Browser
		if mode == attachOnly {
			browserCfg.Launch = false
		}
		tabs, err = connectTabs(ctx, browserCfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.tabs = tabs
	}

	a, err := app.New(cfg, tabs, app.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.app = a

	log.Debug().
		Str("session_directory", a.Store().Directory()).
		Str("control_url", cfg.Browser.ControlURL).
		Msg("Runtime ready")
	return rt, nil
}

// Close releases the browser and flushes logs and traces.
func (r *runtime) Close() {
	if r.tabs != nil {
		if err := r.tabs.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close browser")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush traces")
	}
	if err := observability.CloseAuditLogger(); err != nil {
		log.Warn().Err(err).Msg("Failed to close session history")
	}
	if r.logger != nil {
		_ = r.logger.Close()
	}
}
