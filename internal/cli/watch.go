package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harun/tabkeeper/internal/app"
	"github.com/harun/tabkeeper/internal/autosave"
	"github.com/harun/tabkeeper/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	watchAutosave bool
	watchSchedule string
	watchSaveNow  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay attached to the browser and autosave",
	Long: `Stay attached to the browser, autosave the window on a cron schedule,
reload the config file when it changes and serve Prometheus metrics.
Stop it with Ctrl-C or "tabkeeper stop".`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchAutosave, "autosave", false, "enable autosave even if the config disables it")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "autosave cron schedule, overrides the config")
	watchCmd.Flags().BoolVar(&watchSaveNow, "save-now", false, "autosave once at startup")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd, attachOrLaunch)
	if err != nil {
		return err
	}
	defer rt.Close()

	pidFile := getPIDFilePath(rt.cfg)
	if isRunning(pidFile) {
		return fmt.Errorf("watch mode is already running (PID file: %s)", pidFile)
	}
	if err := writePIDFile(pidFile); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer os.Remove(pidFile)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchLoop(ctx, rt, watchOptions{
		autosave: watchAutosave || rt.cfg.Autosave.Enabled,
		schedule: watchSchedule,
		saveNow:  watchSaveNow,
	})
}

type watchOptions struct {
	autosave bool
	schedule string
	saveNow  bool
}

// watchLoop runs autosave, config reload and the metrics server until ctx is
// done. A final autosave is written on shutdown.
func watchLoop(ctx context.Context, rt *runtime, opts watchOptions) error {
	logger := log.With().Str("component", "watch").Logger()

	var scheduler *autosave.Scheduler
	if opts.autosave {
		cfg := rt.cfg.Autosave
		if opts.schedule != "" {
			cfg.Schedule = opts.schedule
		}
		s, err := autosave.NewScheduler(rt.app, rt.app.Store().Directory, cfg)
		if err != nil {
			return err
		}
		if opts.saveNow {
			if _, err := s.RunOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("Initial autosave failed")
			}
		}
		if err := s.Start(); err != nil {
			return err
		}
		scheduler = s
	}

	configPath := rt.loader.GetConfigPath()
	watcher, err := autosave.WatchConfig(configPath, autosave.DefaultDebounce, func() error {
		return reloadConfig(ctx, rt)
	})
	if err != nil {
		logger.Warn().Err(err).Str("path", configPath).Msg("Config reload disabled")
	} else {
		defer watcher.Close()
	}

	serveErr := make(chan error, 1)
	if rt.cfg.MetricsAddr != "" {
		server, err := autosave.NewMetricsServer(rt.cfg.MetricsAddr)
		if err != nil {
			logger.Warn().Err(err).Msg("Metrics server disabled")
		} else {
			go func() { serveErr <- server.Serve(ctx) }()
		}
	}

	logger.Info().
		Bool("autosave", scheduler != nil).
		Str("config", configPath).
		Msg("Watching")

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
		<-ctx.Done()
	}

	if scheduler != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := scheduler.Stop(stopCtx); err != nil {
			logger.Warn().Err(err).Msg("Autosave did not stop cleanly")
		}
		if _, err := scheduler.RunOnce(stopCtx); err != nil {
			logger.Error().Err(err).Msg("Final autosave failed")
		}
	}

	logger.Info().Msg("Watch stopped")
	return nil
}

// reloadConfig applies the settings that can change without reconnecting:
// log level, session directory and session options.
func reloadConfig(ctx context.Context, rt *runtime) error {
	cfg, err := rt.loader.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	changed := map[string]interface{}{}
	if cfg.SessionDirectory != rt.cfg.SessionDirectory {
		if _, err := rt.app.Settings().Set(app.OptSessionDir, cfg.SessionDirectory); err != nil {
			return err
		}
		changed["session_directory"] = cfg.SessionDirectory
	}
	options := strings.Join(cfg.SessionOptions, ",")
	if options != strings.Join(rt.cfg.SessionOptions, ",") {
		if _, err := rt.app.Settings().Set(app.OptSessionOptions, options); err != nil {
			return err
		}
		changed["session_options"] = options
	}
	changed["log_level"] = cfg.Logging.Level

	rt.cfg.SessionDirectory = cfg.SessionDirectory
	rt.cfg.SessionOptions = cfg.SessionOptions
	rt.cfg.Logging.Level = cfg.Logging.Level

	observability.RecordConfigAudit(ctx, "reload", "watch", changed)
	return nil
}
