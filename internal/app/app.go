// Package app wires the session store to the host settings, the command
// table and a tab driver.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/harun/tabkeeper/internal/config"
	"github.com/harun/tabkeeper/internal/tracing"
	"github.com/harun/tabkeeper/pkg/command"
	"github.com/harun/tabkeeper/pkg/session"
	"github.com/harun/tabkeeper/pkg/settings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setting names.
const (
	OptSessionDir     = "sessiondir"
	OptSessionFile    = "sessionfile"
	OptSessionOptions = "sessionoptions"
	OptRuntimePath    = "runtimepath"
)

// TabDriver is the browser as the app sees it: the store's tab host plus the
// ability to open tabs for tabopen.
type TabDriver interface {
	session.TabHost
	OpenTab(ctx context.Context, url string) (session.Tab, error)
}

// Option customizes New.
type Option func(*App)

// WithOutput sets where command messages are printed.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithWorkingDir sets the initial working directory captured by curdir.
func WithWorkingDir(dir string) Option {
	return func(a *App) { a.wd = dir }
}

// WithFileSystem replaces the store's filesystem.
func WithFileSystem(fs session.FileSystem) Option {
	return func(a *App) { a.fs = fs }
}

// WithStoreConfig lets callers adjust the store configuration before the
// store is built.
func WithStoreConfig(fn func(*session.StoreConfig)) Option {
	return func(a *App) { a.storeHook = fn }
}

// App is a running tabkeeper host.
type App struct {
	settings *settings.Registry
	commands *command.Registry
	runner   *command.Runner
	store    *session.Store
	tabs     TabDriver

	fs        session.FileSystem
	storeHook func(*session.StoreConfig)

	mu  sync.RWMutex
	wd  string
	out io.Writer

	logger zerolog.Logger
}

// New builds the settings registry, command table and session store for cfg.
func New(cfg *config.Config, tabs TabDriver, opts ...Option) (*App, error) {
	if tabs == nil {
		return nil, fmt.Errorf("tab driver is required")
	}

	a := &App{
		settings: settings.NewRegistry(),
		commands: command.NewRegistry(),
		tabs:     tabs,
		out:      io.Discard,
		logger:   log.With().Str("component", "app").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.wd == "" {
		a.wd, _ = os.Getwd()
	}

	a.runner = command.NewRunner(a.commands)

	storeCfg := session.StoreConfig{
		Directory:   cfg.SessionDirectory,
		Codec:       session.NewCodec(exporter{a.settings, a.commands}),
		Tabs:        tabs,
		FS:          a.fs,
		Executor:    a.runner,
		Environment: a.environment,
	}
	if a.storeHook != nil {
		a.storeHook(&storeCfg)
	}

	store, err := session.NewStore(storeCfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	if err := a.defineSettings(cfg); err != nil {
		return nil, err
	}
	if err := a.registerCommands(); err != nil {
		return nil, err
	}

	return a, nil
}

// Store returns the session store.
func (a *App) Store() *session.Store { return a.store }

// Settings returns the settings registry.
func (a *App) Settings() *settings.Registry { return a.settings }

// Commands returns the command table.
func (a *App) Commands() *command.Registry { return a.commands }

// WorkingDir returns the directory cd last changed to.
func (a *App) WorkingDir() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wd
}

// SessionOptions returns the current sessionoptions value.
func (a *App) SessionOptions() session.Options {
	value, _ := a.settings.Get(OptSessionOptions)
	return session.ParseOptions(value)
}

// Exec runs one command line. source tags the operation in logs and the
// session journal.
func (a *App) Exec(ctx context.Context, source, line string) error {
	if tracing.GetSource(ctx) == "" {
		ctx = tracing.NewOperationContext(ctx, source)
	}
	return a.commands.Execute(ctx, line)
}

// Save writes the current window to raw and reports the path.
func (a *App) Save(ctx context.Context, raw string, overwrite bool) (string, error) {
	path, err := a.store.Save(ctx, raw, overwrite, a.SessionOptions())
	if err != nil {
		return "", err
	}
	a.syncSessionFile()
	a.printf("Saved session to %q\n", path)
	return path, nil
}

// Append adds the active tab, or all tabs, to raw.
func (a *App) Append(ctx context.Context, raw string, allTabs bool) (string, error) {
	path, err := a.store.Append(ctx, raw, allTabs, a.SessionOptions())
	if err != nil {
		return "", err
	}
	a.printf("Appended tab(s) to session file %q\n", path)
	return path, nil
}

// Load replays raw, closing the other tabs first when replaceAll is set.
func (a *App) Load(ctx context.Context, raw string, replaceAll bool) (string, error) {
	path, err := a.store.Load(ctx, raw, replaceAll)
	if err != nil {
		return "", err
	}
	a.syncSessionFile()
	a.printf("Loaded session from %q\n", path)
	return path, nil
}

func (a *App) environment() session.Env {
	rtp, _ := a.settings.Get(OptRuntimePath)
	return session.Env{
		WorkingDir:  a.WorkingDir(),
		RuntimePath: rtp,
	}
}

func (a *App) syncSessionFile() {
	if _, err := a.settings.Set(OptSessionFile, a.store.CurrentFile()); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to update sessionfile")
	}
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) defineSettings(cfg *config.Config) error {
	defs := []settings.Option{
		{
			Names:       []string{OptSessionDir, "sesdir"},
			Type:        settings.TypeString,
			Default:     a.store.Directory(),
			Description: "Default directory for saving sessions",
			Setter: func(value string) (string, error) {
				return a.store.SetDirectory(value)
			},
		},
		{
			Names:       []string{OptSessionFile, "sesfile"},
			Type:        settings.TypeString,
			Description: "Current session file",
			Setter: func(value string) (string, error) {
				a.store.SetCurrentFile(value)
				return value, nil
			},
			NoExport: true,
		},
		{
			Names:       []string{OptSessionOptions, "sesop"},
			Type:        settings.TypeStringList,
			Default:     strings.Join(cfg.SessionOptions, ","),
			Description: "Set of items to save with :sessionsave",
		},
		{
			Names:       []string{OptRuntimePath, "rtp"},
			Type:        settings.TypeString,
			Default:     cfg.RuntimePath,
			Description: "Directory recorded by the runtime session option",
			Setter: func(value string) (string, error) {
				return session.ExpandHome(value), nil
			},
		},
	}

	for _, def := range defs {
		if err := a.settings.Define(def); err != nil {
			return err
		}
	}
	return nil
}

// exporter serializes settings followed by user commands for the options
// session token.
type exporter struct {
	settings *settings.Registry
	commands *command.Registry
}

func (e exporter) ListSerializableCommands() []string {
	lines := e.settings.ListSerializableCommands()
	return append(lines, e.commands.ListSerializableCommands()...)
}
