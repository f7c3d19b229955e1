package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harun/tabkeeper/internal/observability"
	"github.com/harun/tabkeeper/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultExtension is appended to generated session file names.
	DefaultExtension = ".session"

	// DirectoryMode is used when the session directory has to be created.
	DirectoryMode os.FileMode = 0750

	// maxLoadDepth bounds session scripts that load other sessions.
	maxLoadDepth = 16

	tracerName = "tabkeeper.session"
)

// ErrCodeTabHost is reported when the tab collaborator fails.
const ErrCodeTabHost = "TAB_HOST_ERROR"

// TabHost enumerates and closes the tabs of the active window.
type TabHost interface {
	ListVisibleTabs(ctx context.Context) ([]Tab, error)
	ActiveTab(ctx context.Context) (Tab, error)
	CloseAllExcept(ctx context.Context, keep Tab) error
	CloseTab(ctx context.Context, tab Tab) error
}

// Executor replays a session script as host commands.
type Executor interface {
	Execute(ctx context.Context, path string) error
}

// StoreConfig holds the collaborators of a Store.
type StoreConfig struct {
	Directory string
	Codec     *Codec
	Tabs      TabHost
	FS        FileSystem
	Executor  Executor

	// Environment returns the working directory and runtime path captured
	// by the curdir and runtime options. SessionDir is filled in by the Store.
	Environment func() Env

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Store resolves session file paths and drives save, append and load.
type Store struct {
	opMu sync.Mutex

	mu      sync.RWMutex
	dir     string
	current string

	codec    *Codec
	tabs     TabHost
	fs       FileSystem
	executor Executor
	env      func() Env
	now      func() time.Time
	logger   zerolog.Logger
}

type loadDepthKey struct{}

// NewStore creates a Store and prepares its session directory.
func NewStore(cfg StoreConfig) (*Store, error) {
	observability.EnsureRegistered()

	if cfg.Tabs == nil {
		return nil, fmt.Errorf("tab host is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("script executor is required")
	}

	s := &Store{
		codec:    cfg.Codec,
		tabs:     cfg.Tabs,
		fs:       cfg.FS,
		executor: cfg.Executor,
		env:      cfg.Environment,
		now:      cfg.Now,
		logger:   log.Logger,
	}
	if s.codec == nil {
		s.codec = NewCodec(nil)
	}
	if s.fs == nil {
		s.fs = NewOSFileSystem()
	}
	if s.env == nil {
		s.env = func() Env {
			wd, _ := os.Getwd()
			return Env{WorkingDir: wd}
		}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.Logger != nil {
		s.logger = *cfg.Logger
	}
	s.logger = s.logger.With().Str("component", "session-store").Logger()

	if _, err := s.SetDirectory(cfg.Directory); err != nil {
		return nil, err
	}

	return s, nil
}

// Codec returns the codec used for encoding.
func (s *Store) Codec() *Codec {
	return s.codec
}

// Directory returns the session directory. It always ends with exactly one
// path separator.
func (s *Store) Directory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// CurrentFile returns the last session file saved or loaded.
func (s *Store) CurrentFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetCurrentFile overrides the current session file.
func (s *Store) SetCurrentFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = path
}

// SetDirectory validates dir, creating it when absent, and makes it the
// session directory. The normalized value is returned.
func (s *Store) SetDirectory(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", newError(ErrCodeInvalidDirectory, dir, errors.New("empty path"))
	}

	dir = ExpandHome(dir)
	if s.fs.Exists(dir) {
		if !s.fs.IsDirectory(dir) {
			return "", newError(ErrCodeInvalidDirectory, dir, nil)
		}
	} else if err := s.fs.CreateDirectory(dir, DirectoryMode); err != nil {
		return "", newError(ErrCodeDirectoryCreateFailed, dir, err)
	}

	dir = withTrailingSeparator(dir)

	s.mu.Lock()
	s.dir = dir
	s.mu.Unlock()

	s.logger.Debug().Str("dir", dir).Msg("Session directory set")
	return dir, nil
}

// ResolvePath maps a user argument to a session file path. An empty
// argument yields a timestamped name in the session directory; arguments
// starting with "/" or "~/" are used as given (with ~ expanded); anything
// else is taken relative to the session directory.
func (s *Store) ResolvePath(raw string) string {
	dir := s.Directory()

	switch {
	case raw == "":
		return dir + strconv.FormatInt(s.now().UnixMilli(), 10) + DefaultExtension
	case strings.HasPrefix(raw, "/"):
		return raw
	case strings.HasPrefix(raw, "~/"):
		return ExpandHome(raw)
	default:
		return dir + raw
	}
}

// Save writes the current window as a session script. Without overwrite
// the file is created exclusively and an existing target fails with
// ErrAlreadyExists.
func (s *Store) Save(ctx context.Context, raw string, overwrite bool, opts Options) (path string, err error) {
	unlock := s.serialize(ctx)
	defer unlock()

	path = s.ResolvePath(raw)
	ctx, span, logger, done := s.begin(ctx, "save", path,
		attribute.Bool("overwrite", overwrite),
		attribute.String("options", opts.String()),
	)
	defer func() { done(err) }()

	if s.fs.IsDirectory(path) {
		return path, newError(ErrCodeIsDirectory, path, nil)
	}
	exists := s.fs.Exists(path)
	if exists && !overwrite {
		return path, newError(ErrCodeAlreadyExists, path, nil)
	}
	if exists && !s.fs.IsWritable(path) {
		return path, newError(ErrCodeWrite, path, os.ErrPermission)
	}

	tabs, err := s.tabs.ListVisibleTabs(ctx)
	if err != nil {
		return path, newError(ErrCodeTabHost, path, err)
	}

	env := s.env()
	env.SessionDir = s.Directory()
	script := s.codec.Encode(tabs, opts, env)

	mode := WriteCreate
	if overwrite {
		mode = WriteTruncate
	}
	if err := s.fs.WriteFile(path, script.Bytes(), mode); err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, newError(ErrCodeAlreadyExists, path, nil)
		}
		return path, newError(ErrCodeWrite, path, err)
	}

	written := script.Count(DirectiveOpenTab)
	span.SetAttributes(attribute.Int("tabs", written))
	observability.RecordTabsWritten("save", written)

	s.SetCurrentFile(path)
	logger.Info().
		Int("tabs", written).
		Int("skipped", len(tabs)-written).
		Str("mode", mode.String()).
		Msg("Saved session")

	return path, nil
}

// Append adds the active tab, or every visible tab when allTabs is set, to
// an existing session file. Tabs are not filtered. opts is accepted for
// symmetry with Save and does not affect the fragment.
func (s *Store) Append(ctx context.Context, raw string, allTabs bool, opts Options) (path string, err error) {
	unlock := s.serialize(ctx)
	defer unlock()

	if raw == "" {
		return "", newError(ErrCodeInvalidArgument, "", nil)
	}

	path = s.ResolvePath(raw)
	ctx, span, logger, done := s.begin(ctx, "append", path,
		attribute.Bool("all_tabs", allTabs),
		attribute.String("options", opts.String()),
	)
	defer func() { done(err) }()

	if !s.fs.Exists(path) {
		return path, newError(ErrCodeNotFound, path, nil)
	}
	if s.fs.IsDirectory(path) {
		return path, newError(ErrCodeIsDirectory, path, nil)
	}
	if !s.fs.IsWritable(path) {
		return path, newError(ErrCodeNotWritable, path, nil)
	}

	var tabs []Tab
	if allTabs {
		tabs, err = s.tabs.ListVisibleTabs(ctx)
	} else {
		var tab Tab
		tab, err = s.tabs.ActiveTab(ctx)
		tabs = []Tab{tab}
	}
	if err != nil {
		return path, newError(ErrCodeTabHost, path, err)
	}

	fragment := s.codec.AppendTabs(tabs)
	if len(fragment) == 0 {
		logger.Debug().Msg("No tabs to append")
		return path, nil
	}

	if err := s.fs.WriteFile(path, fragment.Bytes(), WriteAppend); err != nil {
		return path, newError(ErrCodeWrite, path, err)
	}

	span.SetAttributes(attribute.Int("tabs", len(fragment)))
	observability.RecordTabsWritten("append", len(fragment))
	logger.Info().Int("tabs", len(fragment)).Msg("Appended tab(s) to session file")

	return path, nil
}

// Load replays a session script. With replaceAll the window is reduced to
// the active tab before replay and that placeholder is closed afterwards,
// provided the replay succeeded and opened something to take its place.
func (s *Store) Load(ctx context.Context, raw string, replaceAll bool) (path string, err error) {
	unlock := s.serialize(ctx)
	defer unlock()

	if raw == "" {
		return "", newError(ErrCodeInvalidArgument, "", nil)
	}

	path = s.ResolvePath(raw)
	ctx, _, logger, done := s.begin(ctx, "load", path, attribute.Bool("replace_all", replaceAll))
	defer func() { done(err) }()

	if !s.fs.Exists(path) {
		return path, newError(ErrCodeNotFound, path, nil)
	}
	if s.fs.IsDirectory(path) {
		return path, newError(ErrCodeIsDirectory, path, nil)
	}
	if !s.fs.IsReadable(path) {
		return path, newError(ErrCodeNotReadable, path, nil)
	}

	depth, _ := ctx.Value(loadDepthKey{}).(int)
	if depth >= maxLoadDepth {
		return path, newError(ErrCodeExecution, path, fmt.Errorf("session loads nested deeper than %d", maxLoadDepth))
	}

	var placeholder Tab
	if replaceAll {
		placeholder, err = s.tabs.ActiveTab(ctx)
		if err != nil {
			return path, newError(ErrCodeTabHost, path, err)
		}
		if err := s.tabs.CloseAllExcept(ctx, placeholder); err != nil {
			return path, newError(ErrCodeTabHost, path, err)
		}
	}

	execCtx := context.WithValue(ctx, loadDepthKey{}, depth+1)
	if err := s.executor.Execute(execCtx, path); err != nil {
		return path, newError(ErrCodeExecution, path, err)
	}

	s.SetCurrentFile(path)

	if replaceAll {
		remaining, err := s.tabs.ListVisibleTabs(ctx)
		if err != nil {
			return path, newError(ErrCodeTabHost, path, err)
		}
		if len(remaining) > 1 {
			if err := s.tabs.CloseTab(ctx, placeholder); err != nil {
				return path, newError(ErrCodeTabHost, path, err)
			}
		} else {
			logger.Debug().Msg("Session opened no tabs, keeping placeholder")
		}
	}

	logger.Info().Bool("replace_all", replaceAll).Msg("Loaded session")
	return path, nil
}

// serialize keeps one top-level operation in flight. Operations started by
// a script that is being loaded run under the outer load.
func (s *Store) serialize(ctx context.Context) func() {
	if depth, _ := ctx.Value(loadDepthKey{}).(int); depth > 0 {
		return func() {}
	}
	s.opMu.Lock()
	return s.opMu.Unlock
}

// begin opens the span and logger for an operation and returns the
// function that records its outcome.
func (s *Store) begin(ctx context.Context, op, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span, zerolog.Logger, func(error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetOperationID(ctx) == "" {
		ctx = tracing.NewOperationContext(ctx, "")
	}
	ctx = tracing.WithSessionFile(ctx, path)

	attrs = append(attrs, attribute.String("session_file", path))
	ctx, span := tracing.StartSpan(ctx, tracerName, "session."+op, attrs...)
	logger := tracing.LoggerFromContext(ctx, s.logger).With().Str("op", op).Logger()
	start := s.now()

	done := func(err error) {
		defer span.End()

		code := ""
		if err != nil {
			code = ErrCodeExecution
			var serr *Error
			if errors.As(err, &serr) {
				code = serr.Code
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn().Err(err).Str("code", code).Msg("Session operation failed")
		}
		elapsed := s.now().Sub(start)
		observability.RecordSessionOperation(op, elapsed, code)
		observability.RecordSessionAudit(ctx, tracing.GetSource(ctx), op, path, code, map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
		})
	}

	return ctx, span, logger, done
}

func withTrailingSeparator(dir string) string {
	trimmed := strings.TrimRight(dir, "/")
	return trimmed + "/"
}
