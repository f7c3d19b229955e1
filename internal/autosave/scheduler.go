// Package autosave periodically saves the browser window to a session file
// and prunes old autosaves.
package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harun/tabkeeper/internal/config"
	"github.com/harun/tabkeeper/internal/observability"
	"github.com/harun/tabkeeper/internal/tracing"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	filePrefix = "autosave-"
	fileSuffix = ".session"
)

// Saver writes the current window to a session file.
type Saver interface {
	Save(ctx context.Context, raw string, overwrite bool) (string, error)
}

// Scheduler runs autosaves on a cron schedule.
type Scheduler struct {
	saver  Saver
	cfg    config.AutosaveConfig
	dir    func() string
	cron   *cron.Cron
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler parses cfg.Schedule and prepares a scheduler that overwrites
// cfg.File when set, or writes timestamped autosaves that the saver resolves
// against the session directory. dir reports that directory at prune time,
// so a changed session directory is followed.
func NewScheduler(saver Saver, dir func() string, cfg config.AutosaveConfig) (*Scheduler, error) {
	if saver == nil {
		return nil, fmt.Errorf("saver is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("session directory is required")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid autosave schedule %q: %w", cfg.Schedule, err)
	}

	s := &Scheduler{
		saver:  saver,
		cfg:    cfg,
		dir:    dir,
		cron:   cron.New(cron.WithParser(parser)),
		now:    time.Now,
		logger: log.With().Str("component", "autosave").Logger(),
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("failed to schedule autosave: %w", err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("autosave is already running")
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.cfg.Schedule).
		Str("directory", s.dir()).
		Msg("Autosave started")
	return nil
}

// Stop halts the schedule and waits for a running save to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info().Msg("Autosave stopped")
	return nil
}

// IsRunning reports whether the schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce saves immediately and prunes old autosaves.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	ctx = tracing.NewOperationContext(ctx, "autosave")
	at := s.now()

	path, err := s.saver.Save(ctx, s.target(at), true)
	observability.RecordAutosave(at, err == nil)
	if err != nil {
		return "", err
	}

	if s.cfg.File == "" {
		if _, err := s.pruner().Prune(at); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to prune autosaves")
		}
	}
	return path, nil
}

func (s *Scheduler) tick() {
	path, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Autosave failed")
		return
	}
	s.logger.Debug().Str("path", path).Msg("Autosave written")
}

func (s *Scheduler) pruner() *Pruner {
	return NewPruner(s.dir(), s.cfg.Keep, time.Duration(s.cfg.MaxAge)*24*time.Hour)
}

// target is a bare file name unless a fixed file is configured.
func (s *Scheduler) target(at time.Time) string {
	if s.cfg.File != "" {
		return s.cfg.File
	}
	return fmt.Sprintf("%s%d%s", filePrefix, at.UnixMilli(), fileSuffix)
}
