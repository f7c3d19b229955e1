package autosave

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long the watcher waits after the last write before
// calling back.
const DefaultDebounce = 500 * time.Millisecond

// ConfigWatcher calls onChange when a file is written or replaced.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	onChange func() error
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	stopChan chan struct{}
	done     chan struct{}
}

// WatchConfig starts watching path. The parent directory is watched so that
// editors replacing the file by rename are noticed.
func WatchConfig(path string, debounce time.Duration, onChange func() error) (*ConfigWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &ConfigWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		watcher:  watcher,
		logger:   log.With().Str("component", "config_watcher").Logger(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *ConfigWatcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Config watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *ConfigWatcher) fire() {
	select {
	case <-w.stopChan:
		return
	default:
	}

	if err := w.onChange(); err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("Failed to reload config")
		return
	}
	w.logger.Info().Str("path", w.path).Msg("Config reloaded")
}

// Close stops the watcher. Pending callbacks are dropped.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.stopChan:
		w.mu.Unlock()
		return nil
	default:
	}
	close(w.stopChan)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}
