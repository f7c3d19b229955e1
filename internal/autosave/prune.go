package autosave

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Pruner deletes autosave files beyond a retention count or age.
type Pruner struct {
	dir    string
	keep   int
	maxAge time.Duration
}

// NewPruner creates a pruner for autosaves in dir. keep <= 0 and maxAge <= 0
// disable the respective limit.
func NewPruner(dir string, keep int, maxAge time.Duration) *Pruner {
	return &Pruner{dir: dir, keep: keep, maxAge: maxAge}
}

type autosaveFile struct {
	path string
	at   time.Time
}

// List returns autosave files in dir, newest first. Files whose name does not
// carry a timestamp are ignored.
func (p *Pruner) List() ([]string, error) {
	files, err := p.scan()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// Prune removes autosaves beyond keep and those older than maxAge relative to
// now. It returns the number of files deleted.
func (p *Pruner) Prune(now time.Time) (int, error) {
	files, err := p.scan()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i, f := range files {
		tooMany := p.keep > 0 && i >= p.keep
		tooOld := p.maxAge > 0 && now.Sub(f.at) >= p.maxAge
		if !tooMany && !tooOld {
			continue
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			log.Warn().
				Str("path", f.path).
				Err(err).
				Msg("Failed to delete autosave")
			continue
		}
		deleted++

		log.Debug().
			Str("path", f.path).
			Dur("age", now.Sub(f.at)).
			Msg("Autosave deleted")
	}

	if deleted > 0 {
		log.Info().
			Int("deleted", deleted).
			Msg("Cleaned up old autosaves")
	}
	return deleted, nil
}

func (p *Pruner) scan() ([]autosaveFile, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list autosaves: %w", err)
	}

	var files []autosaveFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		at, ok := parseAutosaveName(entry.Name())
		if !ok {
			continue
		}
		files = append(files, autosaveFile{path: filepath.Join(p.dir, entry.Name()), at: at})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].at.After(files[j].at)
	})
	return files, nil
}

func parseAutosaveName(name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, filePrefix)
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, fileSuffix)
	if !ok {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil || millis < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
