package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Complete lists file name candidates for a session argument. Prefixes
// starting with "/" or "~/" complete against the filesystem; anything else
// completes inside the session directory. Directories get a trailing "/".
func (s *Store) Complete(prefix string) ([]string, error) {
	var dir, base, display string

	switch {
	case strings.HasPrefix(prefix, "/") || strings.HasPrefix(prefix, "~/"):
		idx := strings.LastIndex(prefix, "/")
		display = prefix[:idx+1]
		base = prefix[idx+1:]
		dir = ExpandHome(display)
	default:
		idx := strings.LastIndex(prefix, "/")
		if idx >= 0 {
			display = prefix[:idx+1]
			base = prefix[idx+1:]
		} else {
			base = prefix
		}
		dir = filepath.Join(s.Directory(), display)
	}

	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	candidates := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		// Hidden entries (including atomic-write temp files) only show up
		// when asked for explicitly.
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		candidate := display + name
		if entry.IsDir() {
			candidate += "/"
		}
		candidates = append(candidates, candidate)
	}

	sort.Strings(candidates)
	return candidates, nil
}
