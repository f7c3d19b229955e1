package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/harun/tabkeeper/internal/observability"
	"github.com/harun/tabkeeper/pkg/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ session.TabHost = (*Host)(nil)

// Host exposes the tabs of one browser to the session store.
type Host struct {
	backend backend
	process *ProcessManager
	policy  *URLPolicy
	logger  zerolog.Logger
	mu      sync.Mutex
}

// Connect starts or attaches to a browser per cfg and returns its tab host.
func Connect(ctx context.Context, cfg Config) (*Host, error) {
	pm := NewProcessManager(cfg)
	browser, err := pm.Connect(ctx)
	if err != nil {
		return nil, err
	}

	h := newHost(&rodBackend{browser: browser, owned: pm.Launched()}, NewURLPolicy(cfg.Security))
	h.process = pm
	return h, nil
}

func newHost(b backend, policy *URLPolicy) *Host {
	observability.EnsureRegistered()
	if policy == nil {
		policy = NewURLPolicy(SecurityConfig{AllowFileUrls: true, AllowLocalhostUrls: true})
	}
	return &Host{
		backend: b,
		policy:  policy,
		logger:  log.With().Str("component", "tab-host").Logger(),
	}
}

// ListVisibleTabs returns every page target in browser order.
func (h *Host) ListVisibleTabs(ctx context.Context) ([]session.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets, err := h.backend.Targets(ctx)
	if err != nil {
		return nil, newBrowserError(ErrCodeBrowserCrash, "Failed to list tabs: %v", err)
	}

	tabs := make([]session.Tab, 0, len(targets))
	for _, t := range targets {
		tab, err := describe(ctx, t)
		if err != nil {
			// Pages can disappear between listing and inspection.
			h.logger.Debug().Str("target_id", t.ID()).Err(err).Msg("Skipping tab")
			continue
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

// ActiveTab returns the focused page, falling back to the first one.
func (h *Host) ActiveTab(ctx context.Context) (session.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets, err := h.backend.Targets(ctx)
	if err != nil {
		return session.Tab{}, newBrowserError(ErrCodeBrowserCrash, "Failed to list tabs: %v", err)
	}
	if len(targets) == 0 {
		return session.Tab{}, newBrowserError(ErrCodeNoTabs, "Browser has no open tabs")
	}

	active := targets[0]
	for _, t := range targets {
		focused, err := t.Focused(ctx)
		if err != nil {
			continue
		}
		if focused {
			active = t
			break
		}
	}

	tab, err := describe(ctx, active)
	if err != nil {
		return session.Tab{}, newBrowserError(ErrCodeBrowserCrash, "Failed to inspect tab %s: %v", active.ID(), err)
	}
	return tab, nil
}

// CloseAllExcept closes every page but keep.
func (h *Host) CloseAllExcept(ctx context.Context, keep session.Tab) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets, err := h.backend.Targets(ctx)
	if err != nil {
		return newBrowserError(ErrCodeBrowserCrash, "Failed to list tabs: %v", err)
	}

	found := false
	closed := 0
	for _, t := range targets {
		if t.ID() == keep.ID {
			found = true
			continue
		}
		if err := t.Close(ctx); err != nil {
			observability.RecordTabsClosed(closed)
			return newBrowserError(ErrCodeBrowserCrash, "Failed to close tab %s: %v", t.ID(), err)
		}
		closed++
	}
	observability.RecordTabsClosed(closed)

	if !found {
		return newBrowserError(ErrCodeNotFound, "Tab not found: %s", keep.ID)
	}

	h.logger.Debug().Int("closed", closed).Str("kept", keep.ID).Msg("Closed other tabs")
	return nil
}

// CloseTab closes one page.
func (h *Host) CloseTab(ctx context.Context, tab session.Tab) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets, err := h.backend.Targets(ctx)
	if err != nil {
		return newBrowserError(ErrCodeBrowserCrash, "Failed to list tabs: %v", err)
	}

	for _, t := range targets {
		if t.ID() != tab.ID {
			continue
		}
		if err := t.Close(ctx); err != nil {
			return newBrowserError(ErrCodeBrowserCrash, "Failed to close tab %s: %v", t.ID(), err)
		}
		observability.RecordTabsClosed(1)
		return nil
	}

	return newBrowserError(ErrCodeNotFound, "Tab not found: %s", tab.ID)
}

// OpenTab opens url in a new page after checking it against the URL policy.
func (h *Host) OpenTab(ctx context.Context, rawURL string) (session.Tab, error) {
	target := NormalizeURL(rawURL)
	if target == "" {
		return session.Tab{}, newBrowserError(ErrCodeValidation, "URL is required")
	}
	if err := h.policy.ValidateURL(target); err != nil {
		return session.Tab{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	t, err := h.backend.Open(ctx, target)
	if err != nil {
		return session.Tab{}, newBrowserError(ErrCodeNavigation, "Failed to open %s: %v", target, err)
	}
	observability.RecordTabOpened()

	h.logger.Debug().Str("target_id", t.ID()).Str("url", target).Msg("Opened tab")
	return session.Tab{ID: t.ID(), URL: target}, nil
}

// Close disconnects from the browser, shutting it down if it was launched
// by this host.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	if err := h.backend.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if h.process != nil {
		if err := h.process.KillChrome(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func describe(ctx context.Context, t target) (session.Tab, error) {
	url, title, err := t.Info(ctx)
	if err != nil {
		return session.Tab{}, err
	}
	return session.Tab{ID: t.ID(), URL: url, Title: title}, nil
}
