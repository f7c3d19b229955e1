package browser

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog/log"
)

// ProcessManager starts or attaches to the browser whose tabs are managed.
type ProcessManager struct {
	config    Config
	launcher  *launcher.Launcher
	mu        sync.RWMutex
	isRunning bool
	launched  bool
}

// NewProcessManager creates a process manager for cfg.
func NewProcessManager(cfg Config) *ProcessManager {
	if cfg.CDPPort == 0 {
		cfg.CDPPort = 9222
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ProcessManager{
		config: cfg,
	}
}

// Connect attaches to the configured control URL or the local CDP port. A
// new browser is launched only when Launch is set and no control URL is.
func (pm *ProcessManager) Connect(ctx context.Context) (*rod.Browser, error) {
	if pm.config.ControlURL != "" {
		return pm.AttachToExisting(ctx)
	}
	if !pm.config.Launch {
		browser, err := pm.AttachToExisting(ctx)
		if err != nil {
			return nil, newBrowserError(ErrCodeConfiguration,
				"No browser is listening on port %d: start Chrome with --remote-debugging-port=%d or set browser.control_url (%v)",
				pm.config.CDPPort, pm.config.CDPPort, err)
		}
		return browser, nil
	}
	if err := pm.SpawnChrome(ctx); err != nil {
		return nil, err
	}
	return pm.connectCDP(ctx)
}

// SpawnChrome launches Chrome with the configured profile directory.
func (pm *ProcessManager) SpawnChrome(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.isRunning {
		return nil
	}

	if err := pm.ensureUserDataDir(); err != nil {
		return newBrowserError(ErrCodeConfiguration, "Failed to create user data directory: %v", err)
	}

	l := launcher.New().
		Context(ctx).
		Headless(pm.config.Headless).
		Leakless(false).
		RemoteDebuggingPort(pm.config.CDPPort)

	if pm.config.UserDataDir != "" {
		l = l.UserDataDir(pm.config.UserDataDir)
	}
	if pm.config.NoSandbox {
		l = l.NoSandbox(true)
	}
	if pm.config.ChromePath != "" {
		l = l.Bin(pm.config.ChromePath)
	}

	url, err := l.Launch()
	if err != nil {
		return newBrowserError(ErrCodeBrowserCrash, "Failed to launch Chrome: %v", err)
	}

	pm.launcher = l
	pm.isRunning = true
	pm.launched = true
	pm.config.ControlURL = url

	log.Info().Str("control_url", url).Int("cdp_port", pm.config.CDPPort).Msg("Browser launched")
	return nil
}

// AttachToExisting connects to a browser that is already running.
func (pm *ProcessManager) AttachToExisting(ctx context.Context) (*rod.Browser, error) {
	pm.mu.Lock()
	controlURL := pm.config.ControlURL
	if controlURL == "" {
		controlURL = strconv.Itoa(pm.config.CDPPort)
	}
	pm.mu.Unlock()

	if port, ok := localPort(controlURL); ok {
		if err := pm.waitForCDP(ctx, port); err != nil {
			return nil, err
		}
	}

	wsURL, err := launcher.ResolveURL(controlURL)
	if err != nil {
		return nil, newBrowserError(ErrCodeConfiguration, "Failed to resolve control URL %s: %v", controlURL, err)
	}

	pm.mu.Lock()
	pm.config.ControlURL = wsURL
	pm.mu.Unlock()

	browser, err := pm.connectCDP(ctx)
	if err != nil {
		return nil, err
	}

	pm.mu.Lock()
	pm.isRunning = true
	pm.mu.Unlock()

	log.Info().Str("control_url", wsURL).Msg("Attached to browser")
	return browser, nil
}

func (pm *ProcessManager) connectCDP(ctx context.Context) (*rod.Browser, error) {
	pm.mu.RLock()
	cdpURL := pm.config.ControlURL
	pm.mu.RUnlock()

	if cdpURL == "" {
		return nil, newBrowserError(ErrCodeConfiguration, "CDP URL not set")
	}

	browser := rod.New().ControlURL(cdpURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, newBrowserError(ErrCodeBrowserCrash, "Failed to connect to CDP: %v", err)
	}

	// Detach from the connect context; callers pass per-call contexts.
	return browser.Context(context.Background()), nil
}

// waitForCDP polls the local DevTools port until it accepts connections.
func (pm *ProcessManager) waitForCDP(ctx context.Context, port int) error {
	deadline := time.Now().Add(pm.config.Timeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), time.Second)
		if err == nil {
			conn.Close()
			return nil
		}

		time.Sleep(100 * time.Millisecond)
	}

	return newBrowserError(ErrCodeTimeout, "CDP endpoint not available after %v", pm.config.Timeout)
}

// KillChrome terminates a browser this manager launched. Attached browsers
// are left running.
func (pm *ProcessManager) KillChrome() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if !pm.isRunning {
		return nil
	}

	if pm.launched && pm.launcher != nil {
		pm.launcher.Kill()
		pm.launcher = nil
	}

	pm.isRunning = false
	return nil
}

// IsRunning reports whether a browser is connected.
func (pm *ProcessManager) IsRunning() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.isRunning
}

// Launched reports whether the browser was started by this manager.
func (pm *ProcessManager) Launched() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.launched
}

// ControlURL returns the DevTools websocket URL once connected.
func (pm *ProcessManager) ControlURL() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.config.ControlURL
}

func (pm *ProcessManager) ensureUserDataDir() error {
	if pm.config.UserDataDir == "" {
		return nil
	}
	if strings.HasPrefix(pm.config.UserDataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		pm.config.UserDataDir = filepath.Join(home, pm.config.UserDataDir[2:])
	}
	return os.MkdirAll(pm.config.UserDataDir, 0755)
}

// localPort extracts the port of a control URL that points at this host.
// A bare port number counts as local.
func localPort(controlURL string) (int, bool) {
	if port, err := strconv.Atoi(controlURL); err == nil {
		return port, true
	}

	rest := controlURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}

	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return 0, false
	}
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, false
	}
	return port, true
}

// ValidateCDPPort checks if a CDP port is valid
func ValidateCDPPort(port int) error {
	if port < 1024 || port > 65535 {
		return fmt.Errorf("CDP port must be between 1024 and 65535, got %d", port)
	}
	return nil
}

// IsChromeInstalled checks if Chrome is installed
func IsChromeInstalled() bool {
	_, err := launcher.NewBrowser().Get()
	return err == nil
}
