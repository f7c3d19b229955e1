package browser

import (
	"fmt"
	"time"
)

// Config describes how the tab host reaches a browser.
type Config struct {
	// ControlURL attaches to a running browser (a DevTools websocket URL,
	// "http://host:port" or a bare port). Empty attaches to CDPPort on this
	// host, or launches a new browser when Launch is set.
	ControlURL  string         `json:"control_url" mapstructure:"control_url"`
	Launch      bool           `json:"launch" mapstructure:"launch"`
	ChromePath  string         `json:"chrome_path,omitempty" mapstructure:"chrome_path"`
	Headless    bool           `json:"headless" mapstructure:"headless"`
	NoSandbox   bool           `json:"no_sandbox" mapstructure:"no_sandbox"`
	UserDataDir string         `json:"user_data_dir,omitempty" mapstructure:"user_data_dir"`
	CDPPort     int            `json:"cdp_port" mapstructure:"cdp_port"`
	Timeout     time.Duration  `json:"timeout" mapstructure:"timeout"`
	Security    SecurityConfig `json:"security" mapstructure:"security"`
}

// SecurityConfig represents the URL policy applied to tabs opened from
// session scripts.
type SecurityConfig struct {
	AllowFileUrls      bool     `json:"allow_file_urls" mapstructure:"allow_file_urls"`
	AllowLocalhostUrls bool     `json:"allow_localhost_urls" mapstructure:"allow_localhost_urls"`
	AllowedDomains     []string `json:"allowed_domains,omitempty" mapstructure:"allowed_domains"`
	BlockedDomains     []string `json:"blocked_domains,omitempty" mapstructure:"blocked_domains"`
}

// DefaultConfig launches a visible browser on the standard DevTools port.
func DefaultConfig() Config {
	return Config{
		CDPPort: 9222,
		Timeout: 10 * time.Second,
		Security: SecurityConfig{
			AllowFileUrls:      true,
			AllowLocalhostUrls: true,
		},
	}
}

// BrowserError is returned for browser host failures.
type BrowserError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *BrowserError) Error() string {
	return e.Message
}

// Error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNavigation    = "NAVIGATION_ERROR"
	ErrCodeTimeout       = "TIMEOUT_ERROR"
	ErrCodeSecurity      = "SECURITY_ERROR"
	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeNoTabs        = "NO_TABS"
)

func newBrowserError(code, format string, args ...interface{}) *BrowserError {
	return &BrowserError{Code: code, Message: fmt.Sprintf(format, args...)}
}
