package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/harun/tabkeeper/pkg/browser"
	"github.com/harun/tabkeeper/pkg/session"
	"github.com/robfig/cron/v3"
)

// Validator validates configuration values
type Validator struct {
	parser cron.Parser
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// ValidateSessionOptions rejects tokens the session codec does not know.
// Unknown tokens are tolerated in session scripts, but in the config file
// they are almost always typos.
func (v *Validator) ValidateSessionOptions(tokens []string) error {
	var unknown []string
	for _, token := range tokens {
		if !session.IsKnownOption(token) {
			unknown = append(unknown, token)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown session option(s): %s (must be among: %s)",
			strings.Join(unknown, ", "), strings.Join(session.KnownOptions, ", "))
	}
	return nil
}

// ValidateSchedule validates an autosave cron expression.
func (v *Validator) ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("autosave schedule cannot be empty")
	}
	if _, err := v.parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid autosave schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateListenAddr validates a host:port listen address.
func (v *Validator) ValidateListenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid metrics address %q: %w", addr, err)
	}
	return nil
}

// ValidateDomainPattern validates an allow or block list entry.
func (v *Validator) ValidateDomainPattern(pattern string) error {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return fmt.Errorf("domain pattern cannot be empty")
	}
	if strings.Contains(p, "/") || strings.Contains(p, "://") {
		return fmt.Errorf("domain pattern %q must be a host, not a URL", pattern)
	}
	if strings.Count(p, "*") > 1 || (strings.Contains(p, "*") && !strings.HasPrefix(p, "*.")) {
		return fmt.Errorf("domain pattern %q: only a leading \"*.\" wildcard is supported", pattern)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateSessionOptions(cfg.SessionOptions); err != nil {
		errors = append(errors, err)
	}

	if cfg.Autosave.Enabled {
		if err := v.ValidateSchedule(cfg.Autosave.Schedule); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Autosave.Keep < 0 {
		errors = append(errors, fmt.Errorf("autosave.keep must be >= 0"))
	}
	if cfg.Autosave.MaxAge < 0 {
		errors = append(errors, fmt.Errorf("autosave.max_age must be >= 0"))
	}

	if cfg.Browser.ControlURL == "" {
		if err := browser.ValidateCDPPort(cfg.Browser.CDPPort); err != nil {
			errors = append(errors, fmt.Errorf("browser: %w", err))
		}
	}
	if cfg.Browser.Timeout < 0 {
		errors = append(errors, fmt.Errorf("browser.timeout must be >= 0"))
	}
	for _, lists := range [][]string{cfg.Browser.Security.AllowedDomains, cfg.Browser.Security.BlockedDomains} {
		for _, pattern := range lists {
			if err := v.ValidateDomainPattern(pattern); err != nil {
				errors = append(errors, fmt.Errorf("browser.security: %w", err))
			}
		}
	}

	if err := v.ValidateListenAddr(cfg.MetricsAddr); err != nil {
		errors = append(errors, err)
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errors = append(errors, fmt.Errorf("tracing.endpoint is required when tracing is enabled"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Logging.MaxSize < 0 || cfg.Logging.MaxAge < 0 {
		errors = append(errors, fmt.Errorf("logging.max_size and logging.max_age must be >= 0"))
	}

	return errors
}
