package browser

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// URLPolicy decides which session URLs may be opened.
type URLPolicy struct {
	config SecurityConfig
}

// NewURLPolicy creates a policy from config.
func NewURLPolicy(config SecurityConfig) *URLPolicy {
	return &URLPolicy{
		config: config,
	}
}

// ValidateURL checks urlStr against the policy. Domain lists only apply to
// URLs that name a host, so about: and data: pages pass them.
func (p *URLPolicy) ValidateURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" {
		return &BrowserError{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("Invalid URL format: %s", urlStr),
		}
	}

	if parsedURL.Scheme == "file" && !p.config.AllowFileUrls {
		p.logViolation("file_url_blocked", urlStr)
		return &BrowserError{
			Code:    ErrCodeSecurity,
			Message: "file:// URLs are not allowed",
			Details: map[string]interface{}{
				"url": urlStr,
			},
		}
	}

	host := strings.ToLower(parsedURL.Hostname())
	if host == "" {
		return nil
	}

	if isLocalhost(host) && !p.config.AllowLocalhostUrls {
		p.logViolation("localhost_url_blocked", urlStr)
		return &BrowserError{
			Code:    ErrCodeSecurity,
			Message: "localhost URLs are not allowed",
			Details: map[string]interface{}{
				"url": urlStr,
			},
		}
	}

	if len(p.config.AllowedDomains) > 0 && !matchAny(host, p.config.AllowedDomains) {
		p.logViolation("domain_not_allowed", urlStr)
		return &BrowserError{
			Code:    ErrCodeSecurity,
			Message: fmt.Sprintf("Domain not in allowed list: %s", host),
			Details: map[string]interface{}{
				"url":    urlStr,
				"domain": host,
			},
		}
	}

	if matchAny(host, p.config.BlockedDomains) {
		p.logViolation("domain_blocked", urlStr)
		return &BrowserError{
			Code:    ErrCodeSecurity,
			Message: fmt.Sprintf("Domain is blocked: %s", host),
			Details: map[string]interface{}{
				"url":    urlStr,
				"domain": host,
			},
		}
	}

	return nil
}

// NormalizeURL turns a scheme-less location such as "go.dev/doc" into an
// https URL. Anything with a scheme is returned unchanged.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	// "example.com:8080" parses with scheme "example.com"
	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" &&
		!strings.Contains(parsed.Scheme, ".") && parsed.Scheme != "localhost" {
		return raw
	}
	if strings.HasPrefix(raw, "localhost") || strings.HasPrefix(raw, "127.") {
		return "http://" + raw
	}
	return "https://" + raw
}

func isLocalhost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || host == "0.0.0.0" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func matchAny(host string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchDomain(host, strings.ToLower(strings.TrimSpace(pattern))) {
			return true
		}
	}
	return false
}

// matchDomain checks if a host matches a domain pattern
func matchDomain(host, pattern string) bool {
	if pattern == "" {
		return false
	}

	if host == pattern {
		return true
	}

	// Wildcard match (*.example.com)
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[2:]
		return strings.HasSuffix(host, "."+suffix) || host == suffix
	}

	// Subdomain match (.example.com matches any subdomain)
	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(host, pattern) || host == pattern[1:]
	}

	return false
}

func (p *URLPolicy) logViolation(violationType, urlStr string) {
	log.Warn().
		Str("violation", violationType).
		Str("url", urlStr).
		Msg("Blocked session URL")
}
