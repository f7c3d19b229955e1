package session

import (
	"regexp"
)

// DefaultBlankURL is the location of an empty tab.
const DefaultBlankURL = "about:blank"

// DefaultHelpPattern matches locations of built-in help viewers.
var DefaultHelpPattern = regexp.MustCompile(`^(dactyl|liberator|chrome|about|edge|brave):/*help(/|$|\?|#)`)

// Tab is a snapshot of one open tab taken at save time. Only URL is written
// to session scripts.
type Tab struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Env is the environment state a session may capture.
type Env struct {
	WorkingDir  string
	RuntimePath string
	SessionDir  string
}

// CommandExporter serializes host configuration (settings and user command
// mappings) as replayable command lines.
type CommandExporter interface {
	ListSerializableCommands() []string
}

// Codec converts window state into session scripts.
type Codec struct {
	HelpPattern *regexp.Regexp
	BlankURL    string
	Exporter    CommandExporter
}

// NewCodec returns a codec with the default help and blank matchers.
// exporter may be nil, in which case the options token writes nothing.
func NewCodec(exporter CommandExporter) *Codec {
	return &Codec{
		HelpPattern: DefaultHelpPattern,
		BlankURL:    DefaultBlankURL,
		Exporter:    exporter,
	}
}

// Encode builds the session script for tabs under opts. It never fails.
func (c *Codec) Encode(tabs []Tab, opts Options, env Env) Script {
	script := Script{Comment(Marker)}

	if opts.Has(OptSesDir) {
		script = append(script, ChangeDir(env.SessionDir))
	} else if opts.Has(OptCurDir) {
		script = append(script, ChangeDir(env.WorkingDir))
	}

	if opts.Has(OptRuntime) {
		script = append(script, SetRuntimePath(env.RuntimePath))
	}

	if opts.Has(OptOptions) && c.Exporter != nil {
		for _, line := range c.Exporter.ListSerializableCommands() {
			script = append(script, RawCommand(line))
		}
	}

	if opts.Has(OptTabs) {
		for _, tab := range tabs {
			if c.IsHelp(tab.URL) && !opts.Has(OptHelp) {
				continue
			}
			if c.IsBlank(tab.URL) && !opts.Has(OptBlank) {
				continue
			}
			script = append(script, OpenTab(c.location(tab.URL)))
		}
	}

	return script
}

// AppendTabs builds the fragment appended to an existing session. Unlike
// Encode it does not filter help or blank tabs.
func (c *Codec) AppendTabs(tabs []Tab) Script {
	script := make(Script, 0, len(tabs))
	for _, tab := range tabs {
		script = append(script, OpenTab(c.location(tab.URL)))
	}
	return script
}

// IsHelp reports whether url is a help viewer page.
func (c *Codec) IsHelp(url string) bool {
	pattern := c.HelpPattern
	if pattern == nil {
		pattern = DefaultHelpPattern
	}
	return pattern.MatchString(url)
}

// IsBlank reports whether url is the blank-page sentinel.
func (c *Codec) IsBlank(url string) bool {
	blank := c.BlankURL
	if blank == "" {
		blank = DefaultBlankURL
	}
	return url == "" || url == blank
}

// location substitutes the blank sentinel for an empty URL so that every
// open-tab directive carries an argument.
func (c *Codec) location(url string) string {
	if url != "" {
		return url
	}
	if c.BlankURL != "" {
		return c.BlankURL
	}
	return DefaultBlankURL
}
