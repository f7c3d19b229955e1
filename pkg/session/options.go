package session

import (
	"sort"
	"strings"
)

// Option tokens understood by Codec.Encode.
const (
	OptBlank   = "blank"
	OptCurDir  = "curdir"
	OptHelp    = "help"
	OptOptions = "options"
	OptRuntime = "runtime"
	OptSesDir  = "sesdir"
	OptTabs    = "tabs"
)

// KnownOptions lists every token with an effect on encoding.
var KnownOptions = []string{OptBlank, OptCurDir, OptHelp, OptOptions, OptRuntime, OptSesDir, OptTabs}

// Options is the set of session option tokens. Only membership matters.
// Unknown tokens are carried along and ignored by the codec.
type Options struct {
	set map[string]struct{}
}

// NewOptions builds a set from tokens, dropping empty ones.
func NewOptions(tokens ...string) Options {
	o := Options{set: make(map[string]struct{}, len(tokens))}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		o.set[tok] = struct{}{}
	}
	return o
}

// ParseOptions parses a comma or whitespace separated token list,
// e.g. "curdir,help,tabs".
func ParseOptions(s string) Options {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return NewOptions(fields...)
}

// DefaultOptions returns {curdir, help, tabs}.
func DefaultOptions() Options {
	return NewOptions(OptCurDir, OptHelp, OptTabs)
}

// Has reports membership of token.
func (o Options) Has(token string) bool {
	_, ok := o.set[token]
	return ok
}

// Len returns the number of tokens.
func (o Options) Len() int {
	return len(o.set)
}

// Tokens returns the tokens sorted.
func (o Options) Tokens() []string {
	tokens := make([]string, 0, len(o.set))
	for tok := range o.set {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// Unknown returns the tokens that have no effect on encoding, sorted.
func (o Options) Unknown() []string {
	var unknown []string
	for _, tok := range o.Tokens() {
		if !IsKnownOption(tok) {
			unknown = append(unknown, tok)
		}
	}
	return unknown
}

func (o Options) String() string {
	return strings.Join(o.Tokens(), ",")
}

// IsKnownOption reports whether token is one of KnownOptions.
func IsKnownOption(token string) bool {
	for _, known := range KnownOptions {
		if token == known {
			return true
		}
	}
	return false
}
