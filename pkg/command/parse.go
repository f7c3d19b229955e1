package command

import (
	"fmt"
	"strings"
	"unicode"
)

// Spec is an ex-style command name such as "sessions[ave]". Any prefix of
// Full that is at least as long as Prefix names the command.
type Spec struct {
	Prefix string
	Full   string
}

// ParseSpec parses "name[tail]" or a plain "name".
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '[')
	if open < 0 {
		if !isName(s) {
			return Spec{}, fmt.Errorf("invalid command spec %q", s)
		}
		return Spec{Prefix: s, Full: s}, nil
	}

	if !strings.HasSuffix(s, "]") || strings.Count(s, "[") != 1 {
		return Spec{}, fmt.Errorf("invalid command spec %q", s)
	}
	head := s[:open]
	tail := s[open+1 : len(s)-1]
	if !isName(head) || (tail != "" && !isName(tail)) {
		return Spec{}, fmt.Errorf("invalid command spec %q", s)
	}
	return Spec{Prefix: head, Full: head + tail}, nil
}

// Matches reports whether name abbreviates the spec.
func (s Spec) Matches(name string) bool {
	return len(name) >= len(s.Prefix) && strings.HasPrefix(s.Full, name)
}

func (s Spec) String() string {
	if s.Prefix == s.Full {
		return s.Full
	}
	return s.Prefix + "[" + strings.TrimPrefix(s.Full, s.Prefix) + "]"
}

// Invocation is one parsed command line.
type Invocation struct {
	Name string
	Bang bool
	// Raw is everything after the name and bang, trimmed.
	Raw  string
	Args []string
	Line string
}

// Parse splits a command line into name, bang and arguments. Leading
// whitespace and colons are ignored.
func Parse(line string) (Invocation, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(line), ": \t")
	if trimmed == "" {
		return Invocation{}, fmt.Errorf("empty command line")
	}

	end := strings.IndexFunc(trimmed, func(r rune) bool { return !isNameRune(r) })
	if end < 0 {
		end = len(trimmed)
	}
	if end == 0 {
		return Invocation{}, fmt.Errorf("%w: %s", ErrNotEditorCommand, trimmed)
	}

	inv := Invocation{Name: trimmed[:end], Line: trimmed}
	rest := trimmed[end:]
	if strings.HasPrefix(rest, "!") {
		inv.Bang = true
		rest = rest[1:]
	}
	inv.Raw = strings.TrimSpace(rest)
	inv.Args = strings.Fields(inv.Raw)
	return inv, nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

func isNameRune(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}
