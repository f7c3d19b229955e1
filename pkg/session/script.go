package session

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Marker is the comment text written on the first line of every session script.
const Marker = "tabkeeper session: vim: set ft=tabkeeper:"

// Directive vocabulary. The short forms are accepted by Parse only.
const (
	CommandChangeDir = "cd"
	CommandSet       = "set"
	CommandOpenTab   = "tabopen"

	optionRuntimePath = "runtimepath"
)

// maxLineSize bounds a single script line; data: URLs can be long.
const maxLineSize = 1024 * 1024

// DirectiveKind classifies a session script line.
type DirectiveKind int

const (
	DirectiveComment DirectiveKind = iota
	DirectiveChangeDir
	DirectiveSetRuntimePath
	DirectiveCommand
	DirectiveOpenTab
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveComment:
		return "comment"
	case DirectiveChangeDir:
		return "cd"
	case DirectiveSetRuntimePath:
		return "runtimepath"
	case DirectiveCommand:
		return "command"
	case DirectiveOpenTab:
		return "tabopen"
	default:
		return fmt.Sprintf("DirectiveKind(%d)", int(k))
	}
}

// Directive is one line of a session script. For DirectiveCommand, Arg holds
// the whole command line.
type Directive struct {
	Kind DirectiveKind
	Arg  string
}

// Comment returns a comment directive.
func Comment(text string) Directive { return Directive{Kind: DirectiveComment, Arg: text} }

// ChangeDir returns a change-directory directive.
func ChangeDir(path string) Directive { return Directive{Kind: DirectiveChangeDir, Arg: path} }

// SetRuntimePath returns a set-runtime-path directive.
func SetRuntimePath(path string) Directive {
	return Directive{Kind: DirectiveSetRuntimePath, Arg: path}
}

// RawCommand returns an opaque host command directive.
func RawCommand(line string) Directive { return Directive{Kind: DirectiveCommand, Arg: line} }

// OpenTab returns an open-tab directive.
func OpenTab(url string) Directive { return Directive{Kind: DirectiveOpenTab, Arg: url} }

// String renders the directive as a single script line without newline.
func (d Directive) String() string {
	switch d.Kind {
	case DirectiveComment:
		return `" ` + d.Arg
	case DirectiveChangeDir:
		return CommandChangeDir + " " + d.Arg
	case DirectiveSetRuntimePath:
		return CommandSet + " " + optionRuntimePath + "=" + escapeValue(d.Arg)
	case DirectiveOpenTab:
		return CommandOpenTab + " " + d.Arg
	default:
		return d.Arg
	}
}

// Script is an ordered list of directives, replayed top to bottom.
type Script []Directive

// String renders the script, one directive per line, newline terminated.
func (s Script) String() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	for _, d := range s {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Bytes is String as a byte slice.
func (s Script) Bytes() []byte {
	return []byte(s.String())
}

// URLs returns the open-tab targets in script order.
func (s Script) URLs() []string {
	var urls []string
	for _, d := range s {
		if d.Kind == DirectiveOpenTab {
			urls = append(urls, d.Arg)
		}
	}
	return urls
}

// Count returns the number of directives of kind k.
func (s Script) Count(k DirectiveKind) int {
	n := 0
	for _, d := range s {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Parse reads a session script. Blank lines are dropped; everything else
// becomes a directive in file order. Scripts written by the Pentadactyl
// plugin ("t <url>", "se rtp=<path>") are understood too.
func Parse(r io.Reader) (Script, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var script Script
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimLeft(line, " \t:")
		if trimmed == "" {
			continue
		}
		script = append(script, ParseLine(trimmed))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session script at line %d: %w", lineNum+1, err)
	}

	return script, nil
}

// ParseLine classifies a single non-empty line.
func ParseLine(line string) Directive {
	if strings.HasPrefix(line, `"`) {
		return Comment(strings.TrimPrefix(line[1:], " "))
	}

	name, arg := splitCommand(line)
	switch name {
	case CommandChangeDir:
		if arg != "" {
			return ChangeDir(arg)
		}
	case CommandSet, "se":
		key, value, ok := strings.Cut(arg, "=")
		if ok && !strings.ContainsAny(key, " \t") && (key == optionRuntimePath || key == "rtp") {
			return SetRuntimePath(unescapeValue(value))
		}
	case CommandOpenTab, "tabo", "tabop", "tabope", "t":
		if arg != "" {
			return OpenTab(arg)
		}
	}

	return RawCommand(line)
}

func splitCommand(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// escapeValue backslash-escapes whitespace and backslashes so the value
// reads back as a single set argument.
func escapeValue(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r == ' ' || r == '\t' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescapeValue(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var b strings.Builder
	escaped := false
	for _, r := range value {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
