package settings

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownOption is returned for names no option answers to.
var ErrUnknownOption = errors.New("unknown option")

// Type describes how an option value is normalized.
type Type int

const (
	// TypeString values are stored as given.
	TypeString Type = iota
	// TypeStringList values are comma separated; blanks are dropped and the
	// result is re-joined with ",".
	TypeStringList
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeStringList:
		return "stringlist"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Option defines one host setting. The first name is canonical; the rest
// are aliases.
type Option struct {
	Names       []string
	Type        Type
	Default     string
	Description string

	// Setter may normalize or reject a value. It runs on Set and Reset.
	Setter func(value string) (string, error)

	// NoExport keeps the option out of ListSerializableCommands.
	NoExport bool
}

// Name returns the canonical name.
func (o Option) Name() string {
	if len(o.Names) == 0 {
		return ""
	}
	return o.Names[0]
}

type entry struct {
	opt   Option
	value string
}

// Registry holds option definitions and their current values.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	index   map[string]*entry
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]*entry),
	}
}

// Define adds an option. Its value starts at Default; the setter is not run.
func (r *Registry) Define(opt Option) error {
	if len(opt.Names) == 0 {
		return fmt.Errorf("option name is required")
	}
	for i, name := range opt.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("option name is required")
		}
		opt.Names[i] = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range opt.Names {
		if _, exists := r.index[name]; exists {
			return fmt.Errorf("option %q already defined", name)
		}
	}

	e := &entry{opt: opt, value: normalize(opt.Type, opt.Default)}
	r.entries = append(r.entries, e)
	for _, name := range opt.Names {
		r.index[name] = e
	}
	return nil
}

// Lookup returns the definition answering to name.
func (r *Registry) Lookup(name string) (Option, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[strings.TrimSpace(name)]
	if !ok {
		return Option{}, false
	}
	return e.opt, true
}

// Get returns the current value of name.
func (r *Registry) Get(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[strings.TrimSpace(name)]
	if !ok {
		return "", unknown(name)
	}
	return e.value, nil
}

// Set runs the option's setter and stores the value it returns.
func (r *Registry) Set(name, value string) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return r.assign(e, value)
}

// Reset restores the default value, running the setter on it.
func (r *Registry) Reset(name string) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return r.assign(e, e.opt.Default)
}

// Names returns the canonical names in definition order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.opt.Name())
	}
	return names
}

// ListSerializableCommands returns one "set name=value" line for every
// exportable option whose value differs from its default, in definition
// order.
func (r *Registry) ListSerializableCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lines []string
	for _, e := range r.entries {
		if e.opt.NoExport {
			continue
		}
		if e.value == normalize(e.opt.Type, e.opt.Default) {
			continue
		}
		lines = append(lines, "set "+e.opt.Name()+"="+EscapeValue(e.value))
	}
	return lines
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[strings.TrimSpace(name)]
	if !ok {
		return nil, unknown(name)
	}
	return e, nil
}

// assign runs the setter outside the lock; setters may read other options.
func (r *Registry) assign(e *entry, value string) (string, error) {
	value = normalize(e.opt.Type, value)
	if e.opt.Setter != nil {
		normalized, err := e.opt.Setter(value)
		if err != nil {
			return "", err
		}
		value = normalize(e.opt.Type, normalized)
	}

	r.mu.Lock()
	e.value = value
	r.mu.Unlock()

	return value, nil
}

func normalize(t Type, value string) string {
	if t != TypeStringList {
		return value
	}
	return strings.Join(SplitList(value), ",")
}

// SplitList splits a stringlist value into its non-empty elements.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

func unknown(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownOption, name)
}

// EscapeValue backslash-escapes spaces and backslashes so a value survives
// SplitArgs.
func EscapeValue(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r == ' ' || r == '\t' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitArgs splits a set command line on unescaped whitespace and removes
// the escapes.
func SplitArgs(line string) []string {
	var (
		args    []string
		current strings.Builder
		escaped bool
		started bool
	)
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
			started = true
		case r == ' ' || r == '\t':
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if escaped {
		current.WriteByte('\\')
	}
	if started {
		args = append(args, current.String())
	}
	return args
}
