package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/harun/tabkeeper/internal/observability"
)

// Errors reported by Execute. Messages follow the ex conventions users of
// session scripts already know.
var (
	ErrNotEditorCommand = errors.New("E492: Not an editor command")
	ErrNoBang           = errors.New("E477: No ! allowed")
	ErrArgumentRequired = errors.New("E471: Argument required")
	ErrTrailing         = errors.New("E488: Trailing characters")
	ErrRecursive        = errors.New("E169: Command too recursive")
	ErrInvalidAlias     = errors.New("E183: User defined commands must start with an uppercase letter")
)

// ArgCount constrains the arguments a command accepts.
type ArgCount string

const (
	ArgsNone     ArgCount = "0" // no arguments
	ArgsOne      ArgCount = "1" // exactly one argument, the rest of the line
	ArgsOptional ArgCount = "?" // zero or one, the rest of the line
	ArgsAny      ArgCount = "*" // any number
	ArgsSome     ArgCount = "+" // at least one
)

// Handler runs a command.
type Handler func(ctx context.Context, inv Invocation) error

// Command is a host command definition.
type Command struct {
	Specs       []string
	Description string
	Bang        bool
	Args        ArgCount
	Run         Handler

	specs []Spec
}

// Name returns the full form of the first spec.
func (c *Command) Name() string {
	if len(c.specs) == 0 {
		return ""
	}
	return c.specs[0].Full
}

func (c *Command) matches(name string) (exact, prefix bool) {
	for _, spec := range c.specs {
		if spec.Full == name {
			return true, true
		}
		if spec.Matches(name) {
			prefix = true
		}
	}
	return false, prefix
}

func (c *Command) checkArgs(inv Invocation) error {
	if inv.Bang && !c.Bang {
		return ErrNoBang
	}
	switch c.Args {
	case ArgsNone:
		if inv.Raw != "" {
			return fmt.Errorf("%w: %s", ErrTrailing, inv.Raw)
		}
	case ArgsOne, ArgsSome:
		if inv.Raw == "" {
			return ErrArgumentRequired
		}
	}
	return nil
}

type alias struct {
	name      string
	expansion string
}

// maxExpansionDepth bounds user commands that expand to other user commands.
const maxExpansionDepth = 32

type expansionDepthKey struct{}

// Registry is the host command table plus user defined aliases.
type Registry struct {
	mu       sync.RWMutex
	commands []*Command
	aliases  []alias
}

// NewRegistry constructs an empty command table.
func NewRegistry() *Registry {
	observability.EnsureRegistered()
	return &Registry{}
}

// Add registers a command. Specs must not collide with existing ones.
func (r *Registry) Add(cmd Command) error {
	if cmd.Run == nil {
		return fmt.Errorf("command handler is required")
	}
	if len(cmd.Specs) == 0 {
		return fmt.Errorf("command spec is required")
	}
	if cmd.Args == "" {
		cmd.Args = ArgsAny
	}

	cmd.specs = make([]Spec, 0, len(cmd.Specs))
	for _, raw := range cmd.Specs {
		spec, err := ParseSpec(raw)
		if err != nil {
			return err
		}
		cmd.specs = append(cmd.specs, spec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.commands {
		for _, spec := range cmd.specs {
			if exact, _ := existing.matches(spec.Full); exact {
				return fmt.Errorf("command %q already registered", spec.Full)
			}
		}
	}

	c := cmd
	r.commands = append(r.commands, &c)
	return nil
}

// Lookup finds the command name refers to. A full name wins over an
// abbreviation; among abbreviations the first registered command wins.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(name)
}

func (r *Registry) lookup(name string) (*Command, bool) {
	var candidate *Command
	for _, cmd := range r.commands {
		exact, prefix := cmd.matches(name)
		if exact {
			return cmd, true
		}
		if prefix && candidate == nil {
			candidate = cmd
		}
	}
	return candidate, candidate != nil
}

// Names returns the full name of every registered command, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands)+len(r.aliases))
	for _, cmd := range r.commands {
		names = append(names, cmd.Name())
	}
	for _, a := range r.aliases {
		names = append(names, a.name)
	}
	sort.Strings(names)
	return names
}

// Alias defines (or redefines) a user command. name must start with an
// uppercase letter. In expansion, <args> is replaced by the invocation's
// arguments and <bang> by "!" when the invocation had one.
func (r *Registry) Alias(name, expansion string) error {
	name = strings.TrimSpace(name)
	if !isName(name) || !isUpper(name[0]) {
		return fmt.Errorf("%w: %s", ErrInvalidAlias, name)
	}
	expansion = strings.TrimSpace(expansion)
	if expansion == "" {
		return ErrArgumentRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.aliases {
		if a.name == name {
			r.aliases[i].expansion = expansion
			return nil
		}
	}
	r.aliases = append(r.aliases, alias{name: name, expansion: expansion})
	return nil
}

// Expansion returns the definition of a user command.
func (r *Registry) Expansion(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.aliases {
		if a.name == name {
			return a.expansion, true
		}
	}
	return "", false
}

// ListSerializableCommands returns one "command name expansion" line per
// user command, in definition order.
func (r *Registry) ListSerializableCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]string, 0, len(r.aliases))
	for _, a := range r.aliases {
		lines = append(lines, "command "+a.name+" "+a.expansion)
	}
	return lines
}

// Execute parses and runs one command line.
func (r *Registry) Execute(ctx context.Context, line string) error {
	inv, err := Parse(line)
	if err != nil {
		return err
	}

	if expansion, ok := r.Expansion(inv.Name); ok {
		depth, _ := ctx.Value(expansionDepthKey{}).(int)
		if depth >= maxExpansionDepth {
			return fmt.Errorf("%w: %s", ErrRecursive, inv.Name)
		}
		ctx = context.WithValue(ctx, expansionDepthKey{}, depth+1)
		return r.Execute(ctx, expand(expansion, inv))
	}

	cmd, ok := r.Lookup(inv.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotEditorCommand, inv.Line)
	}

	if err := cmd.checkArgs(inv); err != nil {
		observability.RecordCommand(cmd.Name(), false)
		return err
	}

	err = cmd.Run(ctx, inv)
	observability.RecordCommand(cmd.Name(), err == nil)
	return err
}

func expand(expansion string, inv Invocation) string {
	bang := ""
	if inv.Bang {
		bang = "!"
	}
	out := strings.ReplaceAll(expansion, "<bang>", bang)
	return strings.ReplaceAll(out, "<args>", inv.Raw)
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
