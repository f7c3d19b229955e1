package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harun/tabkeeper/pkg/command"
	"github.com/harun/tabkeeper/pkg/session"
	"github.com/harun/tabkeeper/pkg/settings"
)

func (a *App) registerCommands() error {
	cmds := []command.Command{
		{
			Specs:       []string{"cd", "chd[ir]"},
			Description: "Change the current directory",
			Args:        command.ArgsOptional,
			Run:         a.cmdCd,
		},
		{
			Specs:       []string{"pw[d]"},
			Description: "Print the current directory",
			Args:        command.ArgsNone,
			Run: func(ctx context.Context, inv command.Invocation) error {
				a.printf("%s\n", a.WorkingDir())
				return nil
			},
		},
		{
			Specs:       []string{"se[t]"},
			Description: "Set or show options",
			Args:        command.ArgsAny,
			Run:         a.cmdSet,
		},
		{
			Specs:       []string{"tabo[pen]", "t"},
			Description: "Open a URL in a new tab",
			Args:        command.ArgsOne,
			Run: func(ctx context.Context, inv command.Invocation) error {
				_, err := a.tabs.OpenTab(ctx, inv.Raw)
				return err
			},
		},
		{
			Specs:       []string{"sessions[ave]", "mkses[sion]"},
			Description: "Save current window",
			Bang:        true,
			Args:        command.ArgsOptional,
			Run: func(ctx context.Context, inv command.Invocation) error {
				_, err := a.Save(ctx, inv.Raw, inv.Bang)
				return err
			},
		},
		{
			Specs:       []string{"sessiona[ppend]", "sessionadd"},
			Description: "Append the current tab, or all tabs with !, to a session file",
			Bang:        true,
			Args:        command.ArgsOne,
			Run: func(ctx context.Context, inv command.Invocation) error {
				_, err := a.Append(ctx, inv.Raw, inv.Bang)
				return err
			},
		},
		{
			Specs:       []string{"sessionl[oad]"},
			Description: "Load a session file, replacing all tabs with !",
			Bang:        true,
			Args:        command.ArgsOne,
			Run: func(ctx context.Context, inv command.Invocation) error {
				_, err := a.Load(ctx, inv.Raw, inv.Bang)
				return err
			},
		},
		{
			Specs:       []string{"com[mand]"},
			Description: "List or define user commands",
			Bang:        true,
			Args:        command.ArgsAny,
			Run:         a.cmdCommand,
		},
	}

	for _, cmd := range cmds {
		if err := a.commands.Add(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) cmdCd(ctx context.Context, inv command.Invocation) error {
	target := inv.Raw
	if target == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		target = home
	}
	target = session.ExpandHome(target)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !filepath.IsAbs(target) {
		target = filepath.Join(a.wd, target)
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("E344: Can't find directory %q in cdpath", inv.Raw)
	}
	if !info.IsDir() {
		return fmt.Errorf("E344: %q is not a directory", inv.Raw)
	}
	a.wd = filepath.Clean(target)
	return nil
}

// cmdSet handles "set", "set name", "set name?", "set name&" and
// "set name=value" forms. Several may be given on one line.
func (a *App) cmdSet(ctx context.Context, inv command.Invocation) error {
	args := settings.SplitArgs(inv.Raw)
	if len(args) == 0 {
		for _, name := range a.settings.Names() {
			value, _ := a.settings.Get(name)
			a.printf("  %s=%s\n", name, value)
		}
		return nil
	}

	for _, arg := range args {
		if name, value, ok := strings.Cut(arg, "="); ok {
			if _, err := a.settings.Set(name, value); err != nil {
				return setError(name, err)
			}
			continue
		}
		if name, ok := strings.CutSuffix(arg, "&"); ok {
			if _, err := a.settings.Reset(name); err != nil {
				return setError(name, err)
			}
			continue
		}
		name := strings.TrimSuffix(arg, "?")
		value, err := a.settings.Get(name)
		if err != nil {
			return setError(name, err)
		}
		a.printf("  %s=%s\n", name, value)
	}
	return nil
}

func setError(name string, err error) error {
	if errors.Is(err, settings.ErrUnknownOption) {
		return fmt.Errorf("E518: Unknown option: %s", name)
	}
	return fmt.Errorf("E474: Invalid argument: %s: %w", name, err)
}

// cmdCommand lists user commands or defines one: "command Name expansion".
func (a *App) cmdCommand(ctx context.Context, inv command.Invocation) error {
	if len(inv.Args) == 0 {
		names := a.commands.Names()
		sort.Strings(names)
		for _, name := range names {
			if expansion, ok := a.commands.Expansion(name); ok {
				a.printf("    %-12s %s\n", name, expansion)
			}
		}
		return nil
	}

	name := inv.Args[0]
	expansion := strings.TrimSpace(strings.TrimPrefix(inv.Raw, name))
	if expansion == "" {
		existing, ok := a.commands.Expansion(name)
		if !ok {
			return fmt.Errorf("E184: No such user-defined command: %s", name)
		}
		a.printf("    %-12s %s\n", name, existing)
		return nil
	}
	return a.commands.Alias(name, expansion)
}
