// Package command implements the host command table that session scripts
// are replayed through.
//
// Commands are declared with ex-style specs: "sessions[ave]" accepts every
// abbreviation from "sessions" to "sessionsave". A line is parsed into a
// name, an optional "!" and the argument string:
//
//	reg := command.NewRegistry()
//	_ = reg.Add(command.Command{
//		Specs: []string{"tabo[pen]", "t"},
//		Args:  command.ArgsOne,
//		Run:   func(ctx context.Context, inv command.Invocation) error { return open(ctx, inv.Raw) },
//	})
//	err := command.NewRunner(reg).Execute(ctx, "/home/u/.tabkeeper/sessions/work")
//
// User commands defined with Alias start with an uppercase letter and are
// exported as "command" lines, so a saved session can recreate them.
package command
