// Package session records the tabs of a browser window into a session script
// and replays such scripts to restore them.
//
// A session script is line oriented text. The first line is a comment marker,
// followed by optional environment directives and one "tabopen <url>" line per
// tab:
//
//	" tabkeeper session: vim: set ft=tabkeeper:
//	cd /home/u/work
//	set runtimepath=/home/u/.tabkeeper
//	tabopen https://go.dev/doc/
//
// Invariants:
//   - Directive order is preserved between Encode and Parse.
//   - The sesdir option overrides curdir.
//   - Relative session names always resolve under the session directory, which
//     always ends with exactly one separator.
//   - Save without overwrite never replaces an existing file; Append never
//     truncates.
//
// Usage:
//
//	store, _ := session.NewStore(session.StoreConfig{Directory: "~/.tabkeeper/sessions", Tabs: host, Executor: runner})
//	path, _ := store.Save(ctx, "work", false, session.DefaultOptions())
//	_, _ = store.Load(ctx, path, true)
package session
