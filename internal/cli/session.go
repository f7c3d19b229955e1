package cli

import (
	"context"
	"fmt"

	"github.com/harun/tabkeeper/internal/tracing"
	"github.com/spf13/cobra"
)

var (
	saveForce   bool
	appendAll   bool
	loadReplace bool
)

var saveCmd = &cobra.Command{
	Use:   "save [!] [file]",
	Short: "Save the current window to a session file",
	Long: `Save the tabs of the current window to a session file.
Without a file name a timestamped file is written to the session directory.
An existing file is only replaced with --force or a leading "!".`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSave,
}

var appendCmd = &cobra.Command{
	Use:   "append [!] file",
	Short: "Append the current tab to a session file",
	Long: `Append the active tab to an existing session file. A missing file is
an error; create it with save first. With --all or a leading "!" every tab
of the window is appended.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAppend,
}

var loadCmd = &cobra.Command{
	Use:   "load [!] file",
	Short: "Load a session file",
	Long: `Replay a session file. With --replace or a leading "!" all other
tabs are closed first.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLoad,
}

func init() {
	saveCmd.Flags().BoolVarP(&saveForce, "force", "f", false, "overwrite an existing session file")
	appendCmd.Flags().BoolVarP(&appendAll, "all", "a", false, "append every tab instead of the active one")
	loadCmd.Flags().BoolVarP(&loadReplace, "replace", "r", false, "close all other tabs before loading")

	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(loadCmd)
}

// bangArgs strips a standalone "!" argument and reports whether it was given.
// The remaining argument, if any, is the file name.
func bangArgs(args []string) (string, bool, error) {
	bang := false
	var rest []string
	for _, arg := range args {
		if arg == "!" && !bang {
			bang = true
			continue
		}
		rest = append(rest, arg)
	}
	switch len(rest) {
	case 0:
		return "", bang, nil
	case 1:
		return rest[0], bang, nil
	default:
		return "", bang, fmt.Errorf("E488: Trailing characters: %s", rest[1])
	}
}

func runSave(cmd *cobra.Command, args []string) error {
	file, bang, err := bangArgs(args)
	if err != nil {
		return err
	}
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		_, err := rt.app.Save(ctx, file, saveForce || bang)
		return err
	})
}

func runAppend(cmd *cobra.Command, args []string) error {
	file, bang, err := bangArgs(args)
	if err != nil {
		return err
	}
	if file == "" {
		return fmt.Errorf("E471: Argument required")
	}
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		_, err := rt.app.Append(ctx, file, appendAll || bang)
		return err
	})
}

func runLoad(cmd *cobra.Command, args []string) error {
	file, bang, err := bangArgs(args)
	if err != nil {
		return err
	}
	if file == "" {
		return fmt.Errorf("E471: Argument required")
	}
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		_, err := rt.app.Load(ctx, file, loadReplace || bang)
		return err
	})
}

// withRuntime opens a runtime, runs fn with an operation context and closes
// the runtime afterwards.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := openRuntime(cmd, attachOnly)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(tracing.NewOperationContext(ctx, "cli"), rt)
}
