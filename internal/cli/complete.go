package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete [prefix]",
	Short: "List session file names matching a prefix",
	Long: `List session files and directories whose name starts with prefix.
Relative prefixes complete inside the session directory; prefixes starting
with "/" or "~/" complete against the filesystem.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runComplete,
}

func init() {
	completeCmd.ValidArgsFunction = cobra.NoFileCompletions
	rootCmd.AddCommand(completeCmd)

	for _, cmd := range []*cobra.Command{saveCmd, appendCmd, loadCmd} {
		cmd.ValidArgsFunction = completeSessionArg
	}
}

func runComplete(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	candidates, err := sessionCandidates(cmd, prefix)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		fmt.Fprintln(cmd.OutOrStdout(), c)
	}
	return nil
}

func sessionCandidates(cmd *cobra.Command, prefix string) ([]string, error) {
	rt, err := openRuntime(cmd, detached)
	if err != nil {
		return nil, err
	}
	defer rt.Close()
	return rt.app.Store().Complete(prefix)
}

// completeSessionArg feeds shell completion for save, append and load.
func completeSessionArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	candidates, err := sessionCandidates(cmd, toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return candidates, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
