package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var shellPrompt bool

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run host commands interactively",
	Long: `Read host commands from standard input, one per line, and run them
against the attached browser. The shortcuts "ss", "sa" and "sl" expand to
"sessionsave!", "sessionappend" and "sessionload". Enter "q" to quit.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().BoolVar(&shellPrompt, "prompt", true, "print a \":\" prompt before each line")
	rootCmd.AddCommand(shellCmd)
}

var shortcuts = map[string]string{
	"ss": "sessionsave!",
	"sa": "sessionappend",
	"sl": "sessionload",
}

// expandShortcut rewrites a leading shortcut word into its command.
func expandShortcut(line string) string {
	word, rest, _ := strings.Cut(line, " ")
	if expansion, ok := shortcuts[word]; ok {
		return strings.TrimSpace(expansion + " " + rest)
	}
	return line
}

func runShell(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd, attachOnly)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return shellLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), func(ctx context.Context, line string) error {
		return rt.app.Exec(ctx, "shell", line)
	})
}

// shellLoop reads lines from in and runs each through exec until EOF or a
// quit command. Command errors are printed and do not end the loop.
func shellLoop(ctx context.Context, in io.Reader, out, errOut io.Writer, exec func(context.Context, string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		if shellPrompt {
			fmt.Fprint(out, ":")
		}
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(scanner.Text()), ":"))
		switch {
		case line == "", strings.HasPrefix(line, `"`):
			continue
		case line == "q", line == "quit", line == "qa", line == "qall":
			return nil
		}

		if err := exec(ctx, expandShortcut(line)); err != nil {
			fmt.Fprintf(errOut, "E: %v\n", err)
		}
	}
	if shellPrompt {
		fmt.Fprintln(out)
	}
	return scanner.Err()
}
