package cli

import (
	"fmt"

	"github.com/harun/tabkeeper/internal/app"
	"github.com/spf13/cobra"
)

var sesdirSave bool

var sesdirCmd = &cobra.Command{
	Use:   "sesdir [dir]",
	Short: "Show or change the session directory",
	Long: `Print the session directory. With an argument the directory is
validated, created if missing and printed. Use --save to store it in the
config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSesdir,
}

func init() {
	sesdirCmd.Flags().BoolVar(&sesdirSave, "save", false, "write the new directory to the config file")
	rootCmd.AddCommand(sesdirCmd)
}

func runSesdir(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd, detached)
	if err != nil {
		return err
	}
	defer rt.Close()

	if len(args) == 1 {
		if _, err := rt.app.Settings().Set(app.OptSessionDir, args[0]); err != nil {
			return err
		}
	}
	dir := rt.app.Store().Directory()

	if len(args) == 1 && sesdirSave {
		rt.cfg.SessionDirectory = dir
		if err := rt.loader.Save(rt.cfg); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}
