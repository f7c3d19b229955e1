package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile        string
	logLevel       string
	controlURL     string
	sessionOptions string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tabkeeper",
	Short: "Tabkeeper - browser tab session manager",
	Long: `Tabkeeper saves the tabs of a browser window to session files and
restores them later. Session files are plain scripts of host commands, so a
session can also change directories, set options or load other sessions.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tabkeeper/tabkeeper.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&controlURL, "control-url", "", "attach to a running browser (DevTools URL or port)")
	rootCmd.PersistentFlags().StringVar(&sessionOptions, "options", "", "comma-separated session options, overrides the config")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
