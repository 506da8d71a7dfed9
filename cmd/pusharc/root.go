package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"pusharc/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pusharc",
	Short: "Archive full subreddit histories from Pushshift",
	Long: `pusharc fetches a subreddit's complete submission history from the
Pushshift API and stores it as a compressed JSON archive.

Runs are resumable: interrupt the tool at any point (Ctrl-C, network
failure, server timeout) and rerun it later to continue exactly where it
left off. Everything fetched so far stays on disk as a valid JSON array.

Archives are written to the output directory as
<subreddit>_subreddit_posts_raw.json and sealed to .json.gz on completion.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.pusharc.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`pusharc {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Make archive the default command when the first argument is not a
// known subcommand, so `pusharc eyebleach` just works.
func init() {
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			return archiveCmd.RunE(archiveCmd, args)
		}
		return cmd.Help()
	}
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
