package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pusharc/pkg/archive"
	"pusharc/pkg/config"
	"pusharc/pkg/logger"
	"pusharc/pkg/pushshift"
	"pusharc/pkg/ui"
)

var statusOutDir string

// statusCmd reports an archive's lifecycle state from its on-disk files
var statusCmd = &cobra.Command{
	Use:   "status <subreddit>",
	Short: "Show the state of a subreddit archive",
	Long: `Report whether a subreddit archive is absent, in progress, sealed, or
broken, based only on the files in the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runStatus(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOutDir, "out-dir", "o", "", "output directory for archives (default: ./raw_json)")
}

func runStatus(cmd *cobra.Command, args []string) {
	// Accept the same r/ prefixed forms the archive command accepts, so
	// both commands agree on which files they are talking about
	subreddit := pushshift.SanitizeSubreddit(args[0])
	if !pushshift.IsValidSubreddit(subreddit) {
		ui.PrintError("Invalid subreddit name", args[0])
		os.Exit(1)
	}

	flags := make(map[string]interface{})
	if statusOutDir != "" {
		flags["out-dir"] = statusOutDir
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	st, err := archive.Inspect(cfg.Output.BaseDirectory, subreddit, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to inspect archive", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Subreddit", subreddit)
	ui.PrintInfo("State", st.State.String())

	switch st.State {
	case archive.Sealed:
		ui.PrintInfo("Archive", st.SealedPath)
	case archive.InProgress:
		ui.PrintInfo("Archive", st.PlainPath)
		if st.HasResume {
			resumeAt := time.Unix(st.ResumeAfter, 0).UTC().Format("2006-01-02 15:04:05")
			ui.PrintInfo("Resumes after", fmt.Sprintf("%d (%s)", st.ResumeAfter, resumeAt))
		} else {
			ui.PrintInfo("Resumes after", "start (no records written yet)")
		}
	case archive.Broken:
		ui.PrintWarning(fmt.Sprintf("File exists without its %s marker; manual intervention required.", archive.MarkerSuffix))
	case archive.Absent:
		if st.StaleMarker {
			ui.PrintWarning("A stale marker exists without an archive file; the next run will remove it.")
		}
	}
}
