package main

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pusharc/pkg/archive"
	"pusharc/pkg/auth"
	"pusharc/pkg/config"
	"pusharc/pkg/logger"
	"pusharc/pkg/ui"
)

var (
	// Archive command flags
	outDir     string
	stopEarly  bool
	pageSize   int
	maxRetries int
	retryDelay time.Duration
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <subreddit>",
	Short: "Fetch a subreddit's full submission history into an archive",
	Long: `Fetch every submission of a subreddit from Pushshift, oldest first,
into a single JSON archive.

If an earlier run of the same subreddit was interrupted, the fetch resumes
from the last submission already on disk. A finished archive is compressed
to .json.gz and left as the only artifact; rerunning against it is a no-op.

An API token is used when one is stored ('pusharc auth login') or exported
as ` + auth.TokenEnvVar + `; without one, requests are anonymous.`,
	Example: `  # Archive a subreddit with default settings
  pusharc archive eyebleach

  # Archive into a specific directory
  pusharc archive eyebleach --out-dir ./archives

  # Stop at the configured historical cutoff (Jan 2020 by default)
  pusharc archive eyebleach --stop-early

  # Be patient with a struggling server
  pusharc archive eyebleach --max-retries 15 --retry-delay 10s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runArchive(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory for archives (default: ./raw_json)")
	archiveCmd.Flags().BoolVar(&stopEarly, "stop-early", false, "stop at the configured historical cutoff timestamp")
	archiveCmd.Flags().IntVar(&pageSize, "page-size", 1000, "submissions requested per page")
	archiveCmd.Flags().IntVar(&maxRetries, "max-retries", 7, "retries per page on server timeout")
	archiveCmd.Flags().DurationVar(&retryDelay, "retry-delay", 5*time.Second, "delay between retries")
}

func runArchive(cmd *cobra.Command, args []string) {
	subreddit := strings.TrimSpace(args[0])
	ui.PrintInfo("Target subreddit", subreddit)

	// Build flags map from command line
	flags := make(map[string]interface{})
	if outDir != "" {
		flags["out-dir"] = outDir
	}
	if pageSize != 1000 {
		flags["page-size"] = pageSize
	}
	if maxRetries != 7 {
		flags["max-retries"] = maxRetries
	}
	if retryDelay != 5*time.Second {
		flags["retry-delay"] = retryDelay
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("pusharc starting")

	// Fill in a stored API token unless one came from config or env
	if cfg.Pushshift.APIToken == "" {
		if token, err := auth.NewManager().Retrieve(); err == nil {
			cfg.Pushshift.APIToken = token
			logger.Info("Using stored API token")
		}
	}

	logger.WithField("subreddit", subreddit).Info("Starting archive run")

	a := archive.New(cfg, logger.GetLogger())
	if err := a.Run(subreddit, stopEarly); err != nil {
		if errors.Is(err, archive.ErrBroken) {
			// The broken-state guidance was already printed
			os.Exit(1)
		}
		logger.WithError(err).WithField("subreddit", subreddit).Error("Archive run failed")
		ui.PrintError("Archive run failed", err.Error())
		os.Exit(1)
	}
}
