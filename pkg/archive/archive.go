package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pusharc/pkg/config"
	"pusharc/pkg/feed"
	"pusharc/pkg/interrupt"
	"pusharc/pkg/logger"
	"pusharc/pkg/pushshift"
	"pusharc/pkg/ui"
)

// ErrBroken is returned when a plain file exists without a marker. That
// state is never produced by normal operation; auto-repairing it could
// duplicate or lose data, so the archiver refuses to proceed.
var ErrBroken = errors.New("archive file exists without a marker")

// Lifecycle is the on-disk state of an archive
type Lifecycle int

const (
	Absent Lifecycle = iota
	InProgress
	Sealed
	Broken
)

func (l Lifecycle) String() string {
	switch l {
	case Absent:
		return "absent"
	case InProgress:
		return "in progress"
	case Sealed:
		return "sealed"
	case Broken:
		return "broken"
	default:
		return "unknown"
	}
}

// Status describes an archive's on-disk state
type Status struct {
	State       Lifecycle
	PlainPath   string
	SealedPath  string
	MarkerPath  string
	ResumeAfter int64
	HasResume   bool
	// StaleMarker is true when a marker exists without a plain file;
	// reported as Absent since the marker carries no durable data.
	StaleMarker bool
}

// PlainFileName returns the plain archive file name for a subreddit
func PlainFileName(subreddit string) string {
	return fmt.Sprintf("%s_subreddit_posts_raw.json", subreddit)
}

// Inspect determines an archive's lifecycle state from disk without
// mutating anything. The subreddit name is sanitized the same way Run
// sanitizes it, so both resolve to the same files.
func Inspect(dir, subreddit string, log logger.Logger) (*Status, error) {
	subreddit = pushshift.SanitizeSubreddit(subreddit)
	plainPath := filepath.Join(dir, PlainFileName(subreddit))
	marker := NewMarker(plainPath, log)

	st := &Status{
		PlainPath:  plainPath,
		SealedPath: SealedPath(plainPath),
		MarkerPath: marker.Path(),
	}

	if _, err := os.Stat(st.SealedPath); err == nil {
		st.State = Sealed
		return st, nil
	}

	plainExists := false
	if _, err := os.Stat(plainPath); err == nil {
		plainExists = true
	}
	markerExists := marker.Exists()

	switch {
	case plainExists && markerExists:
		st.State = InProgress
		ts, ok, err := marker.Read()
		if err != nil {
			return nil, err
		}
		st.ResumeAfter = ts
		st.HasResume = ok
	case plainExists && !markerExists:
		st.State = Broken
	case !plainExists && markerExists:
		st.State = Absent
		st.StaleMarker = true
	default:
		st.State = Absent
	}

	return st, nil
}

// Archiver drives one subreddit archive from its current lifecycle state
// to the next: Absent or InProgress toward Sealed, preserving resume state
// on every abort.
type Archiver struct {
	cfg    *config.Config
	client *pushshift.Client
	log    logger.Logger
}

// New creates an archiver from configuration
func New(cfg *config.Config, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.GetLogger()
	}

	client := pushshift.NewClient(cfg.Pushshift.BaseURL, cfg.Pushshift.RequestTimeout, log)
	if cfg.Pushshift.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Pushshift.UserAgent)
	}
	client.SetToken(cfg.Pushshift.APIToken)

	return &Archiver{
		cfg:    cfg,
		client: client,
		log:    log,
	}
}

// Run fetches a subreddit's submissions into its archive. With stopEarly,
// the fetch is bounded above by the configured cutoff timestamp.
//
// Run returns nil for aborted runs: resume state is preserved on disk and
// the condition is reported to the user, not escalated. Only the Broken
// state and local I/O failures produce errors.
func (a *Archiver) Run(subreddit string, stopEarly bool) error {
	subreddit = pushshift.SanitizeSubreddit(subreddit)
	if !pushshift.IsValidSubreddit(subreddit) {
		return fmt.Errorf("invalid subreddit name %q", subreddit)
	}

	if err := os.MkdirAll(a.cfg.Output.BaseDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	st, err := Inspect(a.cfg.Output.BaseDirectory, subreddit, a.log)
	if err != nil {
		return err
	}

	filename := filepath.Base(st.PlainPath)
	marker := NewMarker(st.PlainPath, a.log)

	switch st.State {
	case Sealed:
		a.log.InfoWithFields("archive already sealed", map[string]interface{}{
			"subreddit": subreddit,
			"path":      st.SealedPath,
		})
		ui.PrintInfo("Archive already complete", st.SealedPath)
		ui.PrintWarning("To regenerate it, manually delete the sealed file and rerun.")
		return nil

	case Broken:
		ui.PrintError("Archive is in a broken state", st.PlainPath)
		ui.PrintWarning(fmt.Sprintf("File %q exists without its %s marker. If it is incomplete, "+
			"create the marker holding the last written created_utc. If it is damaged beyond "+
			"repair, delete it. Then rerun.", filename, MarkerSuffix))
		return fmt.Errorf("%w: %s", ErrBroken, st.PlainPath)
	}

	if st.StaleMarker {
		a.log.WarnWithFields("removing stale marker without archive file", map[string]interface{}{
			"path": st.MarkerPath,
		})
		if err := marker.Delete(); err != nil {
			return err
		}
	}

	// An InProgress archive whose marker holds no timestamp never had a
	// durable record; it is rebuilt with fresh framing.
	resuming := st.State == InProgress && st.HasResume

	cursor := feed.Cursor{After: st.ResumeAfter}
	if stopEarly {
		cursor.Before = a.cfg.Fetch.Cutoff
	}

	// Pre-commit the marker before any byte is written so a crash at any
	// point leaves InProgress, never Broken.
	if resuming {
		if err := marker.Write(st.ResumeAfter); err != nil {
			return err
		}
		ui.PrintInfo("Resuming archive", fmt.Sprintf("%s (after=%d)", filename, st.ResumeAfter))
	} else {
		if err := marker.Reset(); err != nil {
			return err
		}
		ui.PrintInfo("Starting archive", filename)
	}

	a.log.InfoWithFields("starting archive run", map[string]interface{}{
		"subreddit":  subreddit,
		"resuming":   resuming,
		"after":      cursor.After,
		"before":     cursor.Before,
		"page_size":  a.cfg.Fetch.PageSize,
	})

	scope := interrupt.NewScope()
	defer scope.Close()

	source := feed.New(a.client, feed.Config{
		PageSize:   a.cfg.Fetch.PageSize,
		MaxRetries: a.cfg.Retry.MaxRetries,
		RetryDelay: a.cfg.Retry.Delay,
	}, subreddit, cursor, a.log)

	outcome, err := NewWriter(a.log).Write(st.PlainPath, source, scope, cursor.After, resuming)
	if err != nil {
		// Marker stays in place; the archive remains resumable.
		return err
	}

	return a.applyOutcome(subreddit, st.PlainPath, filename, marker, outcome)
}

// applyOutcome performs the state transition the writer's outcome calls for
func (a *Archiver) applyOutcome(subreddit, plainPath, filename string, marker *Marker, outcome *Outcome) error {
	switch outcome.State {
	case Finished:
		sealedPath, err := Seal(plainPath, a.log)
		if err != nil {
			return err
		}
		if err := marker.Delete(); err != nil {
			return err
		}
		a.log.InfoWithFields("archive complete", map[string]interface{}{
			"subreddit": subreddit,
			"path":      sealedPath,
			"written":   outcome.Written,
		})
		ui.PrintSuccess(fmt.Sprintf("File %s finished and compressed", filename))
		return nil

	case Aborted:
		if err := marker.Write(outcome.ResumeAfter); err != nil {
			return err
		}
		a.reportAbort(outcome)
		ui.PrintWarning(fmt.Sprintf("Saving incomplete file: %q (resume after %d)", filename, outcome.ResumeAfter))
		return nil

	case Empty:
		if err := os.Remove(plainPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove empty archive file: %w", err)
		}
		if err := marker.Delete(); err != nil {
			return err
		}
		a.reportAbort(outcome)
		ui.PrintWarning("No records fetched, no file saved")
		return nil

	default:
		return fmt.Errorf("unexpected writer outcome %v", outcome.State)
	}
}

// reportAbort tells the user why the run stopped
func (a *Archiver) reportAbort(outcome *Outcome) {
	switch {
	case outcome.UserInterrupt:
		ui.PrintWarning("Interrupted by user. Finishing up the file.")
	case outcome.Err != nil:
		a.log.WithError(outcome.Err).Error("archive run aborted")
		ui.PrintError("Fetch failed", outcome.Err.Error())
	}
}
