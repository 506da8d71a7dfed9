package archive

import (
	"fmt"
	"io"
	"os"

	"pusharc/pkg/logger"
	"pusharc/pkg/pushshift"
)

var (
	openingDelimiter = []byte("[")
	recordSeparator  = []byte(",\n")
	closingDelimiter = []byte("\n]")
)

// State is the terminal state of one writer invocation
type State int

const (
	// Finished means the source was drained to its natural end
	Finished State = iota
	// Aborted means the run stopped early but wrote at least one record
	// at some point in the archive's lifetime; resume state is preserved
	Aborted
	// Empty means the run stopped early with zero records ever written;
	// all on-disk state should be discarded
	Empty
)

func (s State) String() string {
	switch s {
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Outcome reports how a writer invocation ended
type Outcome struct {
	State State
	// ResumeAfter is the cursor to continue from; meaningful only for Aborted
	ResumeAfter int64
	// Written is the number of records appended in this invocation
	Written int
	// Err is the failure that triggered the abort, nil on interrupt
	Err error
	// UserInterrupt is true when the abort was user-initiated
	UserInterrupt bool
}

// RecordSource yields submissions in order; (nil, nil) signals natural end
type RecordSource interface {
	Next() (*pushshift.Post, error)
}

// InterruptChecker is polled at iteration boundaries for cooperative abort
type InterruptChecker interface {
	Interrupted() bool
}

// Writer appends submissions to the plain archive file, keeping the file a
// syntactically valid JSON-array prefix after every append.
type Writer struct {
	log logger.Logger
}

// NewWriter creates a writer
func NewWriter(log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{log: log}
}

// Write drains src into the plain file at path.
//
// When resuming, the write position is recovered by scanning backward from
// the end of file for the last complete record's closing brace; trailing
// partial bytes from a crashed run are discarded. The after value is the
// cursor the run started from, used as the resume point when an abort
// happens before any record was written.
//
// The returned error is non-nil only for failures that prevent producing a
// coherent outcome, such as being unable to open or close out the file.
// Source errors and interrupts are reported through the Outcome instead.
func (w *Writer) Write(path string, src RecordSource, intr InterruptChecker, after int64, resuming bool) (*Outcome, error) {
	flags := os.O_RDWR | os.O_CREATE
	if !resuming {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer f.Close()

	firstPost := true
	if resuming {
		found, err := seekPastLastRecord(f)
		if err != nil {
			return nil, fmt.Errorf("failed to recover write position: %w", err)
		}
		firstPost = !found
	} else {
		if _, err := f.Write(openingDelimiter); err != nil {
			return nil, fmt.Errorf("failed to write opening delimiter: %w", err)
		}
	}

	var (
		last        *pushshift.Post
		written     int
		interrupted bool
	)

	// Any failure inside the loop, including a panic, becomes an abort
	// with resume state preserved rather than a lost archive.
	loopErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("unexpected error in write loop: %v", r)
			}
		}()

		for {
			if intr != nil && intr.Interrupted() {
				interrupted = true
				return nil
			}

			post, err := src.Next()
			if err != nil {
				return err
			}
			if post == nil {
				return nil
			}

			if !firstPost {
				if _, err := f.Write(recordSeparator); err != nil {
					return fmt.Errorf("failed to write record separator: %w", err)
				}
			} else {
				firstPost = false
			}

			if _, err := f.Write(post.Raw()); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}

			last = post
			written++
		}
	}()

	// The closing delimiter goes out on every path, so even an aborted
	// file parses as a valid JSON array.
	if _, err := f.Write(closingDelimiter); err != nil {
		return nil, fmt.Errorf("failed to write closing delimiter: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync archive file: %w", err)
	}

	if loopErr == nil && !interrupted {
		w.log.InfoWithFields("archive write finished", map[string]interface{}{
			"path":    path,
			"written": written,
		})
		return &Outcome{State: Finished, Written: written}, nil
	}

	if firstPost {
		w.log.WarnWithFields("aborted with no records ever written", map[string]interface{}{
			"path": path,
		})
		return &Outcome{
			State:         Empty,
			Written:       written,
			Err:           loopErr,
			UserInterrupt: interrupted,
		}, nil
	}

	resumeAfter := after
	if last != nil {
		resumeAfter = last.CreatedUTC + 1
	}

	w.log.WarnWithFields("archive write aborted", map[string]interface{}{
		"path":         path,
		"written":      written,
		"resume_after": resumeAfter,
		"interrupted":  interrupted,
	})

	return &Outcome{
		State:         Aborted,
		ResumeAfter:   resumeAfter,
		Written:       written,
		Err:           loopErr,
		UserInterrupt: interrupted,
	}, nil
}

// seekPastLastRecord positions the file immediately after the last complete
// record's closing brace, truncating whatever follows it. It reports false
// when the file holds no complete record, in which case the file is reset
// to just the opening delimiter.
func seekPastLastRecord(f *os.File) (bool, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return false, err
	}

	buf := make([]byte, 1)
	pos := size
	for pos > 0 {
		pos--
		if _, err := f.ReadAt(buf, pos); err != nil {
			return false, err
		}
		if buf[0] == '}' {
			pos++
			break
		}
	}

	if pos == 0 {
		// No complete record survives; rebuild the opening delimiter
		if err := f.Truncate(0); err != nil {
			return false, err
		}
		if _, err := f.WriteAt(openingDelimiter, 0); err != nil {
			return false, err
		}
		if _, err := f.Seek(int64(len(openingDelimiter)), io.SeekStart); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := f.Truncate(pos); err != nil {
		return false, err
	}
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return false, err
	}

	return true, nil
}
