package archive

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"pusharc/pkg/logger"
)

// MarkerSuffix is appended to the plain file path to form the marker path
const MarkerSuffix = ".incomplete"

// Marker is the sidecar file recording that an archive is incomplete and
// where to resume it. Its presence is the sole authority for "this archive
// is resumable"; its content is either empty (fresh start, nothing durable
// yet) or the decimal resume timestamp.
type Marker struct {
	path string
	log  logger.Logger
}

// NewMarker creates a marker handle for the given plain file path
func NewMarker(plainPath string, log logger.Logger) *Marker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Marker{
		path: plainPath + MarkerSuffix,
		log:  log,
	}
}

// Path returns the marker file path
func (m *Marker) Path() string {
	return m.path
}

// Exists checks if the marker file exists
func (m *Marker) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Read parses the resume timestamp. The second return is false when the
// marker holds no timestamp, meaning a fresh start with no records written.
func (m *Marker) Read() (int64, bool, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read marker: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, false, nil
	}

	ts, err := strconv.ParseInt(content, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed marker content %q: %w", content, err)
	}

	return ts, true, nil
}

// Write atomically rewrites the marker with a resume timestamp
func (m *Marker) Write(ts int64) error {
	if err := m.writeBytes([]byte(strconv.FormatInt(ts, 10))); err != nil {
		return err
	}

	m.log.DebugWithFields("marker written", map[string]interface{}{
		"path":         m.path,
		"resume_after": ts,
	})
	return nil
}

// Reset atomically rewrites the marker with empty content, pre-committing
// the InProgress state before any record exists
func (m *Marker) Reset() error {
	if err := m.writeBytes(nil); err != nil {
		return err
	}

	m.log.DebugWithFields("marker reset", map[string]interface{}{
		"path": m.path,
	})
	return nil
}

// writeBytes replaces the marker content atomically via a temp file rename
func (m *Marker) writeBytes(data []byte) error {
	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary marker file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write marker: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync marker file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close marker file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace marker file: %w", err)
	}

	return nil
}

// Delete removes the marker file
func (m *Marker) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete marker: %w", err)
	}

	m.log.Debug("marker deleted")
	return nil
}
