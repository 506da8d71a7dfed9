package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pusharc/pkg/logger"
)

func testMarker(t *testing.T) *Marker {
	t.Helper()
	plain := filepath.Join(t.TempDir(), "golang_subreddit_posts_raw.json")
	return NewMarker(plain, logger.NewTestLogger())
}

func TestMarkerPath(t *testing.T) {
	m := testMarker(t)
	assert.True(t, filepath.Base(m.Path()) == "golang_subreddit_posts_raw.json.incomplete")
}

func TestMarkerExists(t *testing.T) {
	m := testMarker(t)
	assert.False(t, m.Exists())

	require.NoError(t, m.Reset())
	assert.True(t, m.Exists())

	require.NoError(t, m.Delete())
	assert.False(t, m.Exists())
}

func TestMarkerReadEmpty(t *testing.T) {
	m := testMarker(t)
	require.NoError(t, m.Reset())

	ts, hasTS, err := m.Read()
	require.NoError(t, err)
	assert.False(t, hasTS)
	assert.Equal(t, int64(0), ts)
}

func TestMarkerWriteAndRead(t *testing.T) {
	m := testMarker(t)
	require.NoError(t, m.Write(1577862000))

	ts, hasTS, err := m.Read()
	require.NoError(t, err)
	assert.True(t, hasTS)
	assert.Equal(t, int64(1577862000), ts)
}

func TestMarkerWriteOverwrites(t *testing.T) {
	m := testMarker(t)
	require.NoError(t, m.Write(100))
	require.NoError(t, m.Write(200))

	ts, hasTS, err := m.Read()
	require.NoError(t, err)
	assert.True(t, hasTS)
	assert.Equal(t, int64(200), ts)
}

func TestMarkerResetClearsTimestamp(t *testing.T) {
	m := testMarker(t)
	require.NoError(t, m.Write(100))
	require.NoError(t, m.Reset())

	_, hasTS, err := m.Read()
	require.NoError(t, err)
	assert.False(t, hasTS)
}

func TestMarkerReadToleratesWhitespace(t *testing.T) {
	m := testMarker(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte("  1500000000\n"), 0644))

	ts, hasTS, err := m.Read()
	require.NoError(t, err)
	assert.True(t, hasTS)
	assert.Equal(t, int64(1500000000), ts)
}

func TestMarkerReadMalformed(t *testing.T) {
	m := testMarker(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte("not-a-timestamp"), 0644))

	_, _, err := m.Read()
	assert.Error(t, err)
}

func TestMarkerReadMissing(t *testing.T) {
	m := testMarker(t)
	_, _, err := m.Read()
	assert.Error(t, err)
}

func TestMarkerDeleteMissingIsNoError(t *testing.T) {
	m := testMarker(t)
	assert.NoError(t, m.Delete())
}

func TestMarkerWriteLeavesNoTempFile(t *testing.T) {
	m := testMarker(t)
	require.NoError(t, m.Write(42))

	_, err := os.Stat(m.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
