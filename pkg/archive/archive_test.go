package archive

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pusharc/pkg/config"
	"pusharc/pkg/logger"
)

type fixture struct {
	ID         string `json:"id"`
	CreatedUTC int64  `json:"created_utc"`
	Title      string `json:"title"`
}

// fakeAPI serves a fixed submission set the way the real search endpoint
// pages through it: ascending created_utc, bounded by after and before,
// capped at size. failStatuses is consumed one status per request before
// any successful response.
type fakeAPI struct {
	posts        []fixture
	failStatuses []int
	requests     int
}

func (a *fakeAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.requests++

		if len(a.failStatuses) > 0 {
			status := a.failStatuses[0]
			a.failStatuses = a.failStatuses[1:]
			w.WriteHeader(status)
			return
		}

		query := r.URL.Query()
		after, _ := strconv.ParseInt(query.Get("after"), 10, 64)
		before, _ := strconv.ParseInt(query.Get("before"), 10, 64)
		size, _ := strconv.Atoi(query.Get("size"))
		if size <= 0 {
			size = 1000
		}

		var page []fixture
		for _, post := range a.posts {
			if post.CreatedUTC < after {
				continue
			}
			if before > 0 && post.CreatedUTC >= before {
				continue
			}
			page = append(page, post)
			if len(page) == size {
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"data": page})
	}
}

func testArchiveConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Pushshift.BaseURL = baseURL
	cfg.Pushshift.RequestTimeout = 5 * time.Second
	cfg.Fetch.PageSize = 2
	cfg.Retry.MaxRetries = 2
	cfg.Retry.Delay = 0
	cfg.Output.BaseDirectory = t.TempDir()
	return cfg
}

func defaultFixtures() []fixture {
	return []fixture{
		{ID: "a", CreatedUTC: 100, Title: "first"},
		{ID: "b", CreatedUTC: 101, Title: "second"},
		{ID: "c", CreatedUTC: 101, Title: "tied"},
		{ID: "d", CreatedUTC: 103, Title: "last"},
	}
}

func readSealedIDs(t *testing.T, sealedPath string) []string {
	t.Helper()
	f, err := os.Open(sealedPath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	var records []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &records), "sealed archive is not a valid JSON array: %s", data)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestArchiverFullRun(t *testing.T) {
	api := &fakeAPI{posts: defaultFixtures()}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)
	archiver := New(cfg, logger.NewTestLogger())

	require.NoError(t, archiver.Run("golang", false))

	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, Sealed, st.State)

	// Only the sealed artifact remains
	_, plainErr := os.Stat(st.PlainPath)
	assert.True(t, os.IsNotExist(plainErr))
	_, markerErr := os.Stat(st.MarkerPath)
	assert.True(t, os.IsNotExist(markerErr))

	assert.Equal(t, []string{"a", "b", "c", "d"}, readSealedIDs(t, st.SealedPath))
}

func TestArchiverSealedIsNoOp(t *testing.T) {
	api := &fakeAPI{posts: defaultFixtures()}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)
	archiver := New(cfg, logger.NewTestLogger())
	require.NoError(t, archiver.Run("golang", false))

	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	sealedBefore, err := os.ReadFile(st.SealedPath)
	require.NoError(t, err)

	requestsAfterFirstRun := api.requests
	require.NoError(t, archiver.Run("golang", false))

	// A sealed archive must not trigger a single fetch, and the sealed
	// file must come through the rerun byte-for-byte unchanged
	assert.Equal(t, requestsAfterFirstRun, api.requests)
	sealedAfter, err := os.ReadFile(st.SealedPath)
	require.NoError(t, err)
	assert.Equal(t, sealedBefore, sealedAfter)
}

func TestArchiverBrokenState(t *testing.T) {
	api := &fakeAPI{posts: defaultFixtures()}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)

	// A plain file without its marker is never produced by normal
	// operation; the archiver must refuse to touch it
	plainPath := filepath.Join(cfg.Output.BaseDirectory, PlainFileName("golang"))
	require.NoError(t, os.WriteFile(plainPath, []byte(`[{"id":"x","created_utc":1}
]`), 0644))

	err := New(cfg, logger.NewTestLogger()).Run("golang", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBroken))
	assert.Equal(t, 0, api.requests)

	// The file is left untouched for the operator to repair
	data, readErr := os.ReadFile(plainPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), `"id":"x"`)
}

func TestArchiverCleansStaleMarker(t *testing.T) {
	api := &fakeAPI{posts: defaultFixtures()}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)

	plainPath := filepath.Join(cfg.Output.BaseDirectory, PlainFileName("golang"))
	marker := NewMarker(plainPath, logger.NewTestLogger())
	require.NoError(t, marker.Write(999))

	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("golang", false))

	// The stale timestamp must not have narrowed the fetch
	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, Sealed, st.State)
	assert.Equal(t, []string{"a", "b", "c", "d"}, readSealedIDs(t, st.SealedPath))
}

func TestArchiverAbortAndResume(t *testing.T) {
	api := &fakeAPI{posts: defaultFixtures()}
	serve := api.handler()

	// First page succeeds, every later request fails terminally
	firstPageServed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if firstPageServed {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		firstPageServed = true
		serve(w, r)
	}))
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)

	// Aborted runs report through state, not through an error
	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("golang", false))

	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, InProgress, st.State)
	assert.True(t, st.HasResume)
	// Page one ended at created_utc 101, so the resume cursor is 102
	assert.Equal(t, int64(102), st.ResumeAfter)

	// Healthy rerun completes the archive. The tied submission at the
	// resume boundary is skipped; that is the pagination scheme's known
	// tradeoff.
	healthy := httptest.NewServer(api.handler())
	defer healthy.Close()
	cfg.Pushshift.BaseURL = healthy.URL
	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("golang", false))

	st, err = Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, Sealed, st.State)
	assert.Equal(t, []string{"a", "b", "d"}, readSealedIDs(t, st.SealedPath))
}

func TestArchiverRetriesServerTimeouts(t *testing.T) {
	api := &fakeAPI{
		posts:        defaultFixtures(),
		failStatuses: []int{524, 524},
	}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)
	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("golang", false))

	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, Sealed, st.State)
	assert.Equal(t, []string{"a", "b", "c", "d"}, readSealedIDs(t, st.SealedPath))
}

func TestArchiverAbortsWhenRetriesExhausted(t *testing.T) {
	api := &fakeAPI{
		posts:        defaultFixtures(),
		failStatuses: []int{524, 524, 524, 524, 524},
	}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)
	cfg.Retry.MaxRetries = 1

	// Nothing was ever fetched, so nothing should remain on disk
	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("golang", false))

	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, Absent, st.State)
	assert.False(t, st.StaleMarker)
}

func TestArchiverStopEarlyBound(t *testing.T) {
	posts := defaultFixtures()
	posts = append(posts, fixture{ID: "e", CreatedUTC: 2000000000, Title: "too new"})

	api := &fakeAPI{posts: posts}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)
	cfg.Fetch.Cutoff = 1577862000
	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("golang", true))

	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, Sealed, st.State)
	assert.Equal(t, []string{"a", "b", "c", "d"}, readSealedIDs(t, st.SealedPath))
}

func TestArchiverEmptySubreddit(t *testing.T) {
	api := &fakeAPI{}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)
	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("golang", false))

	// A subreddit with no submissions still seals, as an empty array
	st, err := Inspect(cfg.Output.BaseDirectory, "golang", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, Sealed, st.State)
	assert.Empty(t, readSealedIDs(t, st.SealedPath))
}

func TestArchiverRejectsInvalidSubreddit(t *testing.T) {
	cfg := testArchiveConfig(t, "http://unused.test")

	err := New(cfg, logger.NewTestLogger()).Run("not a subreddit!", false)
	assert.Error(t, err)
}

func TestArchiverSanitizesSubredditArgument(t *testing.T) {
	api := &fakeAPI{posts: defaultFixtures()}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	cfg := testArchiveConfig(t, server.URL)
	require.NoError(t, New(cfg, logger.NewTestLogger()).Run("r/golang", false))

	sealedPath := filepath.Join(cfg.Output.BaseDirectory, PlainFileName("golang")+SealedSuffix)
	_, err := os.Stat(sealedPath)
	assert.NoError(t, err)
}

func TestInspectStates(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()
	plainPath := filepath.Join(dir, PlainFileName("golang"))

	t.Run("absent", func(t *testing.T) {
		st, err := Inspect(dir, "golang", log)
		require.NoError(t, err)
		assert.Equal(t, Absent, st.State)
		assert.False(t, st.StaleMarker)
	})

	t.Run("in progress with resume point", func(t *testing.T) {
		require.NoError(t, os.WriteFile(plainPath, []byte("[]"), 0644))
		require.NoError(t, NewMarker(plainPath, log).Write(102))
		defer os.Remove(plainPath)
		defer os.Remove(plainPath + MarkerSuffix)

		st, err := Inspect(dir, "golang", log)
		require.NoError(t, err)
		assert.Equal(t, InProgress, st.State)
		assert.True(t, st.HasResume)
		assert.Equal(t, int64(102), st.ResumeAfter)
	})

	t.Run("in progress without resume point", func(t *testing.T) {
		require.NoError(t, os.WriteFile(plainPath, []byte("["), 0644))
		require.NoError(t, NewMarker(plainPath, log).Reset())
		defer os.Remove(plainPath)
		defer os.Remove(plainPath + MarkerSuffix)

		st, err := Inspect(dir, "golang", log)
		require.NoError(t, err)
		assert.Equal(t, InProgress, st.State)
		assert.False(t, st.HasResume)
	})

	t.Run("broken", func(t *testing.T) {
		require.NoError(t, os.WriteFile(plainPath, []byte("[]"), 0644))
		defer os.Remove(plainPath)

		st, err := Inspect(dir, "golang", log)
		require.NoError(t, err)
		assert.Equal(t, Broken, st.State)
	})

	t.Run("stale marker", func(t *testing.T) {
		require.NoError(t, NewMarker(plainPath, log).Write(50))
		defer os.Remove(plainPath + MarkerSuffix)

		st, err := Inspect(dir, "golang", log)
		require.NoError(t, err)
		assert.Equal(t, Absent, st.State)
		assert.True(t, st.StaleMarker)
	})

	t.Run("sealed wins over everything", func(t *testing.T) {
		require.NoError(t, os.WriteFile(plainPath+SealedSuffix, []byte("gz"), 0644))
		defer os.Remove(plainPath + SealedSuffix)

		st, err := Inspect(dir, "golang", log)
		require.NoError(t, err)
		assert.Equal(t, Sealed, st.State)
	})
}

func TestInspectAcceptsPrefixedSubreddit(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()
	plainPath := filepath.Join(dir, PlainFileName("golang"))
	require.NoError(t, os.WriteFile(plainPath+SealedSuffix, []byte("gz"), 0644))

	// The prefixed form must resolve to the same files the bare name does
	st, err := Inspect(dir, "r/golang", log)
	require.NoError(t, err)
	assert.Equal(t, Sealed, st.State)
	assert.Equal(t, plainPath, st.PlainPath)
}

func TestLifecycleString(t *testing.T) {
	tests := []struct {
		state    Lifecycle
		expected string
	}{
		{Absent, "absent"},
		{InProgress, "in progress"},
		{Sealed, "sealed"},
		{Broken, "broken"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, fmt.Sprint(test.state))
	}
}
