// Package feed turns the paginated Pushshift API into a lazy, ordered
// sequence of submissions.
//
// A Feed is consumed once and is not restartable; callers resume by
// constructing a new Feed with the cursor they last reached. Pagination
// advances the lower bound to the last submission's created_utc + 1, which
// guarantees forward progress when many submissions share a timestamp but
// means a submission sharing the exact boundary timestamp that was not yet
// returned can be skipped. That boundary behavior is a known tradeoff of
// the pagination scheme and is deliberately left as-is.
package feed

import (
	"time"

	"pusharc/pkg/logger"
	"pusharc/pkg/pushshift"
	"pusharc/pkg/retry"
)

// progressInterval is how many pages pass between progress log lines
const progressInterval = 5

// Cursor bounds the remaining fetch work by created_utc.
// A zero value means the bound is absent.
type Cursor struct {
	After  int64
	Before int64
}

// Config holds the fetch parameters for a feed
type Config struct {
	PageSize   int
	MaxRetries int
	RetryDelay time.Duration
}

// PageClient fetches one page of submissions
type PageClient interface {
	FetchPage(q pushshift.SearchQuery) ([]pushshift.Post, error)
}

// Feed is a pull-based sequence of submissions in non-decreasing
// created_utc order
type Feed struct {
	client    PageClient
	cfg       Config
	subreddit string
	cursor    Cursor
	log       logger.Logger
	retrier   *retry.Retrier

	buf       []pushshift.Post
	idx       int
	page      int
	done      bool
	highWater int64
}

// New creates a feed starting at the given cursor
func New(client PageClient, cfg Config, subreddit string, cursor Cursor, log logger.Logger) *Feed {
	if log == nil {
		log = logger.GetLogger()
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = log
	retrier := retry.NewRetrier(retryCfg).
		WithMaxRetries(cfg.MaxRetries).
		WithBackoff(&retry.ConstantBackoff{Delay: cfg.RetryDelay})

	return &Feed{
		client:    client,
		cfg:       cfg,
		subreddit: subreddit,
		cursor:    cursor,
		log:       log,
		retrier:   retrier,
	}
}

// Next returns the next submission in order, or (nil, nil) once the source
// is exhausted. Any error from the page fetch, including retry exhaustion,
// ends the feed.
func (f *Feed) Next() (*pushshift.Post, error) {
	for {
		if f.idx < len(f.buf) {
			post := &f.buf[f.idx]
			f.idx++
			return post, nil
		}

		if f.done {
			return nil, nil
		}

		if err := f.fetchPage(); err != nil {
			f.done = true
			return nil, err
		}
	}
}

// HighWater returns the created_utc the feed has paged past so far
func (f *Feed) HighWater() int64 {
	return f.highWater
}

// fetchPage loads the next page into the buffer and advances the cursor
func (f *Feed) fetchPage() error {
	f.page++
	f.log.DebugWithFields("loading page", map[string]interface{}{
		"subreddit": f.subreddit,
		"page":      f.page,
		"after":     f.cursor.After,
	})

	var posts []pushshift.Post
	err := f.retrier.Do(func() error {
		var fetchErr error
		posts, fetchErr = f.client.FetchPage(pushshift.SearchQuery{
			Subreddit: f.subreddit,
			After:     f.cursor.After,
			Before:    f.cursor.Before,
			Size:      f.cfg.PageSize,
		})
		return fetchErr
	})
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		f.done = true
		f.log.InfoWithFields("feed exhausted", map[string]interface{}{
			"subreddit": f.subreddit,
			"pages":     f.page - 1,
			"reached":   formatTimestamp(f.highWater),
		})
		return nil
	}

	f.buf = posts
	f.idx = 0
	f.cursor.After = posts[len(posts)-1].CreatedUTC + 1
	f.highWater = f.cursor.After

	if f.page%progressInterval == 0 {
		f.log.InfoWithFields("fetch progress", map[string]interface{}{
			"subreddit": f.subreddit,
			"page":      f.page,
			"reached":   formatTimestamp(f.highWater),
		})
	}

	return nil
}

// formatTimestamp renders a created_utc value for progress lines
func formatTimestamp(ts int64) string {
	if ts == 0 {
		return "start"
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
