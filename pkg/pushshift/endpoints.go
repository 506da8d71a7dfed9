package pushshift

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the public Pushshift API host
	DefaultBaseURL = "https://api.pushshift.io"

	// SubmissionSearchEndpoint is the endpoint for subreddit submission search
	SubmissionSearchEndpoint = "/reddit/submission/search"

	// DefaultFields is the comma-separated field list requested per submission
	DefaultFields = "id,created_utc,domain,author,title,selftext,permalink"

	// DefaultPageSize is the default number of submissions per page
	DefaultPageSize = 1000

	// MaxPageSize is the largest page the API will serve
	MaxPageSize = 1000
)

// SearchQuery describes one page request against the submission search API
type SearchQuery struct {
	Subreddit string
	// After is the inclusive lower created_utc bound; zero means unbounded
	After int64
	// Before is the exclusive upper created_utc bound; zero means unbounded
	Before int64
	// Size is the page size; zero means DefaultPageSize
	Size int
}

// SearchURL constructs the submission search URL for a query.
//
// The Pushshift API rejects a percent-encoded fields parameter, so the
// encoded commas are restored afterwards. This mirrors the only URL quirk
// the API has; everything else is standard query encoding.
func SearchURL(baseURL string, q SearchQuery) string {
	size := q.Size
	if size <= 0 {
		size = DefaultPageSize
	} else if size > MaxPageSize {
		size = MaxPageSize
	}

	params := url.Values{}
	params.Set("subreddit", q.Subreddit)
	params.Set("fields", DefaultFields)
	params.Set("sort", "created_utc")
	params.Set("order", "asc")
	params.Set("size", strconv.Itoa(size))
	if q.After != 0 {
		params.Set("after", strconv.FormatInt(q.After, 10))
	}
	if q.Before != 0 {
		params.Set("before", strconv.FormatInt(q.Before, 10))
	}

	encoded := strings.ReplaceAll(params.Encode(), "%2C", ",")
	return fmt.Sprintf("%s%s?%s", baseURL, SubmissionSearchEndpoint, encoded)
}

// IsValidSubreddit checks if a subreddit name is plausible
func IsValidSubreddit(name string) bool {
	if name == "" || len(name) > 21 {
		return false
	}

	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}

	return true
}

// SanitizeSubreddit strips an r/ or /r/ prefix and trailing slashes
func SanitizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "r/")
	name = strings.TrimSuffix(name, "/")
	return name
}
