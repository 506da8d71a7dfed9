package pushshift

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "pusharc/pkg/errors"
	"pusharc/pkg/logger"
)

type mockRoundTripper struct {
	roundTrip func(*http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.roundTrip(req)
}

func newTestClient(roundTrip func(*http.Request) (*http.Response, error)) *Client {
	client := NewClient(DefaultBaseURL, 10*time.Second, logger.NewTestLogger())
	client.httpClient.Transport = &mockRoundTripper{roundTrip: roundTrip}
	return client
}

func jsonResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Request:    req,
	}
}

func TestClientSendsConfiguredHeaders(t *testing.T) {
	var captured *http.Request
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(req, http.StatusOK, `{"data":[]}`), nil
	})
	client.SetHeader("User-Agent", "pusharc-test")
	client.SetToken("secret-token")

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "application/json", captured.Header.Get("Accept"))
	assert.Equal(t, "pusharc-test", captured.Header.Get("User-Agent"))
	assert.Equal(t, "Bearer secret-token", captured.Header.Get("Authorization"))
}

func TestClientClearsTokenWhenEmpty(t *testing.T) {
	var captured *http.Request
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(req, http.StatusOK, `{"data":[]}`), nil
	})
	client.SetToken("secret-token")
	client.SetToken("")

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.NoError(t, err)
	assert.Empty(t, captured.Header.Get("Authorization"))
}

func TestFetchPageDecodesSubmissions(t *testing.T) {
	body := `{"data":[
		{"id":"abc","created_utc":1500000000,"title":"first","author":"alice"},
		{"id":"def","created_utc":1500000100,"title":"second","author":"bob"}
	]}`
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, body), nil
	})

	posts, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "abc", posts[0].ID)
	assert.Equal(t, int64(1500000000), posts[0].CreatedUTC)
	assert.Equal(t, "def", posts[1].ID)
	assert.Equal(t, int64(1500000100), posts[1].CreatedUTC)

	// Fields the archiver never looks at must survive in the raw payload
	var full map[string]interface{}
	require.NoError(t, json.Unmarshal(posts[0].Raw(), &full))
	assert.Equal(t, "first", full["title"])
	assert.Equal(t, "alice", full["author"])
}

func TestFetchPageServerTimeout(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, 524, "<html>origin timeout</html>"), nil
	})

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeTimeout, apiErr.Type)
	assert.Equal(t, 524, apiErr.Code)
	assert.True(t, errs.IsRetryable(apiErr.Type))
}

func TestFetchPageServerError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusInternalServerError, "boom"), nil
	})

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeServerError, apiErr.Type)
	assert.False(t, errs.IsRetryable(apiErr.Type))
}

func TestFetchPageRateLimit(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusTooManyRequests, "slow down"), nil
	})

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeRateLimit, apiErr.Type)
}

func TestFetchPageNetworkFailure(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNetwork, apiErr.Type)
}

func TestFetchPageInvalidJSON(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, "not json at all"), nil
	})

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestFetchPageRejectsMissingCreatedUTC(t *testing.T) {
	body := `{"data":[{"id":"abc","title":"no timestamp"}]}`
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, body), nil
	})

	_, err := client.FetchPage(SearchQuery{Subreddit: "golang"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestPostMarshalRoundtrip(t *testing.T) {
	original := []byte(`{"id":"abc","created_utc":1500000000,"selftext":"body & more"}`)

	var post Post
	require.NoError(t, json.Unmarshal(original, &post))

	out, err := json.Marshal(post)
	require.NoError(t, err)
	assert.JSONEq(t, string(original), string(out))
}
