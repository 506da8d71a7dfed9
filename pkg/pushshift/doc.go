// Package pushshift implements a client for the Pushshift Reddit search API.
//
// The client fetches one page of subreddit submissions at a time, sorted by
// created_utc ascending. Submissions are kept as raw JSON so archived records
// are byte-identical to what the API returned; only the id and created_utc
// fields are extracted for pagination and resume bookkeeping.
//
// Pushshift returns HTTP 524 (Cloudflare origin timeout) when a query takes
// too long server-side. The client maps that status to the timeout error
// class, which is the only class the retry policy will wait out.
package pushshift
