package pushshift

import (
	"encoding/json"
	"fmt"
)

// Post is a single subreddit submission. The full JSON object is retained
// verbatim; ID and CreatedUTC are extracted for pagination and resume
// bookkeeping, all other fields pass through untouched.
type Post struct {
	ID         string
	CreatedUTC int64

	raw json.RawMessage
}

// UnmarshalJSON keeps a copy of the raw object and extracts the fields the
// archiver needs. A submission without a created_utc value cannot be ordered
// or resumed past, so it is rejected.
func (p *Post) UnmarshalJSON(data []byte) error {
	var fields struct {
		ID         string `json:"id"`
		CreatedUTC int64  `json:"created_utc"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode submission: %w", err)
	}
	if fields.CreatedUTC == 0 {
		return fmt.Errorf("submission %q has no created_utc field", fields.ID)
	}

	p.ID = fields.ID
	p.CreatedUTC = fields.CreatedUTC
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the submission exactly as the API delivered it
func (p Post) MarshalJSON() ([]byte, error) {
	if p.raw == nil {
		return nil, fmt.Errorf("submission %q has no raw payload", p.ID)
	}
	return p.raw, nil
}

// Raw returns the submission's original JSON bytes
func (p *Post) Raw() []byte {
	return p.raw
}

// SearchResponse is the envelope returned by the submission search endpoint
type SearchResponse struct {
	Data []Post `json:"data"`
}
