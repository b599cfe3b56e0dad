package facebook

import "fmt"

// Error is returned for every failed Graph API call. StatusCode is zero
// for transport failures (timeout, connection refused). The controller
// treats both the same; the split only matters for diagnostics.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("facebook %s: API error %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("facebook %s: %s", e.Op, e.Message)
}

// PublishResult is the Graph API response for a published content unit.
// Photo publishes return both a photo id and a post_id; video publishes
// and feed posts return only id.
type PublishResult struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// BestID returns the id to treat as the published post id.
func (r PublishResult) BestID() string {
	if r.PostID != "" {
		return r.PostID
	}
	return r.ID
}

// Page is a page identity resolved from an access token.
type Page struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PostURL returns the public URL for a published post id.
func PostURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.facebook.com/" + id
}

type graphErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
