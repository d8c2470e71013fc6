package content

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultNoMoreMarker is the message the content API sends once the
// listing is past its last page.
const DefaultNoMoreMarker = "No more posts found."

// ListingKind tags the validated shape of a listing response.
type ListingKind int

const (
	// ListingPage is a non-empty batch of posts.
	ListingPage ListingKind = iota + 1
	// ListingExhausted means there are no further pages.
	ListingExhausted
	// ListingUnexpected is any body that is neither of the above.
	ListingUnexpected
)

func (k ListingKind) String() string {
	switch k {
	case ListingPage:
		return "page"
	case ListingExhausted:
		return "exhausted"
	case ListingUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Listing is a listing response after validation at the client boundary.
type Listing struct {
	Kind  ListingKind
	Posts []Post
	// Detail describes why a body was rejected, or carries the API's
	// exhaustion message.
	Detail string
}

// PageListing, ExhaustedListing and UnexpectedListing build the three variants.
func PageListing(posts []Post) Listing {
	if len(posts) == 0 {
		return ExhaustedListing("empty page")
	}
	return Listing{Kind: ListingPage, Posts: posts}
}

func ExhaustedListing(detail string) Listing {
	return Listing{Kind: ListingExhausted, Detail: detail}
}

func UnexpectedListing(detail string) Listing {
	return Listing{Kind: ListingUnexpected, Detail: detail}
}

// decodeListing validates a 2xx listing body.
func decodeListing(body []byte, marker string) Listing {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return UnexpectedListing("empty body")
	}
	switch body[0] {
	case '[':
		var posts []Post
		if err := json.Unmarshal(body, &posts); err != nil {
			return UnexpectedListing("malformed post array: " + err.Error())
		}
		return PageListing(posts)
	case '{':
		if msg, ok := messageOnly(body); ok && isNoMoreMessage(msg, marker) {
			return ExhaustedListing(msg)
		}
		return UnexpectedListing("object without recognised message: " + snippet(body))
	default:
		return UnexpectedListing("unrecognised body: " + snippet(body))
	}
}

// messageOnly reports the "message" string of a JSON object body.
func messageOnly(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	raw, ok := obj["message"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false
	}
	return msg, true
}

func isNoMoreMessage(msg, marker string) bool {
	msg = strings.TrimSpace(msg)
	if marker != "" && strings.EqualFold(msg, strings.TrimSpace(marker)) {
		return true
	}
	return strings.HasPrefix(strings.ToLower(msg), "no more posts")
}

func snippet(b []byte) string {
	const max = 120
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
