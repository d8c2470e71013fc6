package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Post is a read-only copy of an article owned by the content API.
type Post struct {
	ID           Int       `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"meta_description"`
	Image        string    `json:"image"`
	Author       string    `json:"username"`
	Avatar       string    `json:"avatar"`
	CategoryName string    `json:"category_name"`
	CategorySlug string    `json:"category_slug"`
	Slug         string    `json:"slug"`
	Views        Int       `json:"views"`
	CreatedAt    Timestamp `json:"created_at"`
	ReadTime     ReadTime  `json:"read_time"`

	// Only present on single-post responses.
	Content string `json:"content,omitempty"`
	Tags    string `json:"tag_names,omitempty"`
}

// Path returns the site-relative URL of the post page.
func (p Post) Path() string {
	category := p.CategorySlug
	if category == "" {
		category = "uncategorized"
	}
	return "/" + category + "/" + p.Slug + "/"
}

// TagList splits the comma-separated tag names.
func (p Post) TagList() []string {
	var out []string
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Int decodes a JSON number or a numeric string.
type Int int64

func (n Int) String() string {
	return strconv.FormatInt(int64(n), 10)
}

func (n *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		b = []byte(s)
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("content: invalid integer %q", b)
	}
	*n = Int(v)
	return nil
}

// timestampLayouts are tried in order when decoding created_at.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp decodes the creation time in any of the layouts the API has used.
// An empty or null value decodes to the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("content: timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("content: unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// ReadTime is the estimated reading time. The API sends either a number of
// minutes or a preformatted string such as "4 min read".
type ReadTime string

func (r *ReadTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = ReadTime(strings.TrimSpace(s))
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("content: invalid read_time %q", b)
		}
		*r = ReadTime(strconv.FormatFloat(f, 'f', -1, 64) + " min read")
	}
	return nil
}
