package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/leaknews/content"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("render: %v", err)
	}
	return sb.String()
}

var testSite = SiteConfig{Name: "Leak News", URL: "https://leak.example.com"}

func TestHomeEmpty(t *testing.T) {
	out := render(t, Home(testSite, Feed{ID: "f1", HasMore: true}))
	for _, want := range []string{
		"<title>Leak News</title>",
		"No posts found.",
		`hx-get="/more/?feed=f1"`,
		`hx-trigger="revealed"`,
		`<link rel="canonical" href="https://leak.example.com">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("home page missing %q", want)
		}
	}
}

func TestEmptyMessageIsPartOfTail(t *testing.T) {
	tests := []struct {
		name string
		feed Feed
		want string
	}{
		{name: "feed still open", feed: Feed{ID: "f1", HasMore: true}, want: "Load More"},
		{name: "retry pending", feed: Feed{ID: "f1", HasMore: true, Notice: NoticeRetry}, want: "Try again</a>"},
		{name: "feed ended", feed: Feed{ID: "f1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, HomeBody(testSite, tt.feed))
			tail := strings.Index(out, `id="feed-tail"`)
			empty := strings.Index(out, "No posts found.")
			if tail < 0 || empty < tail {
				t.Fatalf("empty message should sit inside the tail: %s", out)
			}
			if strings.Count(out, "No posts found.") != 1 {
				t.Errorf("empty message repeated: %s", out)
			}
			if tt.want != "" && !strings.Contains(out[tail:], tt.want) {
				t.Errorf("tail missing %q: %s", tt.want, out)
			}
		})
	}

	chunk := render(t, FeedChunk(testSite, Feed{ID: "f1", HasMore: true}, []content.Post{{Slug: "b", Title: "B"}}))
	if strings.Contains(chunk, "No posts found.") {
		t.Errorf("load-more fragment should not repeat the empty message: %s", chunk)
	}
}

func TestPostCardEscapes(t *testing.T) {
	p := content.Post{
		ID:           9,
		Title:        `<b>"Breaking"</b>`,
		Summary:      "a & b",
		Image:        "javascript:alert(1)",
		Author:       "ann",
		CategoryName: "News",
		CategorySlug: "news",
		Slug:         "breaking",
	}
	out := render(t, PostCard(testSite, p))
	if strings.Contains(out, "<b>") {
		t.Errorf("title not escaped: %s", out)
	}
	if strings.Contains(out, "javascript:") {
		t.Errorf("unsafe image URL rendered: %s", out)
	}
	for _, want := range []string{`href="/news/breaking/"`, "a &amp; b", "Posted by ann", "Category: News", `data-id="9"`} {
		if !strings.Contains(out, want) {
			t.Errorf("card missing %q in %s", want, out)
		}
	}
}

func TestFeedTail(t *testing.T) {
	tests := []struct {
		name    string
		feed    Feed
		want    []string
		notWant []string
	}{
		{
			name:    "sentinel",
			feed:    Feed{ID: "abc", HasMore: true},
			want:    []string{`hx-trigger="revealed"`, "Load More", `href="/more/?feed=abc"`},
			notWant: []string{"notice"},
		},
		{
			name:    "exhausted",
			feed:    Feed{ID: "abc"},
			want:    []string{"No more posts."},
			notWant: []string{"hx-get"},
		},
		{
			name: "retry",
			feed: Feed{ID: "abc", HasMore: true, Notice: NoticeRetry},
			want: []string{`hx-trigger="click"`, "Couldn&#39;t load more posts. Try again.", "Try again</a>"},
		},
		{
			name:    "broken",
			feed:    Feed{ID: "abc", Notice: NoticeBroken},
			want:    []string{"Something went wrong loading posts."},
			notWant: []string{"hx-get"},
		},
		{
			name: "expired",
			feed: Feed{ID: "abc", Notice: NoticeExpired},
			want: []string{"This page has expired.", `href="/"`},
		},
		{
			name: "rate limited",
			feed: Feed{ID: "abc", HasMore: true, Notice: NoticeSlowDown},
			want: []string{"Too many requests.", `hx-trigger="click"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, FeedTail(tt.feed))
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %q in %s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("unexpected %q in %s", w, out)
				}
			}
		})
	}
}

func TestFeedChunkKeepsOrder(t *testing.T) {
	posts := []content.Post{{Slug: "one", Title: "One"}, {Slug: "two", Title: "Two"}}
	out := render(t, FeedChunk(testSite, Feed{ID: "x", HasMore: true}, posts))
	i, j, k := strings.Index(out, "One"), strings.Index(out, "Two"), strings.Index(out, "feed-tail")
	if i < 0 || j < 0 || k < 0 || !(i < j && j < k) {
		t.Errorf("cards or tail out of order: %s", out)
	}
	if strings.Contains(out, "<html") {
		t.Error("fragment should not include the layout")
	}
}

func TestPostPage(t *testing.T) {
	p := content.Post{
		Title:        "Hello",
		Slug:         "hello",
		CategorySlug: "news",
		CategoryName: "News",
		Author:       "ann",
		Content:      "<p>Body <em>text</em></p>",
		Tags:         "go, web",
		ReadTime:     "3 min read",
		Views:        12,
		CreatedAt:    content.Timestamp{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	out := render(t, Post(testSite, p, false))
	for _, want := range []string{
		"<title>Hello | Leak News</title>",
		"<p>Body <em>text</em></p>",
		"<li>go</li><li>web</li>",
		"Mar 1, 2024",
		"3 min read",
		"12 views",
		`href="https://leak.example.com/news/hello/"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("post page missing %q", want)
		}
	}
	if strings.Contains(out, "saved copy") {
		t.Error("fresh post should not carry the stale notice")
	}
	if stale := render(t, Post(testSite, p, true)); !strings.Contains(stale, "saved copy") {
		t.Error("stale post should carry the stale notice")
	}
}

func TestImageURL(t *testing.T) {
	cfg := SiteConfig{Thumbnails: true, ThumbnailHosts: []string{"cdn.example.com"}}
	tests := []struct {
		src  string
		want string
	}{
		{"https://cdn.example.com/a.jpg", "/thumb/?src=https%3A%2F%2Fcdn.example.com%2Fa.jpg&w=640"},
		{"https://img.cdn.example.com/a.jpg", "/thumb/?src=https%3A%2F%2Fimg.cdn.example.com%2Fa.jpg&w=640"},
		{"https://evil.com/a.jpg", "https://evil.com/a.jpg"},
		{"https://notcdn.example.com.evil.com/a.jpg", "https://notcdn.example.com.evil.com/a.jpg"},
		{"/local.png", "/local.png"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ImageURL(cfg, tt.src, DefaultThumbWidth); got != tt.want {
			t.Errorf("ImageURL(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
	cfg.Thumbnails = false
	if got := ImageURL(cfg, "https://cdn.example.com/a.jpg", 640); got != "https://cdn.example.com/a.jpg" {
		t.Errorf("disabled thumbnails rewrote URL: %q", got)
	}
}

func TestErrorPages(t *testing.T) {
	if out := render(t, NotFound(testSite)); !strings.Contains(out, "Post not found") {
		t.Errorf("not found page: %s", out)
	}
	if out := render(t, ServerError(testSite)); !strings.Contains(out, "Something went wrong") {
		t.Errorf("server error page: %s", out)
	}
}
