package leaknews

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestHomeRendersFirstPage(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a", "b"))
	a := newTestApp(t, api)

	_, cookies, body := openFeed(t, a)
	for _, want := range []string{"Title a", "Title b", `href="/news/a/"`, "Posted by ann", "Category: News", "Load More"} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}
	if len(cookies) == 0 {
		t.Error("home page should set the visitor cookie")
	}
	if a.Feeds.Len() != 1 {
		t.Errorf("feeds = %d, want 1", a.Feeds.Len())
	}
}

func TestHomeFallsBackToEmptyList(t *testing.T) {
	api := newFakeAPI()
	api.failPage(1, http.StatusInternalServerError)
	a := newTestApp(t, api)

	id, cookies, body := openFeed(t, a)
	if !strings.Contains(body, "No posts found.") {
		t.Errorf("expected empty list message")
	}
	if !strings.Contains(body, "Load More") {
		t.Errorf("empty seed should keep the feed open")
	}
	if tail := strings.Index(body, `id="feed-tail"`); tail < 0 || strings.Index(body, "No posts found.") < tail {
		t.Errorf("empty message should be replaced with the tail: %s", body)
	}

	api.setPage(2, postsJSON("b"))
	rec := do(a, request{target: "/more/?feed=" + id, htmx: true, cookies: cookies})
	if !strings.Contains(rec.Body.String(), "Title b") || strings.Contains(rec.Body.String(), "No posts found.") {
		t.Errorf("page 2 fragment = %s", rec.Body.String())
	}
}

func TestLoadMoreFlow(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	api.setPage(2, postsJSON("b", "c"))
	a := newTestApp(t, api)

	id, cookies, _ := openFeed(t, a)
	more := request{target: "/more/?feed=" + id, htmx: true, cookies: cookies}

	rec := do(a, more)
	if rec.Code != http.StatusOK {
		t.Fatalf("page 2 = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Title b") || !strings.Contains(body, "Title c") {
		t.Errorf("page 2 cards missing: %s", body)
	}
	if strings.Contains(body, "Title a") || strings.Contains(body, "<html") {
		t.Errorf("fragment should carry only the new cards: %s", body)
	}
	if !strings.Contains(body, `hx-trigger="revealed"`) {
		t.Errorf("fragment should end with a new sentinel")
	}

	rec = do(a, more)
	if !strings.Contains(rec.Body.String(), "No more posts.") {
		t.Errorf("page 3 should end the feed: %s", rec.Body.String())
	}

	for i := 0; i < 3; i++ {
		rec = do(a, more)
		if !strings.Contains(rec.Body.String(), "No more posts.") {
			t.Errorf("exhausted feed = %s", rec.Body.String())
		}
	}
	if n := api.calls(3); n != 1 {
		t.Errorf("page 3 requested %d times, want 1", n)
	}
	if n := api.calls(4); n != 0 {
		t.Errorf("page 4 requested %d times, want 0", n)
	}
}

func TestLoadMoreWhileBusy(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	api.setPage(2, postsJSON("b"))
	gate := api.holdPage(2)
	var once sync.Once
	release := func() { once.Do(func() { close(gate.release) }) }
	defer release()

	a := newTestApp(t, api)
	id, cookies, _ := openFeed(t, a)
	more := request{target: "/more/?feed=" + id, htmx: true, cookies: cookies}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- do(a, more) }()

	select {
	case <-gate.started:
	case <-time.After(5 * time.Second):
		t.Fatal("page 2 was never requested")
	}

	rec := do(a, more)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("concurrent load-more status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("204 should have no body: %q", rec.Body.String())
	}

	release()
	rec = <-first
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Title b") {
		t.Fatalf("held request = %d %s", rec.Code, rec.Body.String())
	}
	if n := api.calls(2); n != 1 {
		t.Errorf("page 2 requested %d times, want 1", n)
	}
}

func TestLoadMoreFailureIsRetryable(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	api.failPage(2, http.StatusBadGateway)
	a := newTestApp(t, api)

	id, cookies, _ := openFeed(t, a)
	more := request{target: "/more/?feed=" + id, htmx: true, cookies: cookies}

	rec := do(a, more)
	if !strings.Contains(rec.Body.String(), "Try again") {
		t.Fatalf("failure should offer a retry: %s", rec.Body.String())
	}

	api.setPage(2, postsJSON("b"))
	rec = do(a, more)
	if !strings.Contains(rec.Body.String(), "Title b") {
		t.Errorf("retry should append page 2: %s", rec.Body.String())
	}
}

func TestLoadMoreUnexpectedEndsFeed(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	api.setPage(2, `{"unexpected":"shape"}`)
	a := newTestApp(t, api)

	id, cookies, _ := openFeed(t, a)
	more := request{target: "/more/?feed=" + id, htmx: true, cookies: cookies}

	for i := 0; i < 2; i++ {
		rec := do(a, more)
		if !strings.Contains(rec.Body.String(), "Something went wrong loading posts.") {
			t.Errorf("call %d: %s", i, rec.Body.String())
		}
	}
	if n := api.calls(2); n != 1 {
		t.Errorf("page 2 requested %d times, want 1", n)
	}
}

func TestLoadMoreWithoutHTMXRendersWholePage(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	api.setPage(2, postsJSON("b"))
	a := newTestApp(t, api)

	id, cookies, _ := openFeed(t, a)
	rec := do(a, request{target: "/more/?feed=" + id, cookies: cookies})
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "<html") {
		t.Fatalf("plain load more = %d", rec.Code)
	}
	if !strings.Contains(body, "Title a") || !strings.Contains(body, "Title b") {
		t.Errorf("full page should list every loaded post: %s", body)
	}
}

func TestLoadMoreUnknownFeed(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	a := newTestApp(t, api)
	id, cookies, _ := openFeed(t, a)

	tests := []struct {
		name       string
		req        request
		wantStatus int
		want       string
	}{
		{name: "htmx unknown id", req: request{target: "/more/?feed=nope", htmx: true, cookies: cookies}, wantStatus: http.StatusOK, want: "This page has expired."},
		{name: "htmx other visitor", req: request{target: "/more/?feed=" + id, htmx: true}, wantStatus: http.StatusOK, want: "This page has expired."},
		{name: "plain redirects home", req: request{target: "/more/?feed=nope", cookies: cookies}, wantStatus: http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(a, tt.req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.want != "" && !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %s", rec.Body.String())
			}
			if tt.wantStatus == http.StatusSeeOther && rec.Header().Get("Location") != "/" {
				t.Errorf("Location = %q", rec.Header().Get("Location"))
			}
		})
	}
}

func TestLoadMoreRateLimit(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	api.setPage(2, postsJSON("b"))
	api.setPage(3, postsJSON("c"))
	a := newTestApp(t, api, func(c *SiteConfig) { c.MoreLimit = 2 })

	id, cookies, _ := openFeed(t, a)
	more := request{target: "/more/?feed=" + id, htmx: true, cookies: cookies}
	do(a, more)
	do(a, more)

	rec := do(a, more)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Too many requests") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if n := api.calls(4); n != 0 {
		t.Errorf("rate-limited request reached the API")
	}
}

const helloPost = `{"id":7,"title":"Hello","slug":"hello","category_slug":"news","category_name":"News",
	"username":"ann","content":"<p>Body</p><script>alert(1)</script>","tag_names":"go,web","read_time":4}`

func TestPostPage(t *testing.T) {
	api := newFakeAPI()
	api.setPost("hello", helloPost)
	a := newTestApp(t, api)

	rec := do(a, request{target: "/news/hello/"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<h1>Hello</h1>", "<p>Body</p>", "<li>go</li>", "4 min read"} {
		if !strings.Contains(body, want) {
			t.Errorf("post page missing %q", want)
		}
	}
	if strings.Contains(body, "alert(1)") {
		t.Error("post body was not sanitised")
	}
}

func TestPostPageRouting(t *testing.T) {
	api := newFakeAPI()
	api.setPost("hello", helloPost)
	api.failPost("down", http.StatusServiceUnavailable)
	a := newTestApp(t, api)

	tests := []struct {
		name         string
		target       string
		wantStatus   int
		wantLocation string
		want         string
	}{
		{name: "wrong category", target: "/sports/hello/", wantStatus: http.StatusMovedPermanently, wantLocation: "/news/hello/"},
		{name: "missing slash", target: "/news/hello", wantStatus: http.StatusMovedPermanently, wantLocation: "/news/hello/"},
		{name: "not found", target: "/news/missing/", wantStatus: http.StatusNotFound, want: "Post not found"},
		{name: "api down without archive", target: "/news/down/", wantStatus: http.StatusBadGateway, want: "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(a, request{target: tt.target})
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" && rec.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLocation)
			}
			if tt.want != "" && !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

func TestPostPageServesArchivedCopy(t *testing.T) {
	api := newFakeAPI()
	api.setPost("hello", helloPost)
	a := newTestApp(t, api)

	if rec := do(a, request{target: "/news/hello/"}); rec.Code != http.StatusOK {
		t.Fatalf("first view = %d", rec.Code)
	}
	api.failPost("hello", http.StatusInternalServerError)

	rec := do(a, request{target: "/news/hello/"})
	if rec.Code != http.StatusOK {
		t.Fatalf("archived view = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "saved copy") || !strings.Contains(body, "<p>Body</p>") {
		t.Errorf("archived view = %s", body)
	}
}

func TestFeedXML(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a", "b"))
	a := newTestApp(t, api)

	rec := do(a, request{target: "/feed.xml"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if feed.Title != "Leak News" || len(feed.Items) != 2 {
		t.Fatalf("feed = %q with %d items", feed.Title, len(feed.Items))
	}
	item := feed.Items[0]
	if item.Title != "Title a" || item.Link != "https://leak.example.com/news/a/" {
		t.Errorf("item = %q %q", item.Title, item.Link)
	}
	if item.PublishedParsed == nil {
		t.Error("item has no parsable pubDate")
	}
	if item.DublinCoreExt == nil || len(item.DublinCoreExt.Creator) != 1 || item.DublinCoreExt.Creator[0] != "ann" {
		t.Errorf("item creator = %+v", item.DublinCoreExt)
	}
	if strings.Contains(rec.Body.String(), "<author>") {
		t.Error("RSS <author> takes an email address, not a username")
	}
}

func TestFeedXMLUpstreamFailure(t *testing.T) {
	api := newFakeAPI()
	api.failPage(1, http.StatusInternalServerError)
	a := newTestApp(t, api)

	if rec := do(a, request{target: "/feed.xml"}); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSitemapListsArchivedPosts(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a", "b"))
	a := newTestApp(t, api)

	openFeed(t, a)
	rec := do(a, request{target: "/sitemap.xml"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<loc>https://leak.example.com</loc>",
		"<loc>https://leak.example.com/news/a/</loc>",
		"<loc>https://leak.example.com/news/b/</loc>",
		"<lastmod>2024-03-01</lastmod>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("sitemap missing %q", want)
		}
	}
}

func TestRobotsAndHealth(t *testing.T) {
	a := newTestApp(t, newFakeAPI())

	rec := do(a, request{target: "/robots.txt"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Sitemap: https://leak.example.com/sitemap.xml") {
		t.Errorf("robots = %d %q", rec.Code, rec.Body.String())
	}
	rec = do(a, request{target: "/healthz"})
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api := newFakeAPI()
	api.setPage(1, postsJSON("a"))
	a := newTestApp(t, api)
	openFeed(t, a)

	rec := do(a, request{target: "/metrics"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"leaknews_http_requests_total", "leaknews_content_requests_total", "leaknews_feed_sessions"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestCacheControl(t *testing.T) {
	api := newFakeAPI()
	api.setPost("hello", helloPost)
	a := newTestApp(t, api)

	tests := []struct {
		target string
		want   string
	}{
		{"/", "no-store"},
		{"/news/hello/", "public, max-age=300"},
		{"/robots.txt", "public, max-age=3600"},
		{"/public/leaknews.css", "public, max-age=31536000, immutable"},
	}
	for _, tt := range tests {
		rec := do(a, request{target: tt.target})
		if got := rec.Header().Get("Cache-Control"); got != tt.want {
			t.Errorf("%s Cache-Control = %q, want %q", tt.target, got, tt.want)
		}
	}
}
