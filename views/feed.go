package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/leaknews/content"
)

// Home is the full home page.
func Home(cfg SiteConfig, feed Feed) templ.Component {
	return Layout(cfg, PageMeta{Canonical: buildURL(cfg.URL)}, HomeBody(cfg, feed))
}

// HomeBody is the home page without the layout.
func HomeBody(cfg SiteConfig, feed Feed) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<h1>Posts</h1><div id="posts" class="posts">`)
		for _, p := range feed.Posts {
			h.component(PostCard(cfg, p))
		}
		// The empty-list message lives inside the tail so a later page
		// replaces it along with the sentinel.
		writeTail(h, feed, len(feed.Posts) == 0)
		h.raw(`</div>`)
	})
}

// FeedChunk is the load-more response: the newly appended cards followed by
// a fresh tail. It replaces the previous tail in place.
func FeedChunk(cfg SiteConfig, feed Feed, posts []content.Post) templ.Component {
	return component(func(h *htmlWriter) {
		for _, p := range posts {
			h.component(PostCard(cfg, p))
		}
		h.component(FeedTail(feed))
	})
}

// PostCard renders one listing entry.
func PostCard(cfg SiteConfig, p content.Post) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<article class="post"`)
		h.attr("data-id", p.ID.String())
		h.raw(`><a class="post-link"`)
		h.url("href", p.Path())
		h.raw(`><h2>`)
		h.text(p.Title)
		h.raw(`</h2>`)
		if p.Image != "" {
			h.raw(`<img`)
			h.url("src", ImageURL(cfg, p.Image, DefaultThumbWidth))
			h.attr("alt", p.Title)
			h.raw(` loading="lazy">`)
		}
		if p.Summary != "" {
			h.raw(`<p class="summary">`)
			h.text(p.Summary)
			h.raw(`</p>`)
		}
		if p.Author != "" {
			h.raw(`<p class="meta">Posted by `)
			h.text(p.Author)
			h.raw(`</p>`)
		}
		if p.CategoryName != "" {
			h.raw(`<p class="meta">Category: `)
			h.text(p.CategoryName)
			h.raw(`</p>`)
		}
		h.raw(`</a></article>`)
	})
}

// FeedTail renders the end of the list: a load-more sentinel while the feed
// has more pages, otherwise the notice that applies.
func FeedTail(feed Feed) templ.Component {
	return component(func(h *htmlWriter) {
		writeTail(h, feed, false)
	})
}

func writeTail(h *htmlWriter, feed Feed, empty bool) {
	more := FeedURL(feed.ID)
	h.raw(`<div id="feed-tail" class="feed-tail"`)
	switch {
	case feed.Notice == NoticeRetry || feed.Notice == NoticeSlowDown:
		// Retries wait for a click so a failing API is not polled.
		h.attr("hx-get", more)
		h.raw(` hx-trigger="click" hx-swap="outerHTML">`)
	case feed.Notice == NoticeNone && feed.HasMore:
		h.attr("hx-get", more)
		h.raw(` hx-trigger="revealed" hx-swap="outerHTML">`)
	default:
		h.raw(`>`)
	}
	if empty {
		h.raw(`<p class="empty">No posts found.</p>`)
	}

	switch {
	case feed.Notice == NoticeRetry || feed.Notice == NoticeSlowDown:
		writeNotice(h, feed.Notice)
		h.raw(`<a class="load-more"`)
		h.url("href", more)
		h.raw(`>Try again</a>`)
	case feed.Notice == NoticeExpired:
		writeNotice(h, feed.Notice)
		h.raw(`<a class="load-more" href="/">Reload</a>`)
	case feed.Notice != NoticeNone:
		writeNotice(h, feed.Notice)
	case feed.HasMore:
		h.raw(`<a class="load-more"`)
		h.url("href", more)
		h.raw(`>Load More</a>`)
	case !empty:
		writeNotice(h, NoticeEnd)
	}
	h.raw(`</div>`)
}

func writeNotice(h *htmlWriter, kind NoticeKind) {
	h.raw(`<p class="notice" role="status">`)
	h.text(noticeText(kind))
	h.raw(`</p>`)
}
