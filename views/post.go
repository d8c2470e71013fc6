package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/leaknews/content"
)

// Post is the single post page. Stale marks a copy served from the archive
// while the content API is unreachable.
func Post(cfg SiteConfig, post content.Post, stale bool) templ.Component {
	meta := PageMeta{
		Title:     post.Title,
		Canonical: buildURL(cfg.URL, post.Path()),
	}
	return Layout(cfg, meta, PostBody(cfg, post, stale))
}

// PostBody is the post page without the layout. The post content has been
// sanitised by the content client and is written as is.
func PostBody(cfg SiteConfig, post content.Post, stale bool) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<article class="post-container">`)
		if stale {
			h.raw(`<p class="notice stale" role="status">The blog is not responding. This is a saved copy and may be out of date.</p>`)
		}
		h.raw(`<h1>`)
		h.text(post.Title)
		h.raw(`</h1>`)

		h.raw(`<div class="byline">`)
		if post.Avatar != "" {
			h.raw(`<img class="avatar"`)
			h.url("src", post.Avatar)
			h.attr("alt", post.Author)
			h.raw(` width="32" height="32">`)
		}
		if post.Author != "" {
			h.raw(`<span class="author">`)
			h.text(post.Author)
			h.raw(`</span>`)
		}
		if d := formatDate(post.CreatedAt.Time); d != "" {
			h.raw(`<time`)
			h.attr("datetime", post.CreatedAt.Format("2006-01-02"))
			h.raw(`>`)
			h.text(d)
			h.raw(`</time>`)
		}
		if post.ReadTime != "" {
			h.raw(`<span class="read-time">`)
			h.text(string(post.ReadTime))
			h.raw(`</span>`)
		}
		if post.Views > 0 {
			h.raw(`<span class="views">`)
			h.text(post.Views.String() + " views")
			h.raw(`</span>`)
		}
		h.raw(`</div>`)

		if post.Image != "" {
			h.raw(`<img class="hero"`)
			h.url("src", ImageURL(cfg, post.Image, 960))
			h.attr("alt", post.Title)
			h.raw(`>`)
		}
		h.raw(`<div class="content">`)
		if post.Content != "" {
			h.component(templ.Raw(post.Content))
		} else if post.Summary != "" {
			// Archived listing copies carry no body.
			h.raw(`<p>`)
			h.text(post.Summary)
			h.raw(`</p>`)
		}
		h.raw(`</div>`)

		if post.Author != "" {
			h.raw(`<p class="meta">Posted by `)
			h.text(post.Author)
			h.raw(`</p>`)
		}
		if post.CategoryName != "" {
			h.raw(`<p class="meta">Category: `)
			h.text(post.CategoryName)
			h.raw(`</p>`)
		}
		if tags := post.TagList(); len(tags) > 0 {
			h.raw(`<ul class="tags">`)
			for _, t := range tags {
				h.raw(`<li>`)
				h.text(t)
				h.raw(`</li>`)
			}
			h.raw(`</ul>`)
		}
		h.raw(`<p><a href="/">Back to all posts</a></p></article>`)
	})
}
