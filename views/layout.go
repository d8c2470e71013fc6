package views

import "github.com/a-h/templ"

// Layout wraps body in the site chrome.
func Layout(cfg SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		title := cfg.Name
		if meta.Title != "" {
			title = meta.Title + " | " + cfg.Name
		}
		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title>`)
		if meta.Canonical != "" {
			h.raw(`<link rel="canonical"`)
			h.url("href", meta.Canonical)
			h.raw(`>`)
		}
		h.raw(`<link rel="alternate" type="application/rss+xml"`)
		h.attr("title", cfg.Name)
		h.raw(` href="/feed.xml">`)
		h.raw(`<link rel="stylesheet" href="/public/leaknews.css">`)
		h.raw(`<script src="/public/loadmore.js" defer></script>`)
		h.raw(`</head><body><header class="site-header"><a class="site-name" href="/">`)
		h.text(cfg.Name)
		h.raw(`</a></header><main class="container">`)
		h.component(body)
		h.raw(`</main></body></html>`)
	})
}
