package views

import "github.com/a-h/templ"

func NotFound(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Not found"}, component(func(h *htmlWriter) {
		h.raw(`<section class="error-page"><h1>Post not found</h1>`)
		h.raw(`<p>The page you are looking for does not exist or was removed.</p>`)
		h.raw(`<p><a href="/">Back to all posts</a></p></section>`)
	}))
}

func ServerError(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Error"}, component(func(h *htmlWriter) {
		h.raw(`<section class="error-page"><h1>Something went wrong</h1>`)
		h.raw(`<p>The blog could not be reached. Please try again in a moment.</p>`)
		h.raw(`<p><a href="/">Back to all posts</a></p></section>`)
	}))
}
