package views

import "github.com/eringen/leaknews/content"

// SiteConfig holds the site-wide settings templates need. Handlers pass it
// to every page so nothing is hardcoded.
type SiteConfig struct {
	Name        string
	URL         string
	Description string

	// Thumbnails routes card images through the /thumb/ proxy for hosts
	// listed in ThumbnailHosts.
	Thumbnails     bool
	ThumbnailHosts []string
}

// PageMeta carries the per-page <head> values.
type PageMeta struct {
	Title     string
	Canonical string
}

// NoticeKind selects the inline message shown at the end of a feed.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	// NoticeEnd is shown once the feed is exhausted.
	NoticeEnd
	// NoticeRetry follows a failed fetch; the visitor can try again.
	NoticeRetry
	// NoticeBroken follows a response the feed could not interpret.
	NoticeBroken
	// NoticeExpired is shown when the feed session no longer exists.
	NoticeExpired
	// NoticeSlowDown is shown when the visitor hit the load-more rate limit.
	NoticeSlowDown
)

// Feed is what the home page and its fragments render.
type Feed struct {
	ID      string
	Posts   []content.Post
	HasMore bool
	Notice  NoticeKind
}
