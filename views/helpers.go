package views

import (
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// DefaultThumbWidth is the card image width requested from the thumbnail proxy.
const DefaultThumbWidth = 640

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// ImageHostAllowed reports whether host matches one of hosts, either exactly
// or as a subdomain.
func ImageHostAllowed(hosts []string, host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ImageURL returns the src to use for a post image: the thumbnail proxy for
// allowed hosts, the original URL otherwise.
func ImageURL(cfg SiteConfig, src string, width int) string {
	if !cfg.Thumbnails || src == "" {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return src
	}
	if !ImageHostAllowed(cfg.ThumbnailHosts, u.Hostname()) {
		return src
	}
	q := url.Values{}
	q.Set("src", src)
	q.Set("w", strconv.Itoa(width))
	return "/thumb/?" + q.Encode()
}

// FeedURL is the load-more endpoint for a feed session.
func FeedURL(id string) string {
	return "/more/?feed=" + url.QueryEscape(id)
}

// formatDate renders a post date, or "" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func noticeText(kind NoticeKind) string {
	switch kind {
	case NoticeEnd:
		return "No more posts."
	case NoticeRetry:
		return "Couldn't load more posts. Try again."
	case NoticeBroken:
		return "Something went wrong loading posts."
	case NoticeExpired:
		return "This page has expired."
	case NoticeSlowDown:
		return "Too many requests. Wait a moment and try again."
	default:
		return ""
	}
}
