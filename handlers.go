package leaknews

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/leaknews/content"
	"github.com/eringen/leaknews/pagination"
	"github.com/eringen/leaknews/views"
)

func (a *App) handleHome(c echo.Context) error {
	visitor, err := ensureVisitor(c)
	if err != nil {
		return err
	}
	seed := a.firstPage(c.Request().Context())
	ctrl := pagination.New(a.Content, seed)
	id := a.Feeds.Open(visitor, ctrl)

	st := ctrl.Snapshot()
	feed := views.Feed{ID: id, Posts: st.Items, HasMore: st.HasMore}
	return Render(c, a.Views.Home(a.siteView(), feed))
}

// firstPage fetches the seed page. Any failure renders an empty list; the
// feed still tries page 2 on the first load-more.
func (a *App) firstPage(ctx context.Context) []content.Post {
	listing, err := a.Content.ListPosts(ctx, pagination.FirstPage)
	if err != nil {
		a.logger.Warn().Err(err).Msg("First page fetch failed; rendering empty list")
		return nil
	}
	if listing.Kind == content.ListingUnexpected {
		a.logger.Warn().Str("detail", listing.Detail).Msg("Unexpected first page; rendering empty list")
		return nil
	}
	a.archivePosts(ctx, listing.Posts...)
	return listing.Posts
}

func (a *App) handleMore(c echo.Context) error {
	id := c.QueryParam("feed")
	ctrl, ok := a.Feeds.Get(id, visitorID(c))
	if !ok {
		if isHTMX(c) {
			return Render(c, a.Views.FeedTail(views.Feed{ID: id, Notice: views.NoticeExpired}))
		}
		return c.Redirect(http.StatusSeeOther, "/")
	}

	ctx := c.Request().Context()
	out := ctrl.LoadMore(ctx)
	if out.Condition == pagination.ConditionBusy && isHTMX(c) {
		return c.NoContent(http.StatusNoContent)
	}
	if out.Condition == pagination.ConditionAppended {
		a.archivePosts(ctx, out.Appended...)
	}

	st := ctrl.Snapshot()
	feed := views.Feed{ID: id, HasMore: st.HasMore, Notice: noticeFor(out.Condition, st.Last)}
	a.logger.Debug().
		Str("feed", id).
		Int("page", out.Page).
		Str("condition", out.Condition.String()).
		Int("items", len(st.Items)).
		Msg("Load more")

	if !isHTMX(c) {
		feed.Posts = st.Items
		return Render(c, a.Views.Home(a.siteView(), feed))
	}
	return Render(c, a.Views.FeedChunk(a.siteView(), feed, out.Appended))
}

// noticeFor maps a load-more outcome to the message closing the feed.
// Skipped calls repeat the condition that ended the feed.
func noticeFor(cond, last pagination.Condition) views.NoticeKind {
	if cond == pagination.ConditionSkipped {
		cond = last
	}
	switch cond {
	case pagination.ConditionExhausted:
		return views.NoticeEnd
	case pagination.ConditionUnexpected:
		return views.NoticeBroken
	case pagination.ConditionFetchFailed:
		return views.NoticeRetry
	default:
		return views.NoticeNone
	}
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	category, slug := c.Param("category"), c.Param("slug")

	post, err := a.Content.GetPost(ctx, slug)
	stale := false
	switch {
	case err == nil:
		a.archivePosts(ctx, post)
	case errors.Is(err, content.ErrNotFound):
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.siteView()))
	default:
		archived, aerr := a.Archive.GetPost(ctx, slug)
		if aerr != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "content API unavailable").SetInternal(err)
		}
		a.logger.Warn().Err(err).Str("slug", slug).Msg("Serving archived copy")
		post, stale = archived, true
	}

	if categoryOf(post.CategorySlug) != category {
		return c.Redirect(http.StatusMovedPermanently, post.Path())
	}
	return Render(c, a.Views.Post(a.siteView(), post, stale))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.index.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	listing, err := a.Content.ListPosts(c.Request().Context(), pagination.FirstPage)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "content API unavailable").SetInternal(err)
	}
	if listing.Kind == content.ListingUnexpected {
		return echo.NewHTTPError(http.StatusBadGateway, "unexpected listing").
			SetInternal(errors.New(listing.Detail))
	}
	return a.renderRSS(c, listing.Posts)
}

// handleRobots serves robots.txt from the static dir if present, otherwise
// a generated one pointing at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	if p := filepath.Join(a.staticDir, "robots.txt"); fileExists(p) {
		return c.File(p)
	}
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /more/\n")
	b.WriteString("Disallow: /thumb/\n\n")
	b.WriteString("Sitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// archivePosts stores posts in the archive. Failures are logged; pages
// render regardless.
func (a *App) archivePosts(ctx context.Context, posts ...content.Post) {
	if len(posts) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	before, _ := a.Archive.Count(ctx)
	if err := a.Archive.SavePosts(ctx, posts...); err != nil {
		a.logger.Warn().Err(err).Int("posts", len(posts)).Msg("Failed to archive posts")
		return
	}
	if after, err := a.Archive.Count(ctx); err == nil && after != before {
		a.index.Invalidate()
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.siteView()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Int("status", code).Msg("Server error")
		_ = RenderStatus(c, code, a.Views.ServerError(a.siteView()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
