// Package leaknews is a server-rendered front end for a remote blog content
// API, built with Go, Echo and templ. It renders the post listing with
// "load more" pagination, single post pages, RSS and a sitemap.
//
// Each rendered home page opens a feed session holding its own pagination
// controller; HTMX fragment requests advance that session.
package leaknews

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/leaknews/content"
	"github.com/eringen/leaknews/views"
)

// Version is set at build time with -ldflags "-X github.com/eringen/leaknews.Version=...".
var Version = "dev"

// ViewFuncs holds the templ components the handlers render. New fills it
// with the views package defaults; callers may replace any of them.
type ViewFuncs struct {
	Home        func(cfg views.SiteConfig, feed views.Feed) templ.Component
	FeedChunk   func(cfg views.SiteConfig, feed views.Feed, posts []content.Post) templ.Component
	FeedTail    func(feed views.Feed) templ.Component
	Post        func(cfg views.SiteConfig, post content.Post, stale bool) templ.Component
	NotFound    func(cfg views.SiteConfig) templ.Component
	ServerError func(cfg views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		FeedChunk:   views.FeedChunk,
		FeedTail:    views.FeedTail,
		Post:        views.Post,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// App is the central leaknews application. It wires together the content
// client, the archive, feed sessions, handlers and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Content *content.Client
	Archive *Archive
	Feeds   *FeedRegistry
	Views   ViewFuncs

	index       *ArchiveIndex
	moreLimiter *RateLimiter
	cache       content.Cache
	redis       *redis.Client
	httpClient  *http.Client
	thumbClient *http.Client
	registry    *prometheus.Registry

	customRoutes []func(*App)
	staticDir    string
	stops        []func()
	initialized  bool
	logger       zerolog.Logger
}

// New creates a leaknews App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     DefaultViews(),
		staticDir: "public",
		logger:    log.With().Str("component", "web").Logger(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init connects the cache, content client and archive, then registers
// middleware and routes. Start calls it; tests call it directly and drive
// the app through a.Echo.ServeHTTP.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if strings.TrimSpace(a.Config.ContentAPI) == "" {
		return fmt.Errorf("leaknews: ContentAPI is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("leaknews: SessionSecret is required")
	}

	if err := a.initCache(); err != nil {
		return err
	}

	client, err := content.New(a.Config.contentConfig(a.cache))
	if err != nil {
		return fmt.Errorf("leaknews: init content client: %w", err)
	}
	if a.httpClient != nil {
		client.SetHTTPClient(a.httpClient)
	} else {
		a.httpClient = &http.Client{Timeout: a.Config.ContentTimeout}
	}
	a.Content = client
	a.thumbClient = a.newThumbClient()

	archive, err := OpenArchive(a.Config.ArchivePath)
	if err != nil {
		return fmt.Errorf("leaknews: init archive: %w", err)
	}
	a.Archive = archive
	a.index = NewArchiveIndex(archive, 5*time.Minute)

	a.Feeds = NewFeedRegistry(a.Config.FeedTTL, a.Config.MaxFeeds)
	a.stops = append(a.stops, a.Feeds.StartSweeper(time.Minute))

	a.moreLimiter = NewRateLimiter(a.Config.MoreLimit, time.Minute)
	a.stops = append(a.stops, a.moreLimiter.StartCleanup())

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	return nil
}

func (a *App) initCache() error {
	if a.cache != nil {
		return nil
	}
	if a.Config.Redis.Addr == "" {
		mem := content.NewMemoryCache(content.WithMaxEntries(a.Config.CacheEntries))
		a.cache = mem
		a.stops = append(a.stops, every(time.Minute, mem.Sweep))
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("leaknews: connect redis at %s: %w", a.Config.Redis.Addr, err)
	}
	a.redis = rdb
	a.cache = content.NewRedisCache(rdb, "leaknews:")
	a.logger.Info().Str("addr", a.Config.Redis.Addr).Msg("Using Redis response cache")
	return nil
}

// Start initializes the app and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.logger.Info().Str("addr", a.Config.Addr).Str("content_api", a.Config.ContentAPI).Msg("Starting server")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Built-in assets are served under /public/ and fall through to the
	// user's static dir.
	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	assetHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(assets))))
	e.GET("/public/leaknews.css", assetHandler)
	e.GET("/public/loadmore.js", assetHandler)
	e.Static("/public", a.staticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/healthz", handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.gatherer(), promhttp.HandlerOpts{})))
	e.GET("/thumb/", a.handleThumb)

	e.GET("/", a.handleHome)
	e.GET("/more/", a.handleMore, a.moreRateLimit)
	e.GET("/:category/:slug/", a.handlePost)
}

func (a *App) gatherer() prometheus.Gatherer {
	if a.registry == nil {
		return prometheus.DefaultGatherer
	}
	return prometheus.Gatherers{a.registry, prometheus.DefaultGatherer}
}

func (a *App) siteView() views.SiteConfig {
	return views.SiteConfig{
		Name:           a.Config.Name,
		URL:            a.Config.URL,
		Description:    a.Config.Description,
		Thumbnails:     a.Config.Thumbnails,
		ThumbnailHosts: a.Config.ThumbnailHosts,
	}
}

// Close stops background work and releases resources. Call this when the
// app is shutting down.
func (a *App) Close() error {
	for _, stop := range a.stops {
		stop()
	}
	a.stops = nil
	var errs []error
	if a.Archive != nil {
		errs = append(errs, a.Archive.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

// every runs fn on each tick until the returned stop func is called.
func every(interval time.Duration, fn func()) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
