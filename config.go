package leaknews

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/leaknews/content"
)

// SiteConfig holds all configuration for a leaknews site. The mapstructure
// tags match the keys read by the CLI.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Leak News")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Used by RSS
	Addr        string `mapstructure:"addr"`        // Listen address (default ":3000")

	ContentAPI     string        `mapstructure:"content_api"` // Required: content API endpoint
	UserAgent      string        `mapstructure:"user_agent"`
	ContentTimeout time.Duration `mapstructure:"content_timeout"` // Per attempt (default 10s)
	MaxAttempts    int           `mapstructure:"max_attempts"`    // Default 2
	NoMoreMarker   string        `mapstructure:"no_more_marker"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`     // Response cache TTL (default 1m)
	CacheEntries   int           `mapstructure:"cache_entries"` // In-memory cache size (default 4096)
	Redis          RedisConfig   `mapstructure:"redis"`

	ArchivePath string `mapstructure:"archive_path"` // SQLite path (default "data/archive.db")

	SessionSecret string `mapstructure:"session_secret"` // Required: cookie signing secret
	CookieSecure  bool   `mapstructure:"cookie_secure"`  // Set true for HTTPS

	FeedTTL   time.Duration `mapstructure:"feed_ttl"`   // Idle feed session lifetime (default 30m)
	MaxFeeds  int           `mapstructure:"max_feeds"`  // Live feed sessions (default 10000)
	MoreLimit int           `mapstructure:"more_limit"` // Load-more requests per IP per minute (default 60)

	Thumbnails     bool     `mapstructure:"thumbnails"`
	ThumbnailHosts []string `mapstructure:"thumbnail_hosts"`

	Log LogConfig `mapstructure:"log"`
}

// RedisConfig enables the Redis response cache when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Leak News"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.UserAgent == "" {
		c.UserAgent = "leaknews/" + Version
	}
	if c.ContentTimeout == 0 {
		c.ContentTimeout = 10 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 2
	}
	if c.NoMoreMarker == "" {
		c.NoMoreMarker = content.DefaultNoMoreMarker
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Minute
	}
	if c.ArchivePath == "" {
		c.ArchivePath = "data/archive.db"
	}
	if c.FeedTTL == 0 {
		c.FeedTTL = 30 * time.Minute
	}
	if c.MaxFeeds == 0 {
		c.MaxFeeds = 10000
	}
	if c.MoreLimit == 0 {
		c.MoreLimit = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// contentConfig maps the site configuration onto the content client's.
func (c SiteConfig) contentConfig(cache content.Cache) content.Config {
	cfg := content.DefaultConfig(c.ContentAPI)
	cfg.UserAgent = c.UserAgent
	cfg.Timeout = c.ContentTimeout
	cfg.Retry.MaxAttempts = c.MaxAttempts
	cfg.NoMoreMarker = c.NoMoreMarker
	cfg.Cache = cache
	cfg.CacheTTL = c.CacheTTL
	return cfg
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithRegistry registers HTTP metrics on reg and serves it on /metrics
// alongside the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = reg
	}
}

// WithCache sets the content response cache, overriding the Redis and
// in-memory defaults.
func WithCache(c content.Cache) Option {
	return func(a *App) {
		a.cache = c
	}
}

// WithHTTPClient sets the client used for the content API and the
// thumbnail proxy.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.httpClient = c
	}
}
