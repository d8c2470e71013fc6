// Package content is the client for the remote content API that owns every
// post. Raw responses are validated here, at the boundary, into typed
// results; nothing past this package guesses at response shapes.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 8 << 20

// Config holds the client configuration.
type Config struct {
	// BaseURL is the content API endpoint, e.g. "https://blog.example.com/apis".
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Retry controls retries of server and network failures.
	Retry RetryConfig

	// NoMoreMarker is the message that signals the end of the listing.
	NoMoreMarker string

	// Cache stores validated bodies; nil disables caching.
	Cache    Cache
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration for baseURL with safe defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		UserAgent:    "leaknews/dev",
		Timeout:      10 * time.Second,
		Retry:        DefaultRetryConfig(),
		NoMoreMarker: DefaultNoMoreMarker,
		CacheTTL:     time.Minute,
	}
}

// Client talks to the content API.
type Client struct {
	httpClient *http.Client
	base       *url.URL
	config     Config
	cache      Cache
	logger     zerolog.Logger
}

// New creates a content API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", base.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.NoMoreMarker == "" {
		cfg.NoMoreMarker = DefaultNoMoreMarker
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NopCache{}
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		base:       base,
		config:     cfg,
		cache:      cache,
		logger:     log.With().Str("component", "content-client").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the parsed content API endpoint.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// ListPosts fetches one page of the post listing. Transport failures are
// returned as *Error; every 2xx body yields a Listing.
func (c *Client) ListPosts(ctx context.Context, page int) (Listing, error) {
	if page < 1 {
		return Listing{}, fmt.Errorf("page must be >= 1 (got %d)", page)
	}
	endpoint := c.endpoint("posts&page=" + strconv.Itoa(page))
	key := "posts:" + strconv.Itoa(page)

	if body, ok := c.cached(ctx, key); ok {
		listing := decodeListing(body, c.config.NoMoreMarker)
		if listing.Kind != ListingUnexpected {
			return listing, nil
		}
	}

	body, err := c.get(ctx, "list", endpoint)
	if err != nil {
		return Listing{}, err
	}

	listing := decodeListing(body, c.config.NoMoreMarker)
	listingsTotal.WithLabelValues(listing.Kind.String()).Inc()
	switch listing.Kind {
	case ListingUnexpected:
		c.logger.Warn().Int("page", page).Str("detail", listing.Detail).Msg("Unexpected listing response")
	default:
		c.store(ctx, key, body)
	}
	c.logger.Debug().Int("page", page).Str("kind", listing.Kind.String()).Int("posts", len(listing.Posts)).Msg("Listing fetched")
	return listing, nil
}

// GetPost fetches a single post by slug. The post body is sanitised.
func (c *Client) GetPost(ctx context.Context, slug string) (Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Post{}, ErrNotFound
	}
	endpoint := c.endpoint("post_slug=" + url.QueryEscape(slug))
	key := "post:" + slug

	body, ok := c.cached(ctx, key)
	if !ok {
		var err error
		body, err = c.get(ctx, "post", endpoint)
		if err != nil {
			var cerr *Error
			if errors.As(err, &cerr) && cerr.StatusCode == http.StatusNotFound {
				return Post{}, ErrNotFound
			}
			return Post{}, err
		}
	}

	post, err := decodePost(body)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn().Str("slug", slug).Err(err).Msg("Unexpected post response")
		}
		return Post{}, err
	}
	if !ok {
		c.store(ctx, key, body)
	}

	clean, err := SanitizeHTML(post.Content)
	if err != nil {
		return Post{}, fmt.Errorf("sanitize post %q: %w", slug, err)
	}
	post.Content = clean
	return post, nil
}

// endpoint appends query to the base URL, keeping any query the base has.
// The listing query starts with a bare "posts" flag, so it is built by hand
// instead of through url.Values.
func (c *Client) endpoint(query string) string {
	u := *c.base
	if u.RawQuery != "" {
		u.RawQuery += "&" + query
	} else {
		u.RawQuery = query
	}
	return u.String()
}

// get performs a GET with retries. It returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(op, "network_error").Inc()
			c.logger.Error().Err(err).Str("op", op).Msg("HTTP request failed")
			return &Error{Class: ErrorClassNetwork, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()
		requestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			class := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("op", op).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("Content API request error")
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
			return &Error{StatusCode: resp.StatusCode, Class: class, Message: resp.Status}
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &Error{StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Message: "read body", Err: err}
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache get error")
		return nil, false
	}
	return body, ok
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if err := c.cache.Set(ctx, key, body, c.config.CacheTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
	}
}

// decodePost validates a single-post body.
func decodePost(body []byte) (Post, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return Post{}, fmt.Errorf("%w: %s", ErrUnexpectedResponse, snippet(body))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Post{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	_, hasSlug := fields["slug"]
	_, hasTitle := fields["title"]
	if !hasSlug && !hasTitle {
		if _, hasMsg := fields["message"]; hasMsg {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("%w: %s", ErrUnexpectedResponse, snippet(body))
	}
	var post Post
	if err := json.Unmarshal(body, &post); err != nil {
		return Post{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return post, nil
}
