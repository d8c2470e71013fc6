// Package pagination implements the "load more" controller behind the home
// page feed: a page cursor, an exhaustion flag and a single in-flight fetch.
//
// A Controller is owned by one page session. It appends pages strictly in
// cursor order and never issues a second request while one is pending.
package pagination

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/leaknews/content"
)

// FirstPage is the cursor value of the server-rendered seed page.
const FirstPage = 1

// Source fetches one page of the listing. A non-nil error is a transport
// failure; every other outcome is carried by the Listing kind.
type Source interface {
	ListPosts(ctx context.Context, page int) (content.Listing, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, page int) (content.Listing, error)

func (f SourceFunc) ListPosts(ctx context.Context, page int) (content.Listing, error) {
	return f(ctx, page)
}

// Condition is the result of the most recent LoadMore call.
type Condition int

const (
	// ConditionNone means no LoadMore has completed since Initialize.
	ConditionNone Condition = iota
	// ConditionAppended means a non-empty page was appended.
	ConditionAppended
	// ConditionExhausted means the source has no further pages.
	ConditionExhausted
	// ConditionUnexpected means the source broke its response contract.
	ConditionUnexpected
	// ConditionFetchFailed means the request failed; a retry may succeed.
	ConditionFetchFailed
	// ConditionBusy means a fetch was already in flight; nothing was issued.
	ConditionBusy
	// ConditionSkipped means pagination had already ended; nothing was issued.
	ConditionSkipped
)

func (c Condition) String() string {
	switch c {
	case ConditionNone:
		return "none"
	case ConditionAppended:
		return "appended"
	case ConditionExhausted:
		return "exhausted"
	case ConditionUnexpected:
		return "unexpected"
	case ConditionFetchFailed:
		return "fetch_failed"
	case ConditionBusy:
		return "busy"
	case ConditionSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("condition(%d)", int(c))
	}
}

// Outcome describes one LoadMore call.
type Outcome struct {
	Condition Condition
	// Page is the cursor that was requested, or 0 when nothing was issued.
	Page int
	// Appended holds exactly the posts added by this call.
	Appended []content.Post
	// Err is set for ConditionFetchFailed and ConditionUnexpected.
	Err error
	// HasMore is the exhaustion flag after the call.
	HasMore bool
}

// State is a point-in-time copy of the controller state.
type State struct {
	Items    []content.Post
	NextPage int
	HasMore  bool
	Pending  bool
	// Last is the most recent recorded condition; Busy and Skipped calls
	// do not overwrite it.
	Last    Condition
	LastErr error
}

// Controller tracks the feed for one page session.
type Controller struct {
	mu       sync.Mutex
	source   Source
	items    []content.Post
	nextPage int
	hasMore  bool
	pending  bool
	last     Condition
	lastErr  error
	epoch    uint64
	logger   zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New returns a controller initialised with seed, the already rendered
// first page. A nil or empty seed is valid.
func New(source Source, seed []content.Post, opts ...Option) *Controller {
	c := &Controller{
		source: source,
		logger: log.With().Str("component", "pagination").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Initialize(seed)
	return c
}

// Initialize sets the session's starting state. It is meant to be called
// once; a fetch still in flight from before the call is discarded when it
// completes.
func (c *Controller) Initialize(seed []content.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]content.Post(nil), seed...)
	c.nextPage = FirstPage + 1
	c.hasMore = true
	c.pending = false
	c.last = ConditionNone
	c.lastErr = nil
	c.epoch++
}

// LoadMore requests the next page and applies the result. Calls made while
// the feed is exhausted or while a fetch is pending return immediately
// without issuing a request. Cancelling ctx does not abort a fetch that
// has started; it runs to completion under the transport's own timeout.
func (c *Controller) LoadMore(ctx context.Context) Outcome {
	c.mu.Lock()
	if !c.hasMore {
		c.mu.Unlock()
		outcomesTotal.WithLabelValues(ConditionSkipped.String()).Inc()
		return Outcome{Condition: ConditionSkipped}
	}
	if c.pending {
		c.mu.Unlock()
		outcomesTotal.WithLabelValues(ConditionBusy.String()).Inc()
		return Outcome{Condition: ConditionBusy, HasMore: true}
	}
	c.pending = true
	page := c.nextPage
	epoch := c.epoch
	c.mu.Unlock()

	var out Outcome
	defer func() {
		c.mu.Lock()
		if c.epoch == epoch {
			c.pending = false
		}
		c.mu.Unlock()
		outcomesTotal.WithLabelValues(out.Condition.String()).Inc()
	}()

	listing, err := c.fetch(context.WithoutCancel(ctx), page)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.logger.Debug().Int("page", page).Msg("Discarding page fetched before re-initialise")
		out = Outcome{Condition: ConditionSkipped, Page: page, HasMore: c.hasMore}
		return out
	}
	out = c.apply(page, listing, err)
	return out
}

// fetch calls the source, turning a panic into a transport-style failure so
// the pending flag is always cleared by the caller's deferred cleanup.
func (c *Controller) fetch(ctx context.Context, page int) (listing content.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content source panicked: %v", r)
		}
	}()
	return c.source.ListPosts(ctx, page)
}

// apply folds a fetch result into the state. Caller holds c.mu.
func (c *Controller) apply(page int, listing content.Listing, err error) Outcome {
	if err != nil {
		c.last = ConditionFetchFailed
		c.lastErr = err
		c.logger.Warn().Err(err).Int("page", page).Msg("Page fetch failed")
		return Outcome{Condition: ConditionFetchFailed, Page: page, Err: err, HasMore: c.hasMore}
	}

	switch {
	case listing.Kind == content.ListingPage && len(listing.Posts) > 0:
		appended := append([]content.Post(nil), listing.Posts...)
		c.items = append(c.items, appended...)
		c.nextPage++
		c.hasMore = true
		c.last = ConditionAppended
		c.lastErr = nil
		c.logger.Debug().Int("page", page).Int("posts", len(appended)).Int("total", len(c.items)).Msg("Page appended")
		return Outcome{Condition: ConditionAppended, Page: page, Appended: appended, HasMore: true}

	case listing.Kind == content.ListingPage, listing.Kind == content.ListingExhausted:
		c.hasMore = false
		c.last = ConditionExhausted
		c.lastErr = nil
		c.logger.Debug().Int("page", page).Str("detail", listing.Detail).Msg("Feed exhausted")
		return Outcome{Condition: ConditionExhausted, Page: page}

	default:
		err := fmt.Errorf("%w: %s", content.ErrUnexpectedResponse, listing.Detail)
		c.hasMore = false
		c.last = ConditionUnexpected
		c.lastErr = err
		c.logger.Warn().Int("page", page).Str("detail", listing.Detail).Msg("Unexpected listing; ending feed")
		return Outcome{Condition: ConditionUnexpected, Page: page, Err: err}
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Items:    append([]content.Post(nil), c.items...),
		NextPage: c.nextPage,
		HasMore:  c.hasMore,
		Pending:  c.pending,
		Last:     c.last,
		LastErr:  c.lastErr,
	}
}

// Len returns the number of items loaded so far.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
