package leaknews

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/leaknews/pagination"
)

// FeedRegistry holds the pagination controller of every rendered home page.
// A feed is only reachable by the visitor that opened it and is dropped
// after it has been idle for the TTL.
type FeedRegistry struct {
	mu     sync.Mutex
	feeds  map[string]*list.Element
	lru    *list.List // front is the least recently used feed
	ttl    time.Duration
	max    int
	now    func() time.Time
	logger zerolog.Logger
}

type feedEntry struct {
	id       string
	owner    string
	ctrl     *pagination.Controller
	lastSeen time.Time
}

// NewFeedRegistry creates a registry keeping at most max feeds, each for
// ttl since its last use.
func NewFeedRegistry(ttl time.Duration, max int) *FeedRegistry {
	return &FeedRegistry{
		feeds:  make(map[string]*list.Element),
		lru:    list.New(),
		ttl:    ttl,
		max:    max,
		now:    time.Now,
		logger: log.With().Str("component", "feeds").Logger(),
	}
}

// Open registers ctrl for owner and returns the new feed id. When the
// registry is full the least recently used feed is evicted.
func (r *FeedRegistry) Open(owner string, ctrl *pagination.Controller) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 {
		for r.lru.Len() >= r.max {
			r.remove(r.lru.Front(), "capacity")
		}
	}
	r.feeds[id] = r.lru.PushBack(&feedEntry{id: id, owner: owner, ctrl: ctrl, lastSeen: r.now()})
	feedSessions.Set(float64(len(r.feeds)))
	return id
}

// Get returns the controller for id if owner opened it and it has not
// expired. A successful lookup refreshes the idle timer.
func (r *FeedRegistry) Get(id, owner string) (*pagination.Controller, bool) {
	if id == "" || owner == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.feeds[id]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*feedEntry)
	if entry.owner != owner {
		return nil, false
	}
	now := r.now()
	if now.Sub(entry.lastSeen) > r.ttl {
		r.remove(el, "idle")
		return nil, false
	}
	entry.lastSeen = now
	r.lru.MoveToBack(el)
	return entry.ctrl, true
}

// Sweep removes idle feeds and returns how many were dropped. The list is
// ordered by last use, so it stops at the first live feed.
func (r *FeedRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	n := 0
	for el := r.lru.Front(); el != nil; el = r.lru.Front() {
		if !el.Value.(*feedEntry).lastSeen.Before(cutoff) {
			break
		}
		r.remove(el, "idle")
		n++
	}
	if n > 0 {
		r.logger.Debug().Int("removed", n).Int("live", len(r.feeds)).Msg("Swept idle feeds")
	}
	return n
}

// StartSweeper runs Sweep every interval. Call the returned function to stop it.
func (r *FeedRegistry) StartSweeper(interval time.Duration) func() {
	return every(interval, func() { r.Sweep() })
}

// Len returns the number of live feeds.
func (r *FeedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

// remove deletes a feed. Caller holds r.mu.
func (r *FeedRegistry) remove(el *list.Element, reason string) {
	r.lru.Remove(el)
	delete(r.feeds, el.Value.(*feedEntry).id)
	feedEvictions.WithLabelValues(reason).Inc()
	feedSessions.Set(float64(len(r.feeds)))
}
