package leaknews

import (
	"context"
	"sync"
	"time"
)

// ArchiveIndex is an in-memory copy of the archive listing with a TTL, so
// sitemap requests do not hit SQLite every time.
type ArchiveIndex struct {
	mu      sync.RWMutex
	posts   []postRef
	fetched time.Time
	ttl     time.Duration
	archive *Archive
}

// postRef is the part of a post the sitemap needs.
type postRef struct {
	Path    string
	Updated time.Time
}

// NewArchiveIndex creates an ArchiveIndex backed by the given Archive.
func NewArchiveIndex(a *Archive, ttl time.Duration) *ArchiveIndex {
	return &ArchiveIndex{archive: a, ttl: ttl}
}

func (x *ArchiveIndex) valid() bool {
	return x.posts != nil && time.Since(x.fetched) < x.ttl
}

// Invalidate clears the index so the next read reloads it.
func (x *ArchiveIndex) Invalidate() {
	x.mu.Lock()
	x.posts = nil
	x.mu.Unlock()
}

// List returns the indexed posts, reloading them when stale. It tries a
// read lock first and only takes the write lock to reload.
func (x *ArchiveIndex) List(ctx context.Context) ([]postRef, error) {
	x.mu.RLock()
	if x.valid() {
		posts := x.posts
		x.mu.RUnlock()
		return posts, nil
	}
	x.mu.RUnlock()

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.valid() {
		return x.posts, nil
	}
	posts, err := x.archive.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]postRef, 0, len(posts))
	for _, p := range posts {
		refs = append(refs, postRef{Path: p.Path(), Updated: p.CreatedAt.Time})
	}
	x.posts = refs
	x.fetched = time.Now()
	return refs, nil
}
