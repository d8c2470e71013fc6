package leaknews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/leaknews/content"
)

// Archive is the last-known-good copy of every post the site has served.
// It feeds the sitemap and stands in for the content API when it is down.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (or creates) the SQLite database at path, ensures the
// data directory exists, and creates the schema.
func OpenArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets page renders read while a listing is being archived; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	a := &Archive{db: db}
	if err := a.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) ensureSchema() error {
	_, err := a.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    id INTEGER NOT NULL DEFAULT 0,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    avatar TEXT NOT NULL DEFAULT '',
    category_name TEXT NOT NULL DEFAULT '',
    category_slug TEXT NOT NULL DEFAULT '',
    views INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT '',
    read_time TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    seen_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_created_at ON posts (created_at DESC);
`)
	return err
}

// upsertPost keeps a stored body and tags when the incoming copy comes from
// a listing, which carries neither.
const upsertPost = `
INSERT INTO posts (slug, id, title, summary, image, author, avatar, category_name, category_slug, views, created_at, read_time, content, tags, seen_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET
    id = excluded.id,
    title = excluded.title,
    summary = excluded.summary,
    image = excluded.image,
    author = excluded.author,
    avatar = excluded.avatar,
    category_name = excluded.category_name,
    category_slug = excluded.category_slug,
    views = excluded.views,
    created_at = excluded.created_at,
    read_time = excluded.read_time,
    content = CASE WHEN excluded.content != '' THEN excluded.content ELSE posts.content END,
    tags = CASE WHEN excluded.tags != '' THEN excluded.tags ELSE posts.tags END,
    seen_at = excluded.seen_at`

// SavePosts upserts posts in one transaction. Posts without a slug are skipped.
func (a *Archive) SavePosts(ctx context.Context, posts ...content.Post) error {
	if len(posts) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPost)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seen := time.Now().UTC().Format(time.RFC3339)
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			p.Slug, int64(p.ID), p.Title, p.Summary, p.Image, p.Author, p.Avatar,
			p.CategoryName, p.CategorySlug, int64(p.Views), formatTime(p.CreatedAt.Time),
			string(p.ReadTime), p.Content, p.Tags, seen,
		); err != nil {
			return fmt.Errorf("archive post %q: %w", p.Slug, err)
		}
	}
	return tx.Commit()
}

const selectPost = `SELECT slug, id, title, summary, image, author, avatar, category_name, category_slug, views, created_at, read_time, content, tags FROM posts`

// GetPost returns the archived copy of a post, or content.ErrNotFound.
func (a *Archive) GetPost(ctx context.Context, slug string) (content.Post, error) {
	row := a.db.QueryRowContext(ctx, selectPost+` WHERE slug = ?`, slug)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Post{}, content.ErrNotFound
	}
	return p, err
}

// ListPosts returns every archived post, newest first, without bodies.
func (a *Archive) ListPosts(ctx context.Context) ([]content.Post, error) {
	rows, err := a.db.QueryContext(ctx, selectPost+` ORDER BY created_at DESC, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []content.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		p.Content = ""
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Count returns the number of archived posts.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (content.Post, error) {
	var p content.Post
	var id, views int64
	var created, readTime string
	if err := s.Scan(&p.Slug, &id, &p.Title, &p.Summary, &p.Image, &p.Author, &p.Avatar,
		&p.CategoryName, &p.CategorySlug, &views, &created, &readTime, &p.Content, &p.Tags); err != nil {
		return content.Post{}, err
	}
	p.ID = content.Int(id)
	p.Views = content.Int(views)
	p.ReadTime = content.ReadTime(readTime)
	if created != "" {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			p.CreatedAt = content.Timestamp{Time: t}
		}
	}
	return p, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
