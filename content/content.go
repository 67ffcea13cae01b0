// Package content serves published site content (blog posts, landing copy)
// from the hosted Postgres database.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection; the caller creates and closes the pool. Access is read-only:
// authoring happens outside this service.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrNotFound is returned when no post exists for a slug.
var ErrNotFound = errors.New("post not found")

// Post is a published blog entry. Content holds the authored Markdown;
// HTML holds the rendered form and is only populated by GetPost.
type Post struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	MetaDescription string    `json:"meta_description"`
	Keywords        string    `json:"keywords"`
	Content         string    `json:"content,omitempty"`
	HTML            string    `json:"html,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store reads posts from the blogs table.
type Store struct {
	pool *pgxpool.Pool
	md   goldmark.Markdown
}

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// ListPosts returns all posts, newest first, without body content.
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, slug, meta_description, keywords, created_at
		FROM blogs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.MetaDescription, &p.Keywords, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost returns one post by slug with its Markdown rendered to HTML.
func (s *Store) GetPost(ctx context.Context, slug string) (Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, slug, meta_description, keywords, content, created_at
		FROM blogs
		WHERE slug = $1`, slug).
		Scan(&p.ID, &p.Title, &p.Slug, &p.MetaDescription, &p.Keywords, &p.Content, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("get post %q: %w", slug, err)
	}

	html, err := RenderMarkdown(s.md, p.Content)
	if err != nil {
		return Post{}, fmt.Errorf("render post %q: %w", slug, err)
	}
	p.HTML = html
	return p, nil
}

// RenderMarkdown converts GFM Markdown to HTML.
func RenderMarkdown(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
