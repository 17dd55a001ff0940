package store

import (
	"context"
	"database/sql"
)

const postColumns = `id, title, slug, content, youtube_url, published, views, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var i Post
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Slug,
		&i.Content,
		&i.YoutubeUrl,
		&i.Published,
		&i.Views,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectPosts(rows *sql.Rows, err error) ([]Post, error) {
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Post
	for rows.Next() {
		i, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPost = `
INSERT INTO posts (title, slug, content, youtube_url, published, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreatePostParams struct {
	Title      string
	Slug       string
	Content    string
	YoutubeUrl sql.NullString
	Published  bool
	CreatedAt  string
	UpdatedAt  string
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	result, err := q.db.ExecContext(ctx, createPost,
		arg.Title,
		arg.Slug,
		arg.Content,
		arg.YoutubeUrl,
		arg.Published,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return Post{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Post{}, err
	}
	return q.GetPostByID(ctx, id)
}

const updatePost = `
UPDATE posts
SET title = ?, slug = ?, content = ?, youtube_url = ?, published = ?, updated_at = ?
WHERE id = ?
`

type UpdatePostParams struct {
	Title      string
	Slug       string
	Content    string
	YoutubeUrl sql.NullString
	Published  bool
	UpdatedAt  string
	ID         int64
}

func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (Post, error) {
	result, err := q.db.ExecContext(ctx, updatePost,
		arg.Title,
		arg.Slug,
		arg.Content,
		arg.YoutubeUrl,
		arg.Published,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return Post{}, err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return Post{}, sql.ErrNoRows
	}
	return q.GetPostByID(ctx, arg.ID)
}

const deletePost = `
DELETE FROM posts WHERE id = ?
`

func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deletePost, id)
	return err
}

const getPostByID = `
SELECT ` + postColumns + ` FROM posts WHERE id = ?
`

func (q *Queries) GetPostByID(ctx context.Context, id int64) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPostByID, id))
}

const getPublishedPostBySlug = `
SELECT ` + postColumns + ` FROM posts WHERE slug = ? AND published = 1
`

func (q *Queries) GetPublishedPostBySlug(ctx context.Context, slug string) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPublishedPostBySlug, slug))
}

const slugExists = `
SELECT EXISTS(SELECT 1 FROM posts WHERE slug = ? AND id <> ?)
`

// SlugExists reports whether slug is taken by a post other than excludeID.
func (q *Queries) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, slugExists, slug, excludeID).Scan(&exists)
	return exists, err
}

const incrementPostViews = `
UPDATE posts SET views = views + 1 WHERE id = ?
`

func (q *Queries) IncrementPostViews(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, incrementPostViews, id)
	return err
}

const listPosts = `
SELECT ` + postColumns + ` FROM posts
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

func (q *Queries) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	return collectPosts(q.db.QueryContext(ctx, listPosts, limit, offset))
}

const countPosts = `
SELECT COUNT(*) FROM posts
`

func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPosts).Scan(&count)
	return count, err
}

const listPublishedPosts = `
SELECT ` + postColumns + ` FROM posts
WHERE published = 1
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

func (q *Queries) ListPublishedPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	return collectPosts(q.db.QueryContext(ctx, listPublishedPosts, limit, offset))
}

const countPublishedPosts = `
SELECT COUNT(*) FROM posts WHERE published = 1
`

func (q *Queries) CountPublishedPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPublishedPosts).Scan(&count)
	return count, err
}

// PostViews is a post ranked by its view counter.
type PostViews struct {
	ID    int64
	Title string
	Views int64
}

const listMostViewedPosts = `
SELECT id, title, views FROM posts
ORDER BY views DESC, id ASC
LIMIT ?
`

func (q *Queries) ListMostViewedPosts(ctx context.Context, limit int) ([]PostViews, error) {
	rows, err := q.db.QueryContext(ctx, listMostViewedPosts, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []PostViews
	for rows.Next() {
		var i PostViews
		if err := rows.Scan(&i.ID, &i.Title, &i.Views); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// PostPlays is a video post ranked by its video_play events.
type PostPlays struct {
	ID        int64
	Title     string
	PlayCount int64
}

const listMostWatchedPosts = `
SELECT p.id, p.title, COUNT(a.id) AS play_count
FROM posts p
LEFT JOIN analytics a ON a.post_id = p.id AND a.event_type = 'video_play'
WHERE p.youtube_url IS NOT NULL AND p.youtube_url <> ''
GROUP BY p.id, p.title
ORDER BY play_count DESC, p.id ASC
LIMIT ?
`

func (q *Queries) ListMostWatchedPosts(ctx context.Context, limit int) ([]PostPlays, error) {
	rows, err := q.db.QueryContext(ctx, listMostWatchedPosts, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []PostPlays
	for rows.Next() {
		var i PostPlays
		if err := rows.Scan(&i.ID, &i.Title, &i.PlayCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
