package store

import (
	"context"
	"database/sql"
)

const commentColumns = `id, post_id, author_name, content, approved, created_at`

func scanComment(row interface{ Scan(...any) error }) (Comment, error) {
	var i Comment
	err := row.Scan(
		&i.ID,
		&i.PostID,
		&i.AuthorName,
		&i.Content,
		&i.Approved,
		&i.CreatedAt,
	)
	return i, err
}

func collectComments(rows *sql.Rows, err error) ([]Comment, error) {
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Comment
	for rows.Next() {
		i, err := scanComment(rows)
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

const createComment = `
INSERT INTO comments (post_id, author_name, content, approved, created_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateCommentParams struct {
	PostID     int64
	AuthorName string
	Content    string
	Approved   bool
	CreatedAt  string
}

func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	result, err := q.db.ExecContext(ctx, createComment,
		arg.PostID,
		arg.AuthorName,
		arg.Content,
		arg.Approved,
		arg.CreatedAt,
	)
	if err != nil {
		return Comment{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Comment{}, err
	}
	return q.GetCommentByID(ctx, id)
}

const getCommentByID = `
SELECT ` + commentColumns + ` FROM comments WHERE id = ?
`

func (q *Queries) GetCommentByID(ctx context.Context, id int64) (Comment, error) {
	return scanComment(q.db.QueryRowContext(ctx, getCommentByID, id))
}

const listApprovedCommentsByPost = `
SELECT ` + commentColumns + ` FROM comments
WHERE post_id = ? AND approved = 1
ORDER BY created_at ASC, id ASC
`

func (q *Queries) ListApprovedCommentsByPost(ctx context.Context, postID int64) ([]Comment, error) {
	return collectComments(q.db.QueryContext(ctx, listApprovedCommentsByPost, postID))
}

const countCommentsByPost = `
SELECT COUNT(*) FROM comments WHERE post_id = ?
`

func (q *Queries) CountCommentsByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCommentsByPost, postID).Scan(&count)
	return count, err
}

const deleteComment = `
DELETE FROM comments WHERE id = ?
`

func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteComment, id)
	return err
}

const deleteCommentsByPost = `
DELETE FROM comments WHERE post_id = ?
`

func (q *Queries) DeleteCommentsByPost(ctx context.Context, postID int64) error {
	_, err := q.db.ExecContext(ctx, deleteCommentsByPost, postID)
	return err
}

// CommentWithPost is a comment joined with the title and slug of its post.
type CommentWithPost struct {
	Comment
	PostTitle string
	PostSlug  string
}

// ListCommentsWithPost returns comments newest first, joined with their
// post. postID 0 means all posts.
func (q *Queries) ListCommentsWithPost(ctx context.Context, postID int64) ([]CommentWithPost, error) {
	query := `
SELECT c.id, c.post_id, c.author_name, c.content, c.approved, c.created_at, p.title, p.slug
FROM comments c
JOIN posts p ON p.id = c.post_id`
	var args []any
	if postID != 0 {
		query += ` WHERE c.post_id = ?`
		args = append(args, postID)
	}
	query += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CommentWithPost
	for rows.Next() {
		var i CommentWithPost
		if err := rows.Scan(
			&i.ID,
			&i.PostID,
			&i.AuthorName,
			&i.Content,
			&i.Approved,
			&i.CreatedAt,
			&i.PostTitle,
			&i.PostSlug,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
