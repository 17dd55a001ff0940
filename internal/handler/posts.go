// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// Post field limits.
const (
	maxTitleLength = 255
	maxSlugTries   = 1000
)

// SessionIDHeader carries the visitor session id of the public site.
const SessionIDHeader = "X-Session-ID"

var contentPolicy = bluemonday.UGCPolicy()

// PostsHandler serves the public post pages and the admin post CRUD.
type PostsHandler struct {
	db      *sql.DB
	queries *store.Queries
	tracker *analytics.Tracker
	hooks   *hooks.Registry
	logger  *slog.Logger
}

// NewPostsHandler creates a PostsHandler.
func NewPostsHandler(db *sql.DB, tracker *analytics.Tracker, reg *hooks.Registry, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{
		db:      db,
		queries: store.New(db),
		tracker: tracker,
		hooks:   reg,
		logger:  logger,
	}
}

// PostResponse is the API shape of a post.
type PostResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html,omitempty"`
	YoutubeURL  *string   `json:"youtube_url"`
	Published   bool      `json:"published"`
	Views       int64     `json:"views"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PostListResponse is one page of posts.
type PostListResponse struct {
	Posts      []PostResponse `json:"posts"`
	Pagination Pagination     `json:"pagination"`
}

func toPostResponse(p store.Post) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   p.Content,
		Published: p.Published,
		Views:     p.Views,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	if p.YoutubeUrl.Valid {
		resp.YoutubeURL = &p.YoutubeUrl.String
	}
	return resp
}

// renderContent converts a Markdown body into sanitized HTML.
func renderContent(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return contentPolicy.Sanitize(buf.String()), nil
}

// ListPublished handles GET /api/posts.
func (h *PostsHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.queries.ListPublishedPosts, h.queries.CountPublishedPosts)
}

// AdminList handles GET /api/admin/posts.
func (h *PostsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.queries.ListPosts, h.queries.CountPosts)
}

func (h *PostsHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	listFn func(ctx context.Context, limit, offset int) ([]store.Post, error),
	countFn func(ctx context.Context) (int64, error),
) {
	page, perPage := parsePage(r)

	posts, err := listFn(r.Context(), perPage, offset(page, perPage))
	if err != nil {
		logAndInternalError(w, h.logger, "failed to list posts", err)
		return
	}
	total, err := countFn(r.Context())
	if err != nil {
		logAndInternalError(w, h.logger, "failed to count posts", err)
		return
	}

	resp := PostListResponse{
		Posts:      make([]PostResponse, 0, len(posts)),
		Pagination: newPagination(page, perPage, total),
	}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, toPostResponse(p))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetBySlug handles GET /api/posts/{slug}. Each read counts as a view: the
// post's counter is incremented and a post_view event is stored.
func (h *PostsHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.queries.GetPublishedPostBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeNotFound(w, "Post not found")
			return
		}
		logAndInternalError(w, h.logger, "failed to get post", err, "slug", slug)
		return
	}

	if err := h.queries.IncrementPostViews(r.Context(), post.ID); err != nil {
		logAndInternalError(w, h.logger, "failed to increment post views", err, "post_id", post.ID)
		return
	}
	post.Views++

	in := analytics.TrackInput{
		EventType: string(model.EventPostView),
		PostID:    &post.ID,
		SessionID: r.Header.Get(SessionIDHeader),
	}
	if _, err := h.tracker.Track(r.Context(), in, util.RequestInfo(r)); err != nil {
		logAndInternalError(w, h.logger, "failed to track post view", err, "post_id", post.ID)
		return
	}

	resp := toPostResponse(post)
	html, err := renderContent(post.Content)
	if err != nil {
		h.logger.Warn("failed to render post content", "post_id", post.ID, "error", err)
	}
	resp.ContentHTML = html
	WriteJSON(w, http.StatusOK, resp)
}

// AdminGet handles GET /api/admin/posts/{id}.
func (h *PostsHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	post, ok := requireEntity(w, h.logger, "post", id, func(id int64) (store.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, toPostResponse(post))
}

// PostInput is the body of post create and update requests. A nil
// Published means true on create and "unchanged" on update; a nil
// YoutubeURL means none on create and "unchanged" on update.
type PostInput struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	YoutubeURL *string `json:"youtube_url"`
	Published  *bool   `json:"published"`
}

func (in *PostInput) validate() map[string]string {
	in.Title = strings.TrimSpace(in.Title)
	errs := make(map[string]string)
	switch {
	case in.Title == "":
		errs["title"] = "Title is required"
	case utf8.RuneCountInString(in.Title) > maxTitleLength:
		errs["title"] = fmt.Sprintf("Title must be at most %d characters", maxTitleLength)
	}
	if strings.TrimSpace(in.Content) == "" {
		errs["content"] = "Content is required"
	}
	if in.YoutubeURL != nil {
		u := strings.TrimSpace(*in.YoutubeURL)
		in.YoutubeURL = &u
	}
	return errs
}

// uniqueSlug derives a slug from title that no post other than excludeID
// uses, trying base, base-2, base-3 and so on.
func uniqueSlug(ctx context.Context, q *store.Queries, title string, excludeID int64) (string, error) {
	base := util.Slugify(title)
	if base == "" {
		base = "post"
	}
	for attempt := 0; attempt < maxSlugTries; attempt++ {
		candidate := util.SlugCandidate(base, attempt)
		taken, err := q.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugTries)
}

func nullableURL(u *string) sql.NullString {
	if u == nil || *u == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *u, Valid: true}
}

// Create handles POST /api/admin/posts.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeBadRequest(w, err.Error(), nil)
		return
	}
	if errs := in.validate(); len(errs) > 0 {
		writeBadRequest(w, "Validation failed", errs)
		return
	}

	published := true
	if in.Published != nil {
		published = *in.Published
	}

	slug, err := uniqueSlug(r.Context(), h.queries, in.Title, 0)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to generate slug", err)
		return
	}

	now := store.FormatTime(time.Now())
	post, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		Title:      in.Title,
		Slug:       slug,
		Content:    in.Content,
		YoutubeUrl: nullableURL(in.YoutubeURL),
		Published:  published,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		logAndInternalError(w, h.logger, "failed to create post", err)
		return
	}

	h.logger.Info("post created", "post_id", post.ID, "slug", post.Slug)
	announce(r, h.hooks, newMutation(r, model.ActionCreate, model.EntityPost, post.ID, map[string]any{
		"title":     post.Title,
		"slug":      post.Slug,
		"published": post.Published,
	}))

	WriteJSON(w, http.StatusCreated, toPostResponse(post))
}

// Update handles PUT /api/admin/posts/{id}. The slug follows the title.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var in PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeBadRequest(w, err.Error(), nil)
		return
	}
	if errs := in.validate(); len(errs) > 0 {
		writeBadRequest(w, "Validation failed", errs)
		return
	}

	before, ok := requireEntity(w, h.logger, "post", id, func(id int64) (store.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	published := before.Published
	if in.Published != nil {
		published = *in.Published
	}
	youtube := before.YoutubeUrl
	if in.YoutubeURL != nil {
		youtube = nullableURL(in.YoutubeURL)
	}

	slug := before.Slug
	if in.Title != before.Title {
		var err error
		slug, err = uniqueSlug(r.Context(), h.queries, in.Title, id)
		if err != nil {
			logAndInternalError(w, h.logger, "failed to generate slug", err, "post_id", id)
			return
		}
	}

	after, err := h.queries.UpdatePost(r.Context(), store.UpdatePostParams{
		Title:      in.Title,
		Slug:       slug,
		Content:    in.Content,
		YoutubeUrl: youtube,
		Published:  published,
		UpdatedAt:  store.FormatTime(time.Now()),
		ID:         id,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeNotFound(w, "post not found")
			return
		}
		logAndInternalError(w, h.logger, "failed to update post", err, "post_id", id)
		return
	}

	h.logger.Info("post updated", "post_id", id)
	announce(r, h.hooks, newMutation(r, model.ActionUpdate, model.EntityPost, id, postChanges(before, after)))

	WriteJSON(w, http.StatusOK, toPostResponse(after))
}

// postChanges lists the fields that differ between two versions of a post.
// Long bodies are shortened to a preview.
func postChanges(before, after store.Post) map[string]model.Change {
	changes := make(map[string]model.Change)
	if before.Title != after.Title {
		changes["title"] = model.Change{From: before.Title, To: after.Title}
	}
	if before.Slug != after.Slug {
		changes["slug"] = model.Change{From: before.Slug, To: after.Slug}
	}
	if before.Content != after.Content {
		changes["content"] = model.Change{From: preview(before.Content), To: preview(after.Content)}
	}
	if before.YoutubeUrl != after.YoutubeUrl {
		changes["youtube_url"] = model.Change{From: nullString(before.YoutubeUrl), To: nullString(after.YoutubeUrl)}
	}
	if before.Published != after.Published {
		changes["published"] = model.Change{From: before.Published, To: after.Published}
	}
	return changes
}

func nullString(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

// Delete handles DELETE /api/admin/posts/{id}. The post's comments and
// analytics events are removed in the same transaction.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, ok := requireEntity(w, h.logger, "post", id, func(id int64) (store.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.deleteWithDependents(r.Context(), id); err != nil {
		logAndInternalError(w, h.logger, "failed to delete post", err, "post_id", id)
		return
	}

	h.logger.Info("post deleted", "post_id", id, "slug", post.Slug)
	announce(r, h.hooks, newMutation(r, model.ActionDelete, model.EntityPost, id, map[string]any{
		"title": post.Title,
		"slug":  post.Slug,
	}))

	writeSuccess(w)
}

func (h *PostsHandler) deleteWithDependents(ctx context.Context, id int64) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := h.queries.WithTx(tx)
	if err := q.DeleteCommentsByPost(ctx, id); err != nil {
		return fmt.Errorf("deleting comments: %w", err)
	}
	if err := q.DeleteEventsByPost(ctx, id); err != nil {
		return fmt.Errorf("deleting events: %w", err)
	}
	if err := q.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return tx.Commit()
}
