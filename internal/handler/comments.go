// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// Comment field limits.
const (
	maxAuthorLength  = 100
	maxCommentLength = 5000
)

// CommentsHandler serves public comments and their moderation.
type CommentsHandler struct {
	queries *store.Queries
	tracker *analytics.Tracker
	hooks   *hooks.Registry
	logger  *slog.Logger
}

// NewCommentsHandler creates a CommentsHandler.
func NewCommentsHandler(db *sql.DB, tracker *analytics.Tracker, reg *hooks.Registry, logger *slog.Logger) *CommentsHandler {
	return &CommentsHandler{
		queries: store.New(db),
		tracker: tracker,
		hooks:   reg,
		logger:  logger,
	}
}

// CommentResponse is the API shape of a comment. Post fields are set on
// admin listings only.
type CommentResponse struct {
	ID         int64     `json:"id"`
	PostID     int64     `json:"post_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
	PostTitle  string    `json:"post_title,omitempty"`
	PostSlug   string    `json:"post_slug,omitempty"`
}

func toCommentResponse(c store.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		PostID:     c.PostID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		Approved:   c.Approved,
		CreatedAt:  c.CreatedAt.UTC(),
	}
}

// ListByPost handles GET /api/posts/{id}/comments.
func (h *CommentsHandler) ListByPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.queries.ListApprovedCommentsByPost(r.Context(), postID)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to list comments", err, "post_id", postID)
		return
	}

	resp := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, toCommentResponse(c))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// CommentInput is the body of a public comment submission.
type CommentInput struct {
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
}

func (in *CommentInput) validate() map[string]string {
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.Content = strings.TrimSpace(in.Content)

	errs := make(map[string]string)
	switch {
	case in.AuthorName == "":
		errs["author_name"] = "Name is required"
	case utf8.RuneCountInString(in.AuthorName) > maxAuthorLength:
		errs["author_name"] = fmt.Sprintf("Name must be at most %d characters", maxAuthorLength)
	}
	switch {
	case in.Content == "":
		errs["content"] = "Comment is required"
	case utf8.RuneCountInString(in.Content) > maxCommentLength:
		errs["content"] = fmt.Sprintf("Comment must be at most %d characters", maxCommentLength)
	}
	return errs
}

// Create handles POST /api/posts/{id}/comments. Comments are published
// immediately and recorded as a comment_submit event.
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var in CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeBadRequest(w, err.Error(), nil)
		return
	}
	if errs := in.validate(); len(errs) > 0 {
		writeBadRequest(w, "Validation failed", errs)
		return
	}

	if _, ok := requireEntity(w, h.logger, "post", postID, func(id int64) (store.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	}); !ok {
		return
	}

	comment, err := h.queries.CreateComment(r.Context(), store.CreateCommentParams{
		PostID:     postID,
		AuthorName: in.AuthorName,
		Content:    in.Content,
		Approved:   true,
		CreatedAt:  store.FormatTime(time.Now()),
	})
	if err != nil {
		logAndInternalError(w, h.logger, "failed to create comment", err, "post_id", postID)
		return
	}

	ev := analytics.TrackInput{
		EventType: string(model.EventCommentSubmit),
		PostID:    &postID,
		SessionID: r.Header.Get(SessionIDHeader),
	}
	if _, err := h.tracker.Track(r.Context(), ev, util.RequestInfo(r)); err != nil {
		// the comment is already stored
		h.logger.Warn("failed to track comment submit", "post_id", postID, "error", err)
	}

	WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

// AdminList handles GET /api/admin/comments?postId.
func (h *CommentsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	var postID int64
	if raw := r.URL.Query().Get("postId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			writeBadRequest(w, "Invalid postId", nil)
			return
		}
		postID = id
	}

	comments, err := h.queries.ListCommentsWithPost(r.Context(), postID)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to list comments", err)
		return
	}

	resp := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		cr := toCommentResponse(c.Comment)
		cr.PostTitle = c.PostTitle
		cr.PostSlug = c.PostSlug
		resp = append(resp, cr)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/admin/comments/{id}.
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	comment, err := h.queries.GetCommentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeNotFound(w, "Comment not found")
			return
		}
		logAndInternalError(w, h.logger, "failed to get comment", err, "comment_id", id)
		return
	}

	if err := h.queries.DeleteComment(r.Context(), id); err != nil {
		logAndInternalError(w, h.logger, "failed to delete comment", err, "comment_id", id)
		return
	}

	h.logger.Info("comment deleted", "comment_id", id, "post_id", comment.PostID)
	announce(r, h.hooks, newMutation(r, model.ActionDelete, model.EntityComment, id, map[string]any{
		"author":          comment.AuthorName,
		"post_id":         comment.PostID,
		"content_preview": preview(comment.Content),
	}))

	writeSuccess(w)
}
