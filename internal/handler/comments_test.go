// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/testutil"
)

func commentsURL(postID int64) string {
	return "/api/posts/" + strconv.FormatInt(postID, 10) + "/comments"
}

func TestCreateComment(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "Discussed", "discussed", "")

	w := env.do(t, http.MethodPost, commentsURL(post.ID), CommentInput{
		AuthorName: "  Ann  ",
		Content:    "First!",
	})
	assertStatus(t, w.Code, http.StatusCreated)

	var c CommentResponse
	decodeBody(t, w, &c)
	assert.Equal(t, "Ann", c.AuthorName)
	assert.Equal(t, post.ID, c.PostID)
	assert.True(t, c.Approved)

	w = env.do(t, http.MethodGet, commentsURL(post.ID), nil)
	assertStatus(t, w.Code, http.StatusOK)

	var list []CommentResponse
	decodeBody(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "First!", list[0].Content)

	assert.Equal(t, int64(1), env.countEvents(t, "comment_submit"))
	assert.Empty(t, env.auditEntries(t), "public comments are not audited")
}

func TestCreateComment_MissingPost(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, commentsURL(9999), CommentInput{AuthorName: "Ann", Content: "Hello"})
	assertStatus(t, w.Code, http.StatusNotFound)
	assert.Zero(t, env.countEvents(t, "comment_submit"))
}

func TestCreateComment_Validation(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "Strict", "strict", "")

	tests := []struct {
		name  string
		in    CommentInput
		field string
	}{
		{"missing author", CommentInput{Content: "text"}, "author_name"},
		{"long author", CommentInput{AuthorName: strings.Repeat("a", maxAuthorLength+1), Content: "text"}, "author_name"},
		{"missing content", CommentInput{AuthorName: "Ann", Content: "  "}, "content"},
		{"long content", CommentInput{AuthorName: "Ann", Content: strings.Repeat("c", maxCommentLength+1)}, "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, commentsURL(post.ID), tt.in)
			assertStatus(t, w.Code, http.StatusBadRequest)

			body := decodeError(t, w)
			if _, ok := body.Error.Details[tt.field]; !ok {
				t.Errorf("details = %v; want an entry for %q", body.Error.Details, tt.field)
			}
		})
	}

	w := env.do(t, http.MethodPost, "/api/posts/abc/comments", CommentInput{AuthorName: "Ann", Content: "x"})
	assertStatus(t, w.Code, http.StatusBadRequest)
}

func TestAdminListComments(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	first := testutil.CreatePost(t, env.db, "First Post", "first-post", "")
	second := testutil.CreatePost(t, env.db, "Second Post", "second-post", "")
	for _, id := range []int64{first.ID, second.ID, second.ID} {
		w := env.do(t, http.MethodPost, commentsURL(id), CommentInput{AuthorName: "Bob", Content: "Hi"})
		assertStatus(t, w.Code, http.StatusCreated)
	}

	w := env.do(t, http.MethodGet, "/api/admin/comments", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)
	var all []CommentResponse
	decodeBody(t, w, &all)
	assert.Len(t, all, 3)

	w = env.do(t, http.MethodGet, "/api/admin/comments?postId="+strconv.FormatInt(first.ID, 10), nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)
	var filtered []CommentResponse
	decodeBody(t, w, &filtered)
	require.Len(t, filtered, 1)
	assert.Equal(t, "First Post", filtered[0].PostTitle)
	assert.Equal(t, "first-post", filtered[0].PostSlug)

	w = env.do(t, http.MethodGet, "/api/admin/comments?postId=zero", nil, cookie)
	assertStatus(t, w.Code, http.StatusBadRequest)
}

func TestAdminDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	post := testutil.CreatePost(t, env.db, "Moderated", "moderated", "")

	long := strings.Repeat("spam ", 20)
	w := env.do(t, http.MethodPost, commentsURL(post.ID), CommentInput{AuthorName: "Spammer", Content: long})
	assertStatus(t, w.Code, http.StatusCreated)
	var c CommentResponse
	decodeBody(t, w, &c)

	target := "/api/admin/comments/" + strconv.FormatInt(c.ID, 10)
	w = env.do(t, http.MethodDelete, target, nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	latest := env.auditEntries(t)[0]
	assert.Equal(t, "DELETE", latest.Action)
	assert.Equal(t, "comment", latest.EntityType)
	assert.Equal(t, c.ID, latest.EntityID.Int64)

	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(latest.Details), &details))
	assert.Equal(t, "Spammer", details["author"])
	assert.Equal(t, float64(post.ID), details["post_id"])
	assert.Equal(t, preview(strings.TrimSpace(long)), details["content_preview"])

	w = env.do(t, http.MethodDelete, target, nil, cookie)
	assertStatus(t, w.Code, http.StatusNotFound)

	w = env.do(t, http.MethodDelete, target, nil)
	assertStatus(t, w.Code, http.StatusUnauthorized)
}
