// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/oblog/internal/auth"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
)

// SeedConfig controls what Seed creates.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	// SamplePosts creates a couple of demo posts on an empty database.
	SamplePosts bool
}

var samplePosts = []CreatePostParams{
	{
		Title:     "Welcome to oBlog",
		Slug:      "welcome-to-oblog",
		Content:   "This is the first post. Edit or delete it from the admin dashboard.",
		Published: true,
	},
	{
		Title:      "Watching the numbers",
		Slug:       "watching-the-numbers",
		Content:    "Every view, play and comment shows up in **analytics**.",
		YoutubeUrl: sql.NullString{String: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Valid: true},
		Published:  true,
	},
}

// Seed creates the admin account and, optionally, sample posts.
// It is idempotent.
func Seed(ctx context.Context, db *sql.DB, cfg SeedConfig) error {
	queries := New(db)

	if cfg.AdminEmail == "" {
		cfg.AdminEmail = DefaultAdminEmail
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = DefaultAdminPassword
	}

	now := FormatTime(time.Now())

	_, err := queries.GetUserByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		slog.Info("admin user already exists, skipping", "email", cfg.AdminEmail)
	case errors.Is(err, sql.ErrNoRows):
		passwordHash, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		user, err := queries.CreateUser(ctx, CreateUserParams{
			Email:        cfg.AdminEmail,
			PasswordHash: passwordHash,
			Role:         "admin",
			CreatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		slog.Info("created admin user", "id", user.ID, "email", user.Email)
	default:
		return fmt.Errorf("checking for admin user: %w", err)
	}

	if !cfg.SamplePosts {
		return nil
	}

	count, err := queries.CountPosts(ctx)
	if err != nil {
		return fmt.Errorf("counting posts: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range samplePosts {
		p.CreatedAt = now
		p.UpdatedAt = now
		if _, err := queries.CreatePost(ctx, p); err != nil {
			return fmt.Errorf("creating sample post %q: %w", p.Slug, err)
		}
	}
	slog.Info("created sample posts", "count", len(samplePosts))

	return nil
}
