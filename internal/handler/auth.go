// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/oblog/internal/auth"
	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/session"
	"github.com/olegiv/oblog/internal/store"
)

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	queries         *store.Queries
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
	hooks           *hooks.Registry
	logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(db *sql.DB, sm *scs.SessionManager, lp *middleware.LoginProtection, reg *hooks.Registry, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		sessionManager:  sm,
		loginProtection: lp,
		hooks:           reg,
		logger:          logger,
	}
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserResponse(u store.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeBadRequest(w, err.Error(), nil)
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		writeBadRequest(w, "Email and password are required", nil)
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(in.Email); locked {
			h.logger.Warn("login attempt on locked account", "email", in.Email)
			writeTooManyAttempts(w, remaining)
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), in.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logAndInternalError(w, h.logger, "database error during login", err)
			return
		}
		h.logger.Debug("login attempt for non-existent user", "email", in.Email)
		// counted like a bad password so accounts cannot be enumerated
		h.rejectLogin(w, in.Email)
		return
	}

	valid, err := auth.CheckPassword(in.Password, user.PasswordHash)
	if err != nil {
		h.logger.Error("password check error", "error", err, "user_id", user.ID)
	}
	if !valid {
		h.logger.Debug("invalid password attempt", "email", in.Email)
		h.rejectLogin(w, in.Email)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(in.Email)
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(in.Password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), user.ID, newHash); err != nil {
				h.logger.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				h.logger.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	if err := session.Login(r.Context(), h.sessionManager, user.ID); err != nil {
		logAndInternalError(w, h.logger, "session renewal error", err)
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	m := newMutation(r, model.ActionLogin, model.EntityUser, user.ID, map[string]any{"role": user.Role})
	m.ActorID = &user.ID
	m.ActorEmail = user.Email
	announce(r, h.hooks, m)

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserResponse(user),
	})
}

// rejectLogin records a failed attempt and writes 401, or 429 when the
// failure locks the account.
func (h *AuthHandler) rejectLogin(w http.ResponseWriter, email string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			h.logger.Warn("account locked due to failed attempts", "email", email, "duration", lockDuration.String())
			writeTooManyAttempts(w, lockDuration)
			return
		}
		if remaining := h.loginProtection.GetRemainingAttempts(email); remaining > 0 && remaining <= 3 {
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", map[string]string{
				"remaining_attempts": fmt.Sprint(remaining),
			})
			return
		}
	}
	WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
}

func writeTooManyAttempts(w http.ResponseWriter, wait time.Duration) {
	w.Header().Set("Retry-After", fmt.Sprint(int(wait.Round(time.Second).Seconds())))
	WriteError(w, http.StatusTooManyRequests, "account_locked",
		"Too many failed attempts. Try again in "+formatDuration(wait), nil)
}

// formatDuration renders d as whole minutes, or seconds below a minute.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Round(time.Second).Seconds()))
	}
	m := int(d.Round(time.Minute).Minutes())
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		h.logger.Info("user logged out", "user_id", user.ID, "email", user.Email)
	}
	if err := session.Logout(r.Context(), h.sessionManager); err != nil {
		logAndInternalError(w, h.logger, "session destroy error", err)
		return
	}
	writeSuccess(w)
}

// Check handles GET /api/auth/check.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          toUserResponse(*user),
	})
}
