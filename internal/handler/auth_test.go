// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"testing"

	"github.com/olegiv/oblog/internal/middleware"
)

type checkResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user"`
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, http.MethodGet, "/api/auth/check", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	var resp checkResponse
	decodeBody(t, w, &resp)
	if !resp.Authenticated || resp.User == nil {
		t.Fatalf("check = %+v; want authenticated", resp)
	}
	if resp.User.Email != testAdminEmail || resp.User.Role != middleware.RoleAdmin {
		t.Errorf("user = %+v", resp.User)
	}

	entries := env.auditEntries(t)
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries; want 1", len(entries))
	}
	if e := entries[0]; e.Action != "LOGIN" || e.EntityType != "user" || e.UserEmail.String != testAdminEmail {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestLogin_EmailIsTrimmed(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/login", LoginInput{
		Email:    "  " + testAdminEmail + " ",
		Password: testAdminPassword,
	})
	assertStatus(t, w.Code, http.StatusOK)
}

func TestLogin_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"wrong password", LoginInput{Email: testAdminEmail, Password: "nope"}, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown user", LoginInput{Email: "ghost@example.com", Password: "nope"}, http.StatusUnauthorized, "invalid_credentials"},
		{"missing password", LoginInput{Email: testAdminEmail}, http.StatusBadRequest, "bad_request"},
		{"missing email", LoginInput{Password: testAdminPassword}, http.StatusBadRequest, "bad_request"},
		{"not json", "email=admin", http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/auth/login", tt.body)
			assertStatus(t, w.Code, tt.status)
			if body := decodeError(t, w); body.Error.Code != tt.code {
				t.Errorf("error code = %q; want %q", body.Error.Code, tt.code)
			}
			for _, c := range w.Result().Cookies() {
				if c.Name == sessionCookieName && c.Value != "" {
					t.Error("rejected login set a session cookie")
				}
			}
			if n := len(env.auditEntries(t)); n != 0 {
				t.Errorf("got %d audit entries; want 0", n)
			}
		})
	}
}

func TestLogin_LocksAccount(t *testing.T) {
	env := newTestEnv(t, withLoginConfig(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 2,
	}))

	bad := LoginInput{Email: testAdminEmail, Password: "wrong"}

	w := env.do(t, http.MethodPost, "/api/auth/login", bad)
	assertStatus(t, w.Code, http.StatusUnauthorized)
	if got := decodeError(t, w).Error.Details["remaining_attempts"]; got != "1" {
		t.Errorf("remaining_attempts = %q; want 1", got)
	}

	w = env.do(t, http.MethodPost, "/api/auth/login", bad)
	assertStatus(t, w.Code, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if body := decodeError(t, w); body.Error.Code != "account_locked" {
		t.Errorf("error code = %q; want account_locked", body.Error.Code)
	}

	// the right password does not help while locked
	w = env.do(t, http.MethodPost, "/api/auth/login", LoginInput{Email: testAdminEmail, Password: testAdminPassword})
	assertStatus(t, w.Code, http.StatusTooManyRequests)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	w = env.do(t, http.MethodGet, "/api/auth/check", nil, cookie)
	assertStatus(t, w.Code, http.StatusOK)

	var resp checkResponse
	decodeBody(t, w, &resp)
	if resp.Authenticated {
		t.Error("session survived logout")
	}

	w = env.do(t, http.MethodGet, "/api/admin/posts", nil, cookie)
	assertStatus(t, w.Code, http.StatusUnauthorized)
}

func TestCheck_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/auth/check", nil)
	assertStatus(t, w.Code, http.StatusOK)

	var resp checkResponse
	decodeBody(t, w, &resp)
	if resp.Authenticated || resp.User != nil {
		t.Errorf("check = %+v; want anonymous", resp)
	}
}
