// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"unicode/utf8"

	"github.com/olegiv/oblog/internal/hooks"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/util"
)

// previewLength bounds free text copied into audit details.
const previewLength = 50

// newMutation describes a committed write made by the request's user.
func newMutation(r *http.Request, action model.Action, entityType string, entityID int64, details any) model.Mutation {
	req := util.RequestInfo(r)
	return model.Mutation{
		ActorID:    middleware.GetUserIDPtr(r),
		ActorEmail: middleware.GetUserEmail(r),
		Action:     action,
		EntityType: entityType,
		EntityID:   &entityID,
		Details:    details,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	}
}

// announce emits m after its write has committed. Subscribers cannot fail
// the request.
func announce(r *http.Request, reg *hooks.Registry, m model.Mutation) {
	if reg == nil {
		return
	}
	reg.Emit(r.Context(), hooks.MutationCommitted, m)
}

// preview shortens s to previewLength runes, marking the cut with "...".
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	return string([]rune(s)[:previewLength]) + "..."
}
