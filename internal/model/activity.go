// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Action is the verb of an audited admin mutation.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
)

// Known reports whether a is one of the predefined actions.
func (a Action) Known() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin:
		return true
	default:
		return false
	}
}

// Entity types referenced by audit entries.
const (
	EntityPost    = "post"
	EntityComment = "comment"
	EntityUser    = "user"
)

// Change records one field's old and new value in an UPDATE audit entry.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Mutation describes a committed admin write. CRUD handlers emit it after
// commit; the activity logger turns it into an audit row.
type Mutation struct {
	ActorID    *int64
	ActorEmail string
	Action     Action
	EntityType string
	EntityID   *int64
	Details    any
	IPAddress  string
	UserAgent  string
}

// RequestInfo is the client metadata captured from an HTTP request.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}
