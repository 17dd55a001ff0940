// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model holds the small value types shared across the analytics
// and activity packages.
package model

// EventType names a tracked visitor interaction. The set is open: clients
// may send types the server has never seen and they are stored as-is.
type EventType string

// Event types emitted by the public site.
const (
	EventPostView      EventType = "post_view"
	EventVideoPlay     EventType = "video_play"
	EventVideoEnd      EventType = "video_end"
	EventTimeOnPage    EventType = "time_on_page"
	EventCommentSubmit EventType = "comment_submit"
	EventPostLike      EventType = "post_like"
	EventPostUnlike    EventType = "post_unlike"
	EventSearch        EventType = "search"
	EventError         EventType = "error"
	EventHeartbeat     EventType = "heartbeat"
	EventPageVisit     EventType = "page_visit"
)

// MaxEventTypeLength bounds the event_type column.
const MaxEventTypeLength = 50

// Known reports whether t is one of the predefined event types.
func (t EventType) Known() bool {
	switch t {
	case EventPostView, EventVideoPlay, EventVideoEnd, EventTimeOnPage,
		EventCommentSubmit, EventPostLike, EventPostUnlike, EventSearch,
		EventError, EventHeartbeat, EventPageVisit:
		return true
	default:
		return false
	}
}

// Label returns a short human description used in reports.
func (t EventType) Label() string {
	switch t {
	case EventPostView:
		return "Viewed"
	case EventVideoPlay:
		return "Video played"
	case EventVideoEnd:
		return "Video finished"
	case EventTimeOnPage:
		return "Time on page"
	case EventCommentSubmit:
		return "Commented"
	case EventPostLike:
		return "Liked"
	case EventPostUnlike:
		return "Unliked"
	default:
		return string(t)
	}
}
