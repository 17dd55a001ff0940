// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package export

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/olegiv/oblog/internal/analytics"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/util"
)

// Report layout limits.
const (
	ExcerptWidth       = 90
	ExcerptMaxLines    = 20
	ReportActivityRows = 10
)

// PostReport is the page-independent content of a post statistics report.
type PostReport struct {
	ID          string
	GeneratedAt time.Time
	PostTitle   string
	PostSlug    string
	Overview    []string
	Excerpt     []string
	Activity    []string
}

var numbers = message.NewPrinter(language.English)

// BuildPostReport lays out stats for rendering. now is the generation time
// and the reference for the post age.
func BuildPostReport(stats analytics.PostStats, now time.Time) PostReport {
	now = now.UTC()
	p := stats.Post

	r := PostReport{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		PostTitle:   p.Title,
		PostSlug:    p.Slug,
		Overview: []string{
			numbers.Sprintf("Total Views: %d", stats.TotalViews),
			numbers.Sprintf("Video Plays: %d", stats.VideoPlays),
			numbers.Sprintf("Comments: %d", stats.CommentsCount),
			numbers.Sprintf("Post Age: %d days", ageDays(p.CreatedAt, now)),
			"Created: " + formatDate(p.CreatedAt),
			"Last Updated: " + formatDate(p.UpdatedAt),
		},
		Excerpt: Excerpt(p.Content, ExcerptWidth, ExcerptMaxLines),
	}

	for i, ev := range stats.RecentActivity {
		if i == ReportActivityRows {
			break
		}
		r.Activity = append(r.Activity, fmt.Sprintf("%s - %s (%s, %s)",
			model.EventType(ev.EventType).Label(),
			ev.Timestamp.UTC().Format("2006-01-02 15:04 UTC"),
			ev.Browser,
			ev.IPAddress,
		))
	}
	return r
}

func ageDays(created, now time.Time) int {
	if created.IsZero() || created.After(now) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("Jan 2, 2006")
}

// Filename names the PDF download of r.
func (r PostReport) Filename() string {
	name := r.PostSlug
	if name == "" {
		name = util.Slugify(r.PostTitle)
	}
	if name == "" {
		name = "post"
	}
	return "post-stats-" + name + "-" + r.GeneratedAt.Format("2006-01-02") + ".pdf"
}
