// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"errors"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/store"
)

// DefaultWindowDays is the length of the trailing daily series used when no
// explicit range is requested.
const DefaultWindowDays = 30

// MaxRangeDays bounds an explicit dashboard range.
const MaxRangeDays = 731

// ErrInvalidDateRange is returned for unparseable, inverted or oversized
// ranges.
var ErrInvalidDateRange = errors.New("invalid date range")

// DateRange is an inclusive time range. The zero value means "no filter".
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no range was requested.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) timeRange() store.TimeRange {
	return store.TimeRange{Start: r.Start, End: r.End}
}

// ParseDateRange reads startDate and endDate query values. Each accepts
// YYYY-MM-DD or RFC 3339; a date-only end covers that whole day. The range
// applies only when both values are present, otherwise the zero DateRange
// is returned.
func ParseDateRange(startDate, endDate string) (DateRange, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return DateRange{}, nil
	}

	start, _, err := parseBound(startDate)
	if err != nil {
		return DateRange{}, err
	}
	end, dateOnly, err := parseBound(endDate)
	if err != nil {
		return DateRange{}, err
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Second)
	}

	if start.After(end) {
		return DateRange{}, ErrInvalidDateRange
	}
	if spanDays(start, end) > MaxRangeDays {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: start, End: end}, nil
}

func parseBound(s string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.Parse(store.DateLayout, s); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, ErrInvalidDateRange
}

// trailingWindow returns the last n calendar days ending on now's UTC date.
func trailingWindow(now time.Time, n int) DateRange {
	today := truncateDay(now.UTC())
	return DateRange{
		Start: today.AddDate(0, 0, -(n - 1)),
		End:   today.Add(24*time.Hour - time.Second),
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// spanDays counts the UTC calendar days touched by [start, end].
func spanDays(start, end time.Time) int {
	return int(truncateDay(end.UTC()).Sub(truncateDay(start.UTC())).Hours()/24) + 1
}

// dayKeys lists every UTC calendar day touched by [start, end].
func dayKeys(start, end time.Time) []string {
	var keys []string
	last := truncateDay(end.UTC())
	for d := truncateDay(start.UTC()); !d.After(last); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(store.DateLayout))
	}
	return keys
}

// fillDays merges sparse per-day counts into a series holding every day of
// r, in order, with 0 for days without rows.
func fillDays(r DateRange, rows []store.DateCount) []DayCount {
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Date] = row.Count
	}

	keys := dayKeys(r.Start, r.End)
	series := make([]DayCount, len(keys))
	for i, k := range keys {
		series[i] = DayCount{Date: k, Count: counts[k]}
	}
	return series
}

// fillHours expands sparse hour-of-day counts into all 24 buckets.
func fillHours(rows []store.HourCount) []HourCount {
	series := make([]HourCount, 24)
	for h := range series {
		series[h].Hour = h
	}
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			series[row.Hour].Count = row.Count
		}
	}
	return series
}

// DayCount is one day of a zero-filled series.
type DayCount struct {
	Date  string
	Count int64
}

// HourCount is one hour-of-day bucket.
type HourCount struct {
	Hour  int
	Count int64
}
