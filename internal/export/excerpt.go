// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package export

import (
	"bytes"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// TruncationMarker ends an excerpt that was cut short.
const TruncationMarker = "[…]"

var stripPolicy = bluemonday.StrictPolicy()

// PlainText renders Markdown source and strips every tag, leaving
// single-spaced text.
func PlainText(markdown string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		buf.Reset()
		buf.WriteString(markdown)
	}
	text := html.UnescapeString(stripPolicy.Sanitize(buf.String()))
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns the plain text of markdown wrapped to width columns. When
// more than maxLines lines result, the first maxLines are kept and
// TruncationMarker is appended as a final line.
func Excerpt(markdown string, width, maxLines int) []string {
	lines := Wrap(PlainText(markdown), width)
	if maxLines > 0 && len(lines) > maxLines {
		lines = append(lines[:maxLines:maxLines], TruncationMarker)
	}
	return lines
}

// Wrap breaks text into lines of at most width runes at word boundaries.
// Words longer than width are split.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}

	var lines []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > width {
			flush()
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}

		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > width {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	flush()
	return lines
}
