package util

import (
	"mime"
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces name to a bare file name safe for a download
// header: directory components are dropped and anything outside
// [A-Za-z0-9._-] becomes a hyphen. Returns fallback when nothing usable is
// left.
func SanitizeFilename(name, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" {
		return fallback
	}

	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, base)
	safe = strings.Trim(safe, "-.")
	if safe == "" {
		return fallback
	}
	return safe
}

// AttachmentDisposition builds a Content-Disposition header value that
// makes browsers download the response as filename.
func AttachmentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{
		"filename": SanitizeFilename(filename, "download"),
	})
}
