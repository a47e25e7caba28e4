package utils

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify creates a URL-friendly slug from a bootcamp name.
//
//   - "Devworks Bootcamp" → "devworks-bootcamp"
//   - "UI/UX  Academy!" → "ui-ux-academy"
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
