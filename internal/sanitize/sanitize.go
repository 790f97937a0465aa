// Package sanitize strips unsafe markup from user-submitted text before it
// is stored.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// strict removes every tag; used for titles, names and venues.
	strict = bluemonday.StrictPolicy()
	// ugc keeps basic formatting; used for descriptions and testimony bodies.
	ugc = bluemonday.UGCPolicy()
)

// Text returns input with all HTML removed and surrounding space trimmed.
func Text(input string) string {
	return strings.TrimSpace(strict.Sanitize(input))
}

// HTML returns input with only safe formatting markup kept.
func HTML(input string) string {
	return strings.TrimSpace(ugc.Sanitize(input))
}
