// Package sanitize turns user supplied text into plain text before it is
// stored. Output is never trusted HTML: renderers still escape it.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips every tag and surrounding whitespace. Entities produced by the
// policy are decoded back so "L&L" stays "L&L".
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Lines applies Text to every entry and drops the ones left empty.
func Lines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := Text(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
