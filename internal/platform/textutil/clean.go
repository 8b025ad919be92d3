// Package textutil holds helpers for shopper-supplied free text.
package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var markup = bluemonday.StrictPolicy()

// CleanText reduces value to plain single-spaced text and keeps at most limit runes. A limit of
// zero or less disables truncation.
func CleanText(value string, limit int) string {
	plain := html.UnescapeString(markup.Sanitize(value))
	plain = strings.Join(strings.Fields(plain), " ")
	if limit <= 0 {
		return plain
	}
	for i := range plain {
		if limit == 0 {
			return plain[:i]
		}
		limit--
	}
	return plain
}
