// Package htmlsanitize cleans user-authored rich text (note bodies and
// project content) before it is stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "mark")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td", "pre", "code")
	p.AllowAttrs("style").OnElements("table", "tr", "th", "td")
	p.AllowStyles("width", "text-align", "vertical-align").OnElements("table", "tr", "th", "td")
	return p
}

// Sanitize strips scripts, event handlers, unsafe URLs, and any element not
// used in ordinary formatted text.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// Clean returns s unchanged when it carries no markup, so plain and markdown
// text keep their literal angle brackets, and the sanitized form otherwise.
func Clean(s string) string {
	if IsPlainText(s) {
		return s
	}
	return Sanitize(s)
}
