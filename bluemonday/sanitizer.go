// Package bluemonday sanitizes generated HTML with a bluemonday policy.
package bluemonday

import (
	"github.com/fwojciec/wikidigest"
	"github.com/microcosm-cc/bluemonday"
)

// Ensure Sanitizer implements wikidigest.Sanitizer at compile time.
var _ wikidigest.Sanitizer = (*Sanitizer)(nil)

// Sanitizer removes scripts, event handlers and unsafe URLs from digest
// email bodies. Inline styles survive, since mail clients ignore
// stylesheets.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer on the user-generated-content policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowStyles(
		"color", "background-color", "font-family", "font-size", "font-weight",
		"margin", "padding", "line-height", "list-style-type", "border",
		"border-left", "border-radius", "text-decoration",
	).Globally()
	p.AllowAttrs("style").OnElements("html", "body")
	p.AllowElements("html", "head", "body", "title")
	p.RequireNoFollowOnLinks(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Sanitizer{policy: p}
}

// Sanitize returns html with disallowed markup removed.
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
