/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package input

import (
	"html"
	"net/url"
	"regexp"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
)

// screen is one category of hostile input
type screen struct {
	name    string
	pattern *regexp.Regexp
}

var screens = []screen{
	{"sql", regexp.MustCompile(`(?i)(\bselect\b.*\bfrom\b)|(\binsert\b.*\binto\b)|(\bupdate\b.*\bset\b.*=)|(\bdelete\b.*\bfrom\b)|(\bdrop\b\s+\btable\b)|(\bunion\b.*\bselect\b)|(\btruncate\b\s+\btable\b)|(--|/\*|\*/)|('\s*(or|and)\s*'?\d)`)},
	{"nosql", regexp.MustCompile(`\$(where|ne|gt|gte|lt|lte|in|nin|or|and|not|regex|exists)\b`)},
	{"script", regexp.MustCompile(`(?i)(<\s*script\b)|(\bjavascript\s*:)|(\bon(load|error|click|mouseover|focus|submit)\s*=)`)},
	{"path", regexp.MustCompile(`(\.\./|\.\.\\|%2e%2e%2f|%2e%2e/|\.\.%2f)`)},
	{"shell", regexp.MustCompile("[;`]|\\$\\(|&&|\\|\\||>\\s*/|\\bwget\\b|\\bcurl\\s+-")},
}

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)

// Validator screens free-form text before it reaches the stores. Detections
// end up in the audit log as warnings
type Validator struct {
	audit *audit.Logger
}

func NewValidator(a *audit.Logger) *Validator {
	return &Validator{audit: a}
}

// CheckText tells whether the text is acceptable. On detection the category
// is reported in the message and the attempt is audited
func (v *Validator) CheckText(field, text, actor string) (bool, string) {
	for _, s := range screens {
		if s.pattern.MatchString(text) {
			if v.audit != nil {
				v.audit.Warningf("INJECTION_ATTEMPT", actor, map[string]any{
					"field":    field,
					"category": s.name,
				})
			}
			return false, "Invalid characters in " + field
		}
	}
	return true, ""
}

// Sanitize escapes the text for safe embedding in markup
func (v *Validator) Sanitize(text string) string {
	return html.EscapeString(text)
}

// ValidMAC accepts colon or dash separated hex pairs, e.g. 00:1A:2B:3C:4D:5E
func ValidMAC(mac string) bool {
	return macPattern.MatchString(mac)
}

// ValidURL accepts absolute http(s) URLs only
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
