// ABOUTME: Inline formatter: escapes raw text, then applies bold, italic, code, links and line breaks.
// ABOUTME: Substitutions run on already-escaped text so inserted markup is never re-escaped.

package render

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.+?)\*`)
	codePattern   = regexp.MustCompile("`(.+?)`")
	linkPattern   = regexp.MustCompile(`\[(.+?)\]\((.+?)\)`)
)

// Inline converts one line or paragraph of raw text to inline markup. The
// order is fixed: bold before italic so a single-asterisk match cannot split
// a double-asterisk pair.
func Inline(text string) string {
	if text == "" {
		return ""
	}
	s := html.EscapeString(text)
	s = boldPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicPattern.ReplaceAllString(s, "<em>$1</em>")
	s = codePattern.ReplaceAllString(s, "<code>$1</code>")
	s = linkPattern.ReplaceAllStringFunc(s, renderLink)
	return strings.ReplaceAll(s, "\n", "<br>")
}

// renderLink turns an escaped "[label](url)" match into an anchor that opens in
// a new context without an opener reference. Links with a scheme other than
// http, https or mailto keep only their label.
func renderLink(match string) string {
	m := linkPattern.FindStringSubmatch(match)
	label, href := m[1], m[2]
	if !safeHref(html.UnescapeString(href)) {
		return label
	}
	return `<a href="` + href + `" target="_blank" rel="noopener noreferrer">` + label + `</a>`
}

func safeHref(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "", "http", "https", "mailto":
		return true
	default:
		return false
	}
}
