package ingest

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// stripPolicy drops every tag and keeps only text.
var stripPolicy = bluemonday.StrictPolicy()

// NormalizeSpace collapses every whitespace run (newlines, U+3000 and NBSP
// included) into a single space and trims the result.
func NormalizeSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// TruncateRunes cuts text to at most maxRunes runes, appending an ellipsis
// when something was cut.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}

// prefixRunes returns the first n runes of text without an ellipsis.
func prefixRunes(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// StripMarkup removes tags and entities that CMS titles sometimes carry as
// literal text, then normalizes whitespace.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return NormalizeSpace(s)
	}
	return NormalizeSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
