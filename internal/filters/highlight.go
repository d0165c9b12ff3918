package filters

import (
	"regexp"
)

// DefaultHighlightClass is the class of the span that wraps highlighted matches.
const DefaultHighlightClass = "ui-highlight"

var regexpSpecial = regexp.MustCompile(`[.?*+^$[\]\\(){}|-]`)

// EscapeRegexp backslash-escapes the pattern metacharacters in s so that the
// result matches s literally.
func EscapeRegexp(s string) string {
	return regexpSpecial.ReplaceAllString(s, `\$0`)
}

// Highlighter wraps query matches in a span element.
type Highlighter struct {
	// Class is the span class; empty means DefaultHighlightClass.
	Class string
}

// Highlight returns haystack with every case-insensitive occurrence of query
// wrapped in a span. The query is matched literally. When either argument is
// empty, haystack is returned unchanged.
func (h Highlighter) Highlight(haystack, query string) string {
	if haystack == "" || query == "" {
		return haystack
	}
	re, err := regexp.Compile("(?i)" + EscapeRegexp(query))
	if err != nil {
		return haystack
	}
	class := h.Class
	if class == "" {
		class = DefaultHighlightClass
	}
	open := `<span class="` + class + `">`
	return re.ReplaceAllStringFunc(haystack, func(match string) string {
		return open + match + "</span>"
	})
}

// Highlight is Highlighter.Highlight with the default class.
func Highlight(haystack, query string) string {
	return Highlighter{}.Highlight(haystack, query)
}
