// Package filters provides the text filters that templates bind by name:
// capitalize, truncate and highlight, plus the registry that exposes them.
package filters

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wordPattern matches a word and the spaces after it. A word starts at an ASCII
// letter or digit and runs until whitespace or a hyphen. Whitespace includes
// the Unicode space separators, not only the ASCII ones RE2 puts in \s.
var wordPattern = regexp.MustCompile(
	`[^\W_]+[^\s\v\x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}-]* *`)

// Capitalize upper-cases the first character of every word in s and lower-cases
// the rest of the word. Characters outside words are left as they are.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	return wordPattern.ReplaceAllStringFunc(s, func(word string) string {
		// The first byte is always ASCII.
		return upper.String(word[:1]) + lower.String(word[1:])
	})
}
