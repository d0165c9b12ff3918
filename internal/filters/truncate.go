package filters

import "github.com/mattn/go-runewidth"

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// Truncate returns s unchanged when it has at most charCount characters,
// otherwise its first charCount characters followed by Ellipsis.
// charCount is not guarded: when it is zero or negative any non-empty s
// collapses to the ellipsis alone.
func Truncate(s string, charCount int) string {
	runes := []rune(s)
	if len(runes) <= charCount {
		return s
	}
	if charCount < 0 {
		charCount = 0
	}
	return string(runes[:charCount]) + Ellipsis
}

// TruncateWidth shortens s so that it fits in width terminal cells, ellipsis
// included. Wide characters count as two cells.
func TruncateWidth(s string, width int) string {
	return runewidth.Truncate(s, width, Ellipsis)
}
