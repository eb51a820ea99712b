package ui

import (
	"github.com/mattn/go-runewidth"
)

// truncateWidth shortens s to at most maxWidth terminal cells, appending
// suffix when truncation happens. Uses go-runewidth so wide characters
// count correctly.
func truncateWidth(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth >= maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}

// runewidthLen returns the display width of s in terminal cells.
func runewidthLen(s string) int {
	return runewidth.StringWidth(s)
}

// padWidth pads s with spaces on the right up to width terminal cells.
func padWidth(s string, width int) string {
	w := runewidth.StringWidth(s)
	for ; w < width; w++ {
		s += " "
	}
	return s
}
