package ui

import (
	"fmt"
	"strings"
)

// debug font glyphs are 6px wide
const glyphW = 6

// maxCharsForText is how many characters fit on one line starting at x.
func (a *App) maxCharsForText(x int) int {
	n := (a.curW - x) / glyphW
	if n < 1 {
		n = 1
	}
	return n
}

func (a *App) truncateText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// wrapText breaks s at spaces into lines of at most max characters. Words
// longer than a line are cut.
func (a *App) wrapText(s string, max int) []string {
	var lines []string
	var cur strings.Builder
	for _, w := range strings.Fields(s) {
		for len(w) > max {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			lines = append(lines, w[:max])
			w = w[max:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(w) > max {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// slotKeyRange describes the keys that select a slot, e.g. "1-4" or "1-9,0".
func (a *App) slotKeyRange() string {
	switch n := a.cfg.Slots; {
	case n == 1:
		return "1"
	case n < 10:
		return fmt.Sprintf("1-%d", n)
	}
	return "1-9,0"
}
