package format

import (
	"fmt"
	"strings"
)

// BorderedText renders text inside a box of the given total width with
// word wrapping.
func BorderedText(text, title string, width int) string {
	innerW := max(width-4, 30)

	var wrapped []string
	for _, paragraph := range strings.Split(text, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			wrapped = append(wrapped, "")
			continue
		}
		wrapped = append(wrapped, wordWrap(paragraph, innerW)...)
	}

	top := strings.Repeat("─", innerW+2)
	if title != "" {
		lbl := fmt.Sprintf("─ %s ", title)
		top = lbl + strings.Repeat("─", max(innerW+2-runeLen(lbl), 0))
	}

	output := []string{"┌" + top + "┐"}
	for _, line := range wrapped {
		output = append(output, "│ "+padOrTrunc(line, innerW)+" │")
	}
	output = append(output, "└"+strings.Repeat("─", innerW+2)+"┘")
	return strings.Join(output, "\n")
}

// wordWrap wraps text to the given width, breaking at word boundaries.
func wordWrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if runeLen(current)+1+runeLen(word) <= width {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}

func padOrTrunc(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}

func runeLen(s string) int {
	return len([]rune(s))
}
