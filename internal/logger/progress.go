package logger

import (
	"fmt"
	"strings"
)

// defaultGaugeWidth is the column count between the gauge brackets.
const defaultGaugeWidth = 10

// renderProgress draws the gauge fragment of a progress line, e.g.
// "[=====     ] 5/10 (50%)" for a run halfway through its documents.
// The percentage clamps to 0-100 while the counts stay raw, so a done
// count past total still shows what actually happened. With color
// enabled the fragment is cyan while documents remain and green once
// every document is done.
func renderProgress(done, total, width int, colored bool) string {
	if width < 1 {
		width = defaultGaugeWidth
	}

	percent := 0
	if total > 0 {
		percent = done * 100 / total
		if percent > 100 {
			percent = 100
		}
		if percent < 0 {
			percent = 0
		}
	}

	filled := percent * width / 100
	gauge := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
	fragment := fmt.Sprintf("%s %d/%d (%d%%)", gauge, done, total, percent)

	if !colored {
		return fragment
	}
	if percent == 100 && total > 0 {
		return "\033[32m" + fragment + "\033[0m"
	}
	return "\033[36m" + fragment + "\033[0m"
}
