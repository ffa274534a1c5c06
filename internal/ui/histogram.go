package ui

import "strings"

// BarChars are the block characters used for bars, lowest to highest.
var BarChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Histogram renders counts as one block character each, scaled to the
// largest count. Zero counts render as a space.
func Histogram(counts []int64) string {
	var maxCount int64
	for _, c := range counts {
		maxCount = max(maxCount, c)
	}

	var sb strings.Builder
	sb.Grow(len(counts) * 3)
	for _, c := range counts {
		if c <= 0 || maxCount == 0 {
			sb.WriteRune(' ')
			continue
		}
		idx := int(float64(c) / float64(maxCount) * float64(len(BarChars)-1))
		sb.WriteRune(BarChars[min(max(idx, 0), len(BarChars)-1)])
	}
	return sb.String()
}
