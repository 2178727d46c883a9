package pdfdoc

import "strings"

// Advance widths in 1/1000 em for printable ASCII (32..126), from the
// Helvetica and Helvetica-Bold AFM files.
var widths = [2][95]uint16{
	Regular: {
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	},
	Bold: {
		278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	},
}

const defaultWidth = 556

func runeWidth(f Font, r rune) uint16 {
	if r >= 32 && r <= 126 {
		return widths[f][r-32]
	}
	return defaultWidth
}

// StringWidth returns the width of s in points at the given font size.
func StringWidth(f Font, size float64, s string) float64 {
	var total int
	for _, r := range s {
		total += int(runeWidth(f, r))
	}
	return float64(total) * size / 1000
}

// Wrap splits s into lines no wider than maxWidth. Explicit newlines start a
// new line; words longer than maxWidth are broken between characters. The
// result always has at least one line.
func Wrap(f Font, size float64, s string, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		lines = append(lines, wrapParagraph(f, size, para, maxWidth)...)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func wrapParagraph(f Font, size float64, para string, maxWidth float64) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	space := StringWidth(f, size, " ")

	var lines []string
	var cur strings.Builder
	curW := 0.0
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curW = 0
	}

	for _, word := range words {
		ww := StringWidth(f, size, word)
		if ww > maxWidth {
			if cur.Len() > 0 {
				flush()
			}
			lines = append(lines, breakWord(f, size, word, maxWidth)...)
			// Continue filling after the last piece.
			last := lines[len(lines)-1]
			lines = lines[:len(lines)-1]
			cur.WriteString(last)
			curW = StringWidth(f, size, last)
			continue
		}
		if cur.Len() > 0 && curW+space+ww > maxWidth {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
			curW += space
		}
		cur.WriteString(word)
		curW += ww
	}
	if cur.Len() > 0 {
		flush()
	}
	return lines
}

func breakWord(f Font, size float64, word string, maxWidth float64) []string {
	var out []string
	var cur []rune
	curW := 0.0
	for _, r := range word {
		rw := float64(runeWidth(f, r)) * size / 1000
		if len(cur) > 0 && curW+rw > maxWidth {
			out = append(out, string(cur))
			cur = cur[:0]
			curW = 0
		}
		cur = append(cur, r)
		curW += rw
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

// Truncate shortens s with a trailing "..." so it fits in maxWidth.
func Truncate(f Font, size float64, s string, maxWidth float64) string {
	if StringWidth(f, size, s) <= maxWidth {
		return s
	}
	ellipsis := "..."
	limit := maxWidth - StringWidth(f, size, ellipsis)
	rs := []rune(s)
	w := 0.0
	for i, r := range rs {
		w += float64(runeWidth(f, r)) * size / 1000
		if w > limit {
			return string(rs[:i]) + ellipsis
		}
	}
	return s
}
