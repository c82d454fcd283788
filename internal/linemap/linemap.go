// Package linemap splits a byte buffer into display lines.
package linemap

import (
	"bytes"
	"sort"
)

// Line is the byte range [Start, End) of one display line. End includes the
// terminating newline or the space a soft wrap broke on.
type Line struct {
	Start int
	End   int
}

func (l Line) Len() int { return l.End - l.Start }

type LineMap []Line

// Map returns the display lines of buf. A line whose content exceeds
// maxLineLen bytes is broken after the last space before the limit, or exactly
// at the limit when there is none. maxLineLen <= 0 disables wrapping.
func Map(buf []byte, maxLineLen int) LineMap {
	var lm LineMap
	start := 0
	for start < len(buf) {
		end := len(buf)
		content := end
		if nl := bytes.IndexByte(buf[start:], '\n'); nl >= 0 {
			content = start + nl
			end = content + 1
		}
		if maxLineLen > 0 && content-start > maxLineLen {
			end = wrapAt(buf, start, maxLineLen)
		}
		lm = append(lm, Line{Start: start, End: end})
		start = end
	}
	return lm
}

// wrapAt returns the end of a wrapped line that begins at start.
func wrapAt(buf []byte, start, maxLineLen int) int {
	limit := start + maxLineLen
	if sp := bytes.LastIndexByte(buf[start+1:limit], ' '); sp >= 0 {
		return start + 1 + sp + 1
	}
	return limit
}

// LineForOffset returns the greatest line index whose start is <= off.
func LineForOffset(lm LineMap, off int) int {
	i := sort.Search(len(lm), func(i int) bool { return lm[i].Start > off })
	if i == 0 {
		return 0
	}
	return i - 1
}

// TopMax is the greatest top line that still fills a screen of visible rows.
func (lm LineMap) TopMax(visible int) int {
	if n := len(lm) - visible; n > 0 {
		return n
	}
	return 0
}

// Text returns line i without its trailing newline and carriage return.
func (lm LineMap) Text(buf []byte, i int) []byte {
	if i < 0 || i >= len(lm) {
		return nil
	}
	b := buf[lm[i].Start:lm[i].End]
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}
