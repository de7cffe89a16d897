package parser

import (
	"strings"
)

// FenceState tracks whether we're inside a fenced code block.
type FenceState struct {
	InFence  bool
	FenceCh  byte
	FenceLen int
}

// NormalizeFenceLine prepares a line for fence marker detection.
// It strips leading whitespace, blockquote prefixes and a single list marker
// so fences nested in quotes and list items are still detected.
func NormalizeFenceLine(line string) string {
	s := strings.TrimLeft(line, " \t")
	for strings.HasPrefix(s, ">") {
		s = strings.TrimLeft(strings.TrimPrefix(s, ">"), " \t")
	}
	if len(s) >= 2 && (s[0] == '-' || s[0] == '*' || s[0] == '+') && (s[1] == ' ' || s[1] == '\t') {
		s = strings.TrimLeft(s[1:], " \t")
	}
	return s
}

// ParseFenceMarker checks if a line (after normalization) starts a code fence.
// Returns the fence character, fence length, and whether it's a valid fence.
func ParseFenceMarker(line string) (ch byte, n int, ok bool) {
	if len(line) < 3 {
		return 0, 0, false
	}
	ch = line[0]
	if ch != '`' && ch != '~' {
		return 0, 0, false
	}
	for n < len(line) && line[n] == ch {
		n++
	}
	if n < 3 {
		return 0, 0, false
	}
	return ch, n, true
}

// UpdateFenceState updates the fence state based on a line.
// Returns true if the line is a fence marker (opening or closing).
func (fs *FenceState) UpdateFenceState(line string) bool {
	ch, n, ok := ParseFenceMarker(NormalizeFenceLine(line))
	if !ok {
		return false
	}

	if !fs.InFence {
		fs.InFence = true
		fs.FenceCh = ch
		fs.FenceLen = n
		return true
	}

	if fs.FenceCh == ch && n >= fs.FenceLen {
		*fs = FenceState{}
		return true
	}

	return false
}

// RemoveInlineCode replaces inline code spans with spaces so byte offsets of
// everything else on the line are preserved.
// A span opened by N backticks is closed by the next run of exactly N backticks.
func RemoveInlineCode(line string) string {
	if strings.IndexByte(line, '`') < 0 {
		return line
	}
	result := []byte(line)

	i := 0
	for i < len(result) {
		if result[i] != '`' {
			i++
			continue
		}

		start := i
		for i < len(result) && result[i] == '`' {
			i++
		}
		openLen := i - start

		closeEnd := -1
		for j := i; j < len(result); {
			if result[j] != '`' {
				j++
				continue
			}
			runStart := j
			for j < len(result) && result[j] == '`' {
				j++
			}
			if j-runStart == openLen {
				closeEnd = j
				break
			}
		}

		if closeEnd < 0 {
			// Unmatched opener: leave it as text.
			continue
		}
		for k := start; k < closeEnd; k++ {
			result[k] = ' '
		}
		i = closeEnd
	}

	return string(result)
}
