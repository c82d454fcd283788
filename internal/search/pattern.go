package search

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/kobzarvs/qview/internal/store"
)

// ParsePattern turns user input into search bytes.
//
// The input may carry a mode prefix:
//
//	text:hello      literal bytes (the default without a prefix)
//	hex:DE AD BE EF hex digits, spaces ignored, odd count padded with a leading 0
//	u8:255          unsigned integers, with u16/u32/u64 taking an le/be
//	u16le:513       suffix (little-endian when omitted)
func ParsePattern(input string) ([]byte, error) {
	mode, value, ok := strings.Cut(input, ":")
	if !ok {
		return nonEmpty([]byte(input))
	}
	switch strings.ToLower(mode) {
	case "text", "ascii":
		return nonEmpty([]byte(value))
	case "hex":
		return parseHex(value)
	}
	width, big, ok := parseIntMode(strings.ToLower(mode))
	if !ok {
		// Not a known prefix, so the colon is part of the text.
		return nonEmpty([]byte(input))
	}
	n, err := strconv.ParseUint(strings.TrimSpace(value), 0, width*8)
	if err != nil {
		return nil, fmt.Errorf("%s pattern %q: %w", mode, value, err)
	}
	out := make([]byte, 8)
	if big {
		binary.BigEndian.PutUint64(out, n)
		return out[8-width:], nil
	}
	binary.LittleEndian.PutUint64(out, n)
	return out[:width], nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		b, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("hex pattern %q: %w", s[i:i+2], err)
		}
		out[i/2] = byte(b)
	}
	return nonEmpty(out)
}

// parseIntMode returns the byte width and order of an integer prefix.
func parseIntMode(mode string) (width int, big bool, ok bool) {
	switch {
	case strings.HasSuffix(mode, "be"):
		big = true
		mode = strings.TrimSuffix(mode, "be")
	case strings.HasSuffix(mode, "le"):
		mode = strings.TrimSuffix(mode, "le")
	}
	switch mode {
	case "u8":
		return 1, big, true
	case "u16":
		return 2, big, true
	case "u32":
		return 4, big, true
	case "u64":
		return 8, big, true
	}
	return 0, false, false
}

func nonEmpty(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, store.ErrEmptyPattern
	}
	return p, nil
}
