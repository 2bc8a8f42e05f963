package hunk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Header is the position part of a unified diff hunk: "@@ -a,b +c,d @@".
// Zero-length sides follow git's convention of naming the line before the
// change.
type Header struct {
	OldStart uint32 `json:"oldStart"`
	OldLines uint32 `json:"oldLines"`
	NewStart uint32 `json:"newStart"`
	NewLines uint32 `json:"newLines"`
}

// NetLines is the number of lines the hunk adds, negative when it removes.
func (h Header) NetLines() (int32, error) {
	net := int64(h.NewLines) - int64(h.OldLines)
	if net < math.MinInt32 || net > math.MaxInt32 {
		return 0, &ArithmeticError{Op: "-", A: int64(h.NewLines), B: int64(h.OldLines)}
	}
	return int32(net), nil
}

func (h Header) OldRange() Span {
	return Span{Start: h.OldStart, Lines: h.OldLines}
}

func (h Header) NewRange() Span {
	return Span{Start: h.NewStart, Lines: h.NewLines}
}

func (h Header) String() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// ParseHeader accepts "@@ -a,b +c,d @@" (optionally followed by a section
// heading), "-a,b +c,d" or the comma form "a,b,c,d". Omitted counts default
// to 1 as in unified diffs.
func ParseHeader(s string) (Header, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "@@") {
		rest := strings.TrimSpace(s[2:])
		end := strings.Index(rest, "@@")
		if end < 0 {
			return Header{}, fmt.Errorf("invalid hunk header %q: missing closing @@", s)
		}
		s = strings.TrimSpace(rest[:end])
	}

	if !strings.HasPrefix(s, "-") {
		parts := strings.Split(s, ",")
		if len(parts) != 4 {
			return Header{}, fmt.Errorf("invalid hunk header %q: want old_start,old_lines,new_start,new_lines", s)
		}
		var nums [4]uint32
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
			if err != nil {
				return Header{}, fmt.Errorf("invalid hunk header %q: %w", s, err)
			}
			nums[i] = uint32(n)
		}
		return Header{OldStart: nums[0], OldLines: nums[1], NewStart: nums[2], NewLines: nums[3]}, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 2 || !strings.HasPrefix(fields[1], "+") {
		return Header{}, fmt.Errorf("invalid hunk header %q", s)
	}
	oldStart, oldLines, err := parseSide(fields[0][1:])
	if err != nil {
		return Header{}, fmt.Errorf("invalid hunk header %q: %w", s, err)
	}
	newStart, newLines, err := parseSide(fields[1][1:])
	if err != nil {
		return Header{}, fmt.Errorf("invalid hunk header %q: %w", s, err)
	}
	return Header{OldStart: oldStart, OldLines: oldLines, NewStart: newStart, NewLines: newLines}, nil
}

func parseSide(s string) (start, lines uint32, err error) {
	startStr, linesStr, hasLines := strings.Cut(s, ",")
	n, err := strconv.ParseUint(startStr, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	if !hasLines {
		return uint32(n), 1, nil
	}
	l, err := strconv.ParseUint(linesStr, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(n), uint32(l), nil
}

// Span is one side of a hunk header.
type Span struct {
	Start uint32 `json:"start"`
	Lines uint32 `json:"lines"`
}

// Intersects reports whether two spans share a line. An empty span
// occupies the single line named by its start, so two insertions at the same
// point match each other.
func (s Span) Intersects(o Span) bool {
	a := uint64(s.Start)
	aEnd := a + uint64(max(s.Lines, 1))
	b := uint64(o.Start)
	bEnd := b + uint64(max(o.Lines, 1))
	return a < bEnd && b < aEnd
}
