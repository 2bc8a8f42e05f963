// Package lineset holds the line numbers a hunk adds or removes.
package lineset

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// LineSet is a sorted set of 1-based line numbers. It prints in compact
// notation like "5,7-8,12".
type LineSet struct {
	lines []int
}

// New creates a LineSet from individual line numbers.
func New(lines ...int) LineSet {
	return LineSet{lines: normalize(slices.Clone(lines))}
}

// FromString parses compact notation like "5", "5-7", or "5,7-8,12".
func FromString(s string) (LineSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LineSet{}, nil
	}

	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return LineSet{}, fmt.Errorf("invalid line number %q: %w", lo, err)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return LineSet{}, fmt.Errorf("invalid range end %q: %w", hi, err)
			}
			if last < first {
				return LineSet{}, fmt.Errorf("invalid range %d-%d", first, last)
			}
		}
		if first <= 0 {
			return LineSet{}, fmt.Errorf("line numbers start at 1, got %d", first)
		}
		for n := first; n <= last; n++ {
			lines = append(lines, n)
		}
	}
	return LineSet{lines: normalize(lines)}, nil
}

// String returns the compact notation.
func (ls LineSet) String() string {
	var b strings.Builder
	for i := 0; i < len(ls.lines); i++ {
		first := ls.lines[i]
		for i+1 < len(ls.lines) && ls.lines[i+1] == ls.lines[i]+1 {
			i++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(first))
		if last := ls.lines[i]; last != first {
			fmt.Fprintf(&b, "-%d", last)
		}
	}
	return b.String()
}

func (ls LineSet) IsEmpty() bool { return len(ls.lines) == 0 }

func (ls LineSet) Len() int { return len(ls.lines) }

// Lines returns the sorted line numbers. The slice must not be modified.
func (ls LineSet) Lines() []int { return ls.lines }

// Contains returns true if the given line number is in the set.
func (ls LineSet) Contains(line int) bool {
	_, found := slices.BinarySearch(ls.lines, line)
	return found
}

// Bounds returns the first and last line, or 0, 0 for an empty set.
func (ls LineSet) Bounds() (first, last int) {
	if len(ls.lines) == 0 {
		return 0, 0
	}
	return ls.lines[0], ls.lines[len(ls.lines)-1]
}

// MarshalJSON serializes as a JSON string in compact notation, null when
// empty.
func (ls LineSet) MarshalJSON() ([]byte, error) {
	if ls.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(ls.String())
}

func (ls *LineSet) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		ls.lines = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("line set: %w", err)
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*ls = parsed
	return nil
}

func normalize(nums []int) []int {
	if len(nums) == 0 {
		return nil
	}
	slices.Sort(nums)
	return slices.Compact(nums)
}
