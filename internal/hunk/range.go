package hunk

import "fmt"

// Range is the current extent of a committed hunk in the workspace tree.
//
// Lines == 0 marks an insertion point or a range that later commits have
// fully overwritten. Start == 0 && Lines == 0 is the top of the file.
// LineShift is the net line delta of the hunk that produced the range.
type Range struct {
	ChangeKind ChangeKind `json:"changeKind"`
	StackID    StackID    `json:"stackId"`
	CommitID   CommitID   `json:"commitId"`
	Start      uint32     `json:"start"`
	Lines      uint32     `json:"lines"`
	LineShift  int32      `json:"lineShift"`
}

func (r Range) String() string {
	return fmt.Sprintf("%s %d,%d (%+d) %s", r.CommitID.Short(), r.Start, r.Lines, r.LineShift, r.ChangeKind)
}

// Lock returns the dependency a hunk intersecting r has on r's commit.
func (r Range) Lock() Lock {
	return Lock{StackID: r.StackID, CommitID: r.CommitID}
}

// Intersects reports whether the span (start, lines) overlaps r. A
// zero-length incoming span is git's "insert after line start" and only
// intersects when it falls strictly inside r.
func (r Range) Intersects(start, lines uint32) (bool, error) {
	if r.ChangeKind == Deletion {
		return true, nil
	}
	if start == 0 && lines == 0 {
		return false, nil
	}
	if lines == 0 {
		// Insertions right after r's last line stay free, so adjacent
		// insertions and line shifts split ranges instead of locking them.
		return uint64(r.Start) <= uint64(start) && uint64(r.Start)+uint64(r.Lines) > uint64(start)+1, nil
	}

	incomingLast, err := lastLine(start, lines)
	if err != nil {
		return false, fmt.Errorf("incoming span %d,%d: %w", start, lines, err)
	}

	if r.Lines == 0 {
		if r.LineShift < 0 {
			removed := -int64(r.LineShift)
			last := int64(r.Start) + removed - 1
			return r.Start <= incomingLast && last >= int64(start), nil
		}
		return r.Start >= start && uint64(r.Start) < uint64(start)+uint64(lines), nil
	}

	last, err := lastLine(r.Start, r.Lines)
	if err != nil {
		return false, fmt.Errorf("range %d,%d: %w", r.Start, r.Lines, err)
	}
	return r.Start <= incomingLast && last >= start, nil
}

// Contains reports whether (start, lines) lies strictly inside r. An exact
// match is not contained.
func (r Range) Contains(start, lines uint32) bool {
	end := uint64(r.Start) + uint64(r.Lines)
	if lines == 0 {
		return r.Start <= start && end > uint64(start)+1
	}
	return start > r.Start && uint64(start)+uint64(lines) <= end
}

// CoveredBy reports whether r lies entirely within (start, lines).
func (r Range) CoveredBy(start, lines uint32) bool {
	if start == 0 && lines == 0 {
		return false
	}
	return r.Start >= start && uint64(r.Start)+uint64(r.Lines) <= uint64(start)+uint64(lines)
}

// Precedes reports whether r ends before line start.
func (r Range) Precedes(start uint32) (bool, error) {
	last, err := lastLine(r.Start, r.Lines)
	if err != nil {
		return false, fmt.Errorf("range %d,%d: %w", r.Start, r.Lines, err)
	}
	return last < start, nil
}

// Follows reports whether r begins after the last line of (start, lines).
func (r Range) Follows(start, lines uint32) (bool, error) {
	if start == 0 && lines == 0 {
		return true, nil
	}
	if lines == 0 {
		return r.Start > start, nil
	}
	incomingLast, err := lastLine(start, lines)
	if err != nil {
		return false, fmt.Errorf("incoming span %d,%d: %w", start, lines, err)
	}
	return r.Start > incomingLast, nil
}
