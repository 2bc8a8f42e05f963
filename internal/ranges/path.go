package ranges

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

// PathRanges replays the hunks of successive commits for a single path.
// Each call to Add merges one commit's hunks into the ranges recorded so far
// and shifts the ranges below every hunk by the hunk's net line count.
type PathRanges struct {
	ranges       []hunk.Range
	dependencies map[hunk.CommitID]map[hunk.CommitID]struct{}
	commits      []hunk.CommitID
	lineShift    int32
}

type indexedRange struct {
	index int
	r     hunk.Range
}

// Add merges the hunks one commit made to this path. Hunks must be ordered
// top to bottom and must not overlap, as produced by git.
func (p *PathRanges) Add(stackID hunk.StackID, commitID hunk.CommitID, kind hunk.ChangeKind, hunks []hunk.Header) error {
	if slices.Contains(p.commits, commitID) {
		return fmt.Errorf("commit %s already added to this path", commitID)
	}

	// next is the first range the next hunk may touch, -1 before any hunk
	// was placed.
	next := -1
	p.lineShift = 0

	for _, h := range hunks {
		if len(p.ranges) == 1 && p.ranges[0].ChangeKind == hunk.Deletion {
			if err := p.recreate(stackID, commitID, kind, hunks, p.ranges[0]); err != nil {
				return err
			}
			break
		}

		if kind == hunk.Deletion {
			if err := p.delete(stackID, commitID, len(hunks), h); err != nil {
				return err
			}
			break
		}

		if len(p.ranges) == 0 {
			if err := p.appendAll(stackID, commitID, kind, hunks); err != nil {
				return err
			}
			break
		}

		// The previous hunk landed after every range, so this one can only
		// be appended.
		if next >= len(p.ranges) {
			if err := p.dependOnFileCreation(commitID); err != nil {
				return err
			}
			if h.NewLines > 0 {
				net, err := h.NetLines()
				if err != nil {
					return err
				}
				p.ranges = append(p.ranges, newRange(kind, stackID, commitID, h, net))
			}
			next = len(p.ranges)
			continue
		}

		oldStart := p.shiftedOldStart(h.OldStart)
		i := max(next, 0)
		var hits []indexedRange
		for ; i < len(p.ranges); i++ {
			current := p.ranges[i]
			if current.Lines == 0 {
				continue
			}

			follows, err := current.Follows(oldStart, h.OldLines)
			if err != nil {
				return err
			}
			if follows {
				break
			}

			precedes, err := current.Precedes(oldStart)
			if err != nil {
				return err
			}
			if precedes {
				continue
			}

			intersects, err := current.Intersects(oldStart, h.OldLines)
			if err != nil {
				return err
			}
			if intersects {
				hits = append(hits, indexedRange{index: i, r: current})
			}
		}

		var err error
		switch len(hits) {
		case 0:
			next, err = p.insertUntouched(stackID, commitID, kind, h, i)
		case 1:
			next, err = p.mergeSingle(stackID, commitID, kind, h, hits[0])
		default:
			next, err = p.mergeMultiple(stackID, commitID, kind, h, hits)
		}
		if err != nil {
			return err
		}
	}

	p.commits = append(p.commits, commitID)
	return nil
}

// Ranges returns a copy of the ranges in position order.
func (p *PathRanges) Ranges() []hunk.Range {
	return slices.Clone(p.ranges)
}

// Intersection returns every range that intersects (start, lines).
// Ranges whose geometry cannot be evaluated are left out.
func (p *PathRanges) Intersection(start, lines uint32) []hunk.Range {
	var out []hunk.Range
	for _, r := range p.ranges {
		if ok, err := r.Intersects(start, lines); err == nil && ok {
			out = append(out, r)
		}
	}
	return out
}

// Dependencies maps each commit to the commits whose lines it overwrote or
// relied on in this path.
func (p *PathRanges) Dependencies() map[hunk.CommitID]map[hunk.CommitID]struct{} {
	return p.dependencies
}

func (p *PathRanges) recreate(stackID hunk.StackID, commitID hunk.CommitID, kind hunk.ChangeKind, hunks []hunk.Header, deleted hunk.Range) error {
	if len(hunks) > 1 {
		return errors.New("file recreation must be the only diff in a commit")
	}
	if kind != hunk.Addition {
		return errors.New("file recreation must be an addition")
	}
	if err := p.trackDependency(commitID, deleted.CommitID); err != nil {
		return err
	}
	p.ranges = nil
	return p.appendAll(stackID, commitID, kind, hunks)
}

func (p *PathRanges) delete(stackID hunk.StackID, commitID hunk.CommitID, count int, h hunk.Header) error {
	if count > 1 {
		return errors.New("file deletion must be the only diff in a commit")
	}
	p.ranges = []hunk.Range{{
		ChangeKind: hunk.Deletion,
		StackID:    stackID,
		CommitID:   commitID,
		Start:      h.NewStart,
		Lines:      h.NewLines,
	}}

	// The deleting commit depends on the last commit that touched the file.
	if len(p.commits) > 0 {
		return p.trackDependency(commitID, p.commits[len(p.commits)-1])
	}
	return nil
}

func (p *PathRanges) appendAll(stackID hunk.StackID, commitID hunk.CommitID, kind hunk.ChangeKind, hunks []hunk.Header) error {
	for _, h := range hunks {
		net, err := h.NetLines()
		if err != nil {
			return err
		}
		p.ranges = append(p.ranges, newRange(kind, stackID, commitID, h, net))
	}
	return nil
}

// insertUntouched places a hunk that overlaps no range at index.
func (p *PathRanges) insertUntouched(stackID hunk.StackID, commitID hunk.CommitID, kind hunk.ChangeKind, h hunk.Header, index int) (int, error) {
	if err := p.dependOnFileCreation(commitID); err != nil {
		return 0, err
	}
	net, err := h.NetLines()
	if err != nil {
		return 0, err
	}
	next, firstToShift := p.splice(index, index, []hunk.Range{newRange(kind, stackID, commitID, h, net)}, 0)
	return next, p.shiftFrom(firstToShift, net)
}

func (p *PathRanges) mergeSingle(stackID hunk.StackID, commitID hunk.CommitID, kind hunk.ChangeKind, h hunk.Header, hit indexedRange) (int, error) {
	existing := hit.r
	oldStart := p.shiftedOldStart(h.OldStart)
	net, err := h.NetLines()
	if err != nil {
		return 0, err
	}
	incoming := newRange(kind, stackID, commitID, h, net)

	var replacement []hunk.Range
	interest := 0
	switch {
	case existing.CoveredBy(oldStart, h.OldLines):
		replacement = []hunk.Range{incoming}

	case existing.Contains(oldStart, h.OldLines):
		top, err := p.top(existing, h)
		if err != nil {
			return 0, fmt.Errorf("splitting range %s: %w", existing, err)
		}
		bottom, err := p.bottom(existing, kind, h, existing.LineShift)
		if err != nil {
			return 0, fmt.Errorf("splitting range %s: %w", existing, err)
		}
		replacement = []hunk.Range{top, incoming, bottom}
		interest = 1

	case oldStart <= existing.Start:
		// The bottom part keeps the incoming hunk's shift.
		bottom, err := p.bottom(existing, kind, h, net)
		if err != nil {
			return 0, fmt.Errorf("trimming start of range %s: %w", existing, err)
		}
		replacement = []hunk.Range{incoming, bottom}

	default:
		top, err := p.top(existing, h)
		if err != nil {
			return 0, fmt.Errorf("trimming end of range %s: %w", existing, err)
		}
		replacement = []hunk.Range{top, incoming}
		interest = 1
	}

	next, firstToShift := p.splice(hit.index, hit.index+1, replacement, interest)
	if err := p.trackDependency(commitID, existing.CommitID); err != nil {
		return 0, err
	}
	return next, p.shiftFrom(firstToShift, net)
}

// mergeMultiple handles a hunk spanning several ranges. Ranges between the
// first and the last hit are overwritten entirely.
func (p *PathRanges) mergeMultiple(stackID hunk.StackID, commitID hunk.CommitID, kind hunk.ChangeKind, h hunk.Header, hits []indexedRange) (int, error) {
	oldStart := p.shiftedOldStart(h.OldStart)
	net, err := h.NetLines()
	if err != nil {
		return 0, err
	}
	incoming := newRange(kind, stackID, commitID, h, net)
	first, last := hits[0], hits[len(hits)-1]
	firstCovered := first.r.CoveredBy(oldStart, h.OldLines)
	lastCovered := last.r.CoveredBy(oldStart, h.OldLines)

	var replacement []hunk.Range
	interest := 0
	switch {
	case firstCovered && lastCovered:
		replacement = []hunk.Range{incoming}

	case firstCovered:
		bottom, err := p.bottom(last.r, kind, h, last.r.LineShift)
		if err != nil {
			return 0, fmt.Errorf("trimming start of range %s: %w", last.r, err)
		}
		replacement = []hunk.Range{incoming, bottom}

	case lastCovered:
		top, err := p.top(first.r, h)
		if err != nil {
			return 0, fmt.Errorf("trimming end of range %s: %w", first.r, err)
		}
		replacement = []hunk.Range{top, incoming}
		interest = 1

	default:
		top, err := p.top(first.r, h)
		if err != nil {
			return 0, fmt.Errorf("trimming end of range %s: %w", first.r, err)
		}
		bottom, err := p.bottom(last.r, kind, h, last.r.LineShift)
		if err != nil {
			return 0, fmt.Errorf("trimming start of range %s: %w", last.r, err)
		}
		replacement = []hunk.Range{top, incoming, bottom}
		interest = 1
	}

	next, firstToShift := p.splice(first.index, last.index+1, replacement, interest)
	affected := make([]hunk.CommitID, 0, len(hits))
	for _, hit := range hits {
		affected = append(affected, hit.r.CommitID)
	}
	if err := p.trackDependency(commitID, affected...); err != nil {
		return 0, err
	}
	return next, p.shiftFrom(firstToShift, net)
}

// top is the part of r above the incoming hunk.
func (p *PathRanges) top(r hunk.Range, h hunk.Header) (hunk.Range, error) {
	lines, err := hunk.SubOrErr(h.NewStart, r.Start)
	if err != nil {
		return hunk.Range{}, err
	}
	top := r
	top.Lines = lines
	return top, nil
}

// bottom is the part of r below the incoming hunk.
func (p *PathRanges) bottom(r hunk.Range, kind hunk.ChangeKind, h hunk.Header, shift int32) (hunk.Range, error) {
	lines, err := p.trimmedLines(r, kind, h)
	if err != nil {
		return hunk.Range{}, err
	}
	start, err := hunk.AddOrErr(h.NewStart, h.NewLines)
	if err != nil {
		return hunk.Range{}, err
	}
	bottom := r
	bottom.Start = start
	bottom.Lines = lines
	bottom.LineShift = shift
	return bottom, nil
}

// trimmedLines counts the lines of r left below the incoming hunk. Pure
// additions and pure deletions name the line before the change, which is
// corrected by one here.
func (p *PathRanges) trimmedLines(r hunk.Range, kind hunk.ChangeKind, h hunk.Header) (uint32, error) {
	oldStart := p.shiftedOldStart(h.OldStart)
	var addShift, delShift uint32
	if kind == hunk.Modification && uint64(oldStart)+1 == uint64(h.NewStart) && h.OldLines == 0 && h.NewLines > 0 {
		addShift = 1
	}
	if kind == hunk.Modification && uint64(oldStart) == uint64(h.NewStart)+1 && h.OldLines > 0 && h.NewLines == 0 {
		delShift = 1
	}

	end, err := hunk.AddOrErr(r.Start, r.Lines)
	if err != nil {
		return 0, err
	}
	lines, err := hunk.SubOrErr(end, oldStart)
	if err != nil {
		return 0, err
	}
	if lines, err = hunk.SubOrErr(lines, h.OldLines); err != nil {
		return 0, err
	}
	if lines, err = hunk.SubOrErr(lines, addShift); err != nil {
		return 0, err
	}
	return hunk.AddOrErr(lines, delShift)
}

func (p *PathRanges) dependOnFileCreation(commitID hunk.CommitID) error {
	for _, r := range p.ranges {
		if r.ChangeKind == hunk.Addition {
			return p.trackDependency(commitID, r.CommitID)
		}
	}
	return nil
}

func (p *PathRanges) trackDependency(commitID hunk.CommitID, parents ...hunk.CommitID) error {
	for _, parent := range parents {
		if parent == commitID {
			return fmt.Errorf("commit %s cannot depend on itself", commitID)
		}
		if p.dependencies == nil {
			p.dependencies = make(map[hunk.CommitID]map[hunk.CommitID]struct{})
		}
		set := p.dependencies[commitID]
		if set == nil {
			set = make(map[hunk.CommitID]struct{})
			p.dependencies[commitID] = set
		}
		set[parent] = struct{}{}
	}
	return nil
}

// shiftFrom moves every range from index on by shift lines.
func (p *PathRanges) shiftFrom(index int, shift int32) error {
	p.lineShift += shift
	for i := index; i < len(p.ranges); i++ {
		start, err := hunk.AddSigned(p.ranges[i].Start, shift)
		if err != nil {
			return fmt.Errorf("shifting range %s: %w", p.ranges[i], err)
		}
		p.ranges[i].Start = start
	}
	return nil
}

// shiftedOldStart maps an old_start of the commit being added into the
// coordinates of the ranges, clamping at zero.
func (p *PathRanges) shiftedOldStart(oldStart uint32) uint32 {
	shifted, err := hunk.AddSigned(oldStart, p.lineShift)
	if err != nil {
		return 0
	}
	return shifted
}

// splice replaces p.ranges[start:end] with replacement and returns the index
// after the replacement's interest-th element and the index after the whole
// replacement.
func (p *PathRanges) splice(start, end int, replacement []hunk.Range, interest int) (int, int) {
	out := make([]hunk.Range, 0, len(p.ranges)-(end-start)+len(replacement))
	out = append(out, p.ranges[:start]...)
	afterInterest := start
	for i, r := range replacement {
		out = append(out, r)
		if i == interest {
			afterInterest = len(out)
		}
	}
	if end < len(p.ranges) {
		out = append(out, p.ranges[end:]...)
	}
	p.ranges = out
	return afterInterest, start + len(replacement)
}

func newRange(kind hunk.ChangeKind, stackID hunk.StackID, commitID hunk.CommitID, h hunk.Header, net int32) hunk.Range {
	return hunk.Range{
		ChangeKind: kind,
		StackID:    stackID,
		CommitID:   commitID,
		Start:      h.NewStart,
		Lines:      h.NewLines,
		LineShift:  net,
	}
}
