// Package assign carries stack assignments of uncommitted hunks across
// recomputed worktree diffs.
package assign

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"

	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/lineset"
)

// Assignment ties one worktree hunk, or a whole file when Header is nil, to
// a stack. A nil StackID means unassigned.
type Assignment struct {
	ID              *uuid.UUID       `json:"id,omitempty"`
	Header          *hunk.Header     `json:"hunk,omitempty"`
	Path            string           `json:"path"`
	PathBytes       []byte           `json:"pathBytes"`
	StackID         *hunk.StackID    `json:"stackId"`
	Locks           []hunk.Lock      `json:"locks,omitempty"`
	LineNumsAdded   *lineset.LineSet `json:"lineNumsAdded,omitempty"`
	LineNumsRemoved *lineset.LineSet `json:"lineNumsRemoved,omitempty"`
}

func (a Assignment) String() string {
	stack := "unassigned"
	if a.StackID != nil {
		stack = a.StackID.String()
	}
	if a.Header == nil {
		return fmt.Sprintf("%s (whole file) -> %s", a.Path, stack)
	}
	return fmt.Sprintf("%s %s -> %s", a.Path, a.Header, stack)
}

// Same reports whether a and b describe the same hunk: equal path bytes and
// equal headers. Stack, id and locks are ignored.
func (a Assignment) Same(b Assignment) bool {
	return bytes.Equal(a.PathBytes, b.PathBytes) && headersEqual(a.Header, b.Header)
}

// Intersects reports whether a and b overlap: same path, and either equal
// headers or both sides of the headers overlapping.
func (a Assignment) Intersects(b Assignment) bool {
	if !bytes.Equal(a.PathBytes, b.PathBytes) {
		return false
	}
	if headersEqual(a.Header, b.Header) {
		return true
	}
	if a.Header == nil || b.Header == nil {
		return false
	}
	return a.Header.OldRange().Intersects(b.Header.OldRange()) &&
		a.Header.NewRange().Intersects(b.Header.NewRange())
}

func headersEqual(a, b *hunk.Header) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Request asks for a hunk to be assigned to a stack, or unassigned when
// StackID is nil. A nil Header addresses the whole file.
type Request struct {
	Header    *hunk.Header  `json:"hunk,omitempty"`
	PathBytes []byte        `json:"pathBytes"`
	StackID   *hunk.StackID `json:"stackId"`
}

// Matches reports whether the request addresses the hunk of a.
func (r Request) Matches(a Assignment) bool {
	return bytes.Equal(r.PathBytes, a.PathBytes) && headersEqual(r.Header, a.Header)
}

// RejectReason says why a Request was not honoured.
type RejectReason int

const (
	// Locked: the hunk depends on commits of another stack.
	Locked RejectReason = iota
	// NotFound: no live hunk matches the request.
	NotFound
	// StackNotApplied: the requested stack is not part of the workspace.
	StackNotApplied
)

var reasonNames = [...]string{"locked", "not-found", "stack-not-applied"}

func (r RejectReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("RejectReason(%d)", int(r))
}

func (r RejectReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Rejection is a Request that could not be honoured. Locks is set for
// Locked rejections.
type Rejection struct {
	Request Request      `json:"request"`
	Reason  RejectReason `json:"reason"`
	Locks   []hunk.Lock  `json:"locks,omitempty"`
}

// MultipleOverlapping decides the stack of a hunk that overlaps several
// previous assignments.
type MultipleOverlapping int

const (
	// SetMostLines takes the stack of the overlapping assignment with the
	// most new lines.
	SetMostLines MultipleOverlapping = iota
	// SetNone unassigns the hunk when the overlapping assignments disagree on
	// the stack.
	SetNone
)

func pathOf(b []byte) string {
	return string(bytes.ToValidUTF8(b, []byte("�")))
}
