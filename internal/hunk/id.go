package hunk

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// CommitID is a SHA-1 object id held by value.
type CommitID [20]byte

// ParseCommitID parses a full 40 character hex object id.
func ParseCommitID(s string) (CommitID, error) {
	var id CommitID
	if len(s) != hex.EncodedLen(len(id)) {
		return id, fmt.Errorf("invalid commit id %q: want %d hex characters", s, hex.EncodedLen(len(id)))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("invalid commit id %q: %w", s, err)
	}
	return id, nil
}

// MustCommitID is ParseCommitID for constants and tests.
func MustCommitID(s string) CommitID {
	id, err := ParseCommitID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (c CommitID) String() string {
	return hex.EncodeToString(c[:])
}

// Short returns the first 8 hex characters.
func (c CommitID) Short() string {
	return c.String()[:8]
}

func (c CommitID) IsZero() bool {
	return c == CommitID{}
}

func (c CommitID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CommitID) UnmarshalText(data []byte) error {
	id, err := ParseCommitID(string(data))
	if err != nil {
		return err
	}
	*c = id
	return nil
}

// StackID identifies one stack of the workspace.
type StackID = uuid.UUID

// NewStackID returns a random stack id.
func NewStackID() StackID {
	return uuid.New()
}

// Lock is a dependency of an uncommitted hunk on a commit of a stack.
type Lock struct {
	StackID  StackID  `json:"stackId"`
	CommitID CommitID `json:"commitId"`
}

func (l Lock) String() string {
	return fmt.Sprintf("%s@%s", l.StackID, l.CommitID.Short())
}
