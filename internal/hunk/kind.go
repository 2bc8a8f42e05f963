package hunk

import "fmt"

// ChangeKind classifies how a path changed in a commit.
type ChangeKind int

const (
	Addition ChangeKind = iota
	Deletion
	Modification
	Rename
)

var kindNames = [...]string{
	Addition:     "addition",
	Deletion:     "deletion",
	Modification: "modification",
	Rename:       "rename",
}

func (k ChangeKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseChangeKind accepts the lowercase names produced by String.
func ParseChangeKind(s string) (ChangeKind, error) {
	for i, name := range kindNames {
		if name == s {
			return ChangeKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown change kind %q", s)
}

func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ChangeKind) UnmarshalText(data []byte) error {
	parsed, err := ParseChangeKind(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
