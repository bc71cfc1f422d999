package domain

import (
	"fmt"
	"strings"
)

// MergeStyle decides what happens when an incoming record meets an existing one.
type MergeStyle int

const (
	KeepNew MergeStyle = iota
	KeepOld
	KeepBoth
	KeepOnlyNew
)

func (s MergeStyle) String() string {
	switch s {
	case KeepOld:
		return "keep-old"
	case KeepBoth:
		return "keep-both"
	case KeepOnlyNew:
		return "keep-only-new"
	default:
		return "keep-new"
	}
}

func ParseMergeStyle(raw string) (MergeStyle, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "keep-new", "keepnew", "new":
		return KeepNew, nil
	case "keep-old", "keepold", "old":
		return KeepOld, nil
	case "keep-both", "keepboth", "both":
		return KeepBoth, nil
	case "keep-only-new", "keeponlynew", "only-new":
		return KeepOnlyNew, nil
	}
	return KeepNew, fmt.Errorf("%w: %q", ErrInvalidMergeStyle, raw)
}

func (s MergeStyle) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *MergeStyle) UnmarshalText(text []byte) error {
	v, err := ParseMergeStyle(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
