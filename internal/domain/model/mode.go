package model

import (
	"fmt"
	"strings"
)

// SourceMode selects where quotes come from.
type SourceMode int

const (
	PlaceholderMode SourceMode = iota
	UpstreamMode
)

func (m SourceMode) String() string {
	switch m {
	case PlaceholderMode:
		return "placeholder"
	case UpstreamMode:
		return "upstream"
	default:
		return "unknown"
	}
}

func ParseSourceMode(s string) (SourceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "placeholder", "test":
		return PlaceholderMode, nil
	case "upstream", "live":
		return UpstreamMode, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
