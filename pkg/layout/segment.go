package layout

import (
	"fmt"
	"strings"
)

// Segment identifies one of the three I/O segments.
type Segment uint8

// Segments.
const (
	PublicInput Segment = iota
	PublicOutput
	PublicLogging
)

// AllSegments lists every segment in address order.
var AllSegments = []Segment{PublicInput, PublicOutput, PublicLogging}

// Writable reports whether guest code may write the segment.
func (s Segment) Writable() bool {
	return s == PublicOutput || s == PublicLogging
}

func (s Segment) String() string {
	switch s {
	case PublicInput:
		return "input"
	case PublicOutput:
		return "output"
	case PublicLogging:
		return "logging"
	default:
		return fmt.Sprintf("segment(%d)", uint8(s))
	}
}

// ParseSegment parses a segment name as printed by String.
func ParseSegment(name string) (Segment, error) {
	for _, s := range AllSegments {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSegment, name)
}
