// Package layout derives the guest I/O memory layout from the build
// configuration.
//
// The I/O area sits directly below RAMStart:
//
//	InputStart                OutputStart          logging base        RAMStart
//	|-------- input ---------|------ output ------|------ log ------|
//
// The computation is pure: the same configuration always yields the same
// addresses, which is what lets the host, the guest and the verifier agree.
package layout

import (
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/gustidama/nexus-zkvm/internal/types"
	"github.com/gustidama/nexus-zkvm/pkg/buildcfg"
)

// RAMStart is the first address of guest RAM. Program text, static data,
// heap and stack live at or above it.
const RAMStart = uint64(0x8000_0000)

// Errors.
var (
	ErrOverflow       = errors.New("memory layout overflow")
	ErrOverlap        = errors.New("segments overlap")
	ErrOutOfBounds    = errors.New("segment outside reserved I/O area")
	ErrUnknownSegment = errors.New("unknown segment")
	ErrInconsistent   = errors.New("inconsistent memory layout")
)

// Reserved is the address area available to the I/O segments.
var Reserved = types.Range{Start: 0, Size: RAMStart}

// Layout holds the segment addresses of one build.
type Layout struct {
	InputStart       uint64
	InputSize        uint64
	OutputStart      uint64
	OutputAndLogSize uint64
	MaxOutputSize    uint64
	MaxLogSize       uint64
}

// Compute derives the layout for cfg.
func Compute(cfg buildcfg.Config) (Layout, error) {
	input := uint64(cfg.MaxInputSize)
	output := uint64(cfg.MaxOutputSize)
	logSize := uint64(cfg.MaxLogSize)

	outputAndLog, ok := addChecked(output, logSize)
	if !ok {
		return Layout{}, fmt.Errorf("%w: output %d + log %d", ErrOverflow, output, logSize)
	}
	io, ok := addChecked(input, outputAndLog)
	if !ok {
		return Layout{}, fmt.Errorf("%w: input %d + output/log %d", ErrOverflow, input, outputAndLog)
	}
	if io > RAMStart {
		return Layout{}, fmt.Errorf("%w: I/O area of %d bytes does not fit below 0x%x", ErrOverflow, io, RAMStart)
	}

	inputStart := RAMStart - io
	return Layout{
		InputStart:       inputStart,
		InputSize:        input,
		OutputStart:      inputStart + input,
		OutputAndLogSize: outputAndLog,
		MaxOutputSize:    output,
		MaxLogSize:       logSize,
	}, nil
}

// LoggingStart returns the base address of the logging segment.
func (l Layout) LoggingStart() uint64 {
	return l.OutputStart + l.MaxOutputSize
}

// Range returns the address range of a segment.
func (l Layout) Range(s Segment) (types.Range, error) {
	switch s {
	case PublicInput:
		return types.Range{Start: l.InputStart, Size: l.InputSize}, nil
	case PublicOutput:
		return types.Range{Start: l.OutputStart, Size: l.MaxOutputSize}, nil
	case PublicLogging:
		return types.Range{Start: l.LoggingStart(), Size: l.MaxLogSize}, nil
	default:
		return types.Range{}, fmt.Errorf("%w: %d", ErrUnknownSegment, s)
	}
}

// Descriptor pairs a segment with its address range.
type Descriptor struct {
	Segment Segment
	types.Range
}

// Segments returns the three segment descriptors in address order.
func (l Layout) Segments() []Descriptor {
	out := make([]Descriptor, 0, len(AllSegments))
	for _, s := range AllSegments {
		r, _ := l.Range(s)
		out = append(out, Descriptor{Segment: s, Range: r})
	}
	return out
}

// Validate checks that the segments are pairwise disjoint and lie inside
// the reserved I/O area.
func (l Layout) Validate() error {
	segs := l.Segments()
	for i, a := range segs {
		if !a.Within(Reserved) {
			return fmt.Errorf("%w: %s %s", ErrOutOfBounds, a.Segment, a.Range)
		}
		for _, b := range segs[i+1:] {
			if a.Overlaps(b.Range) {
				return fmt.Errorf("%w: %s %s and %s %s", ErrOverlap, a.Segment, a.Range, b.Segment, b.Range)
			}
		}
	}
	if l.OutputAndLogSize != l.MaxOutputSize+l.MaxLogSize {
		return fmt.Errorf("%w: output/log size %d != %d + %d", ErrInconsistent, l.OutputAndLogSize, l.MaxOutputSize, l.MaxLogSize)
	}
	return nil
}

// Fingerprint returns a digest committing to every address of the layout.
func (l Layout) Fingerprint() types.Digest {
	data, err := borsh.Serialize(l)
	if err != nil {
		// Layout is a flat struct of integers.
		panic(err)
	}
	return types.ComputeDigest(data)
}

func (l Layout) String() string {
	return fmt.Sprintf("input=%s output=%s logging=%s",
		types.Range{Start: l.InputStart, Size: l.InputSize},
		types.Range{Start: l.OutputStart, Size: l.MaxOutputSize},
		types.Range{Start: l.LoggingStart(), Size: l.MaxLogSize})
}

func addChecked(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}
