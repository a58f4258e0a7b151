// Package guest wires the memory layer of one guest program together.
//
// A Runtime owns the three segment accessors and the heap allocator. There
// is exactly one Runtime per guest program and it is used from a single
// goroutine; nothing in it is locked.
//
// Typical program start:
//
//	space, err := guest.NewSpace(l)
//	...
//	rt := guest.Boot(space, platform)
//	input, _ := rt.ReadInput(true)
//	rt.WriteOutput(process(input))
package guest

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gustidama/nexus-zkvm/internal/types"
	"github.com/gustidama/nexus-zkvm/pkg/buildcfg"
	"github.com/gustidama/nexus-zkvm/pkg/heap"
	"github.com/gustidama/nexus-zkvm/pkg/layout"
	"github.com/gustidama/nexus-zkvm/pkg/segment"
	"github.com/gustidama/nexus-zkvm/pkg/vmem"
)

// Errors.
var (
	// ErrHeapInSegment is returned when the heap could grow into an I/O segment.
	ErrHeapInSegment = errors.New("heap overlaps an I/O segment")

	// ErrAlreadyBooted is the panic value of a second Boot call.
	ErrAlreadyBooted = errors.New("guest runtime already booted")
)

// Runtime is the memory context of a running guest program.
type Runtime struct {
	layout  layout.Layout
	input   *segment.Reader
	output  *segment.Writer
	logging *segment.Writer
	heap    *heap.Allocator
}

// New builds a Runtime for cfg over mem. The segments of the computed layout
// must already be mapped in mem (see NewSpace).
func New(cfg buildcfg.Config, mem vmem.Memory, p heap.Platform) (*Runtime, error) {
	l, err := layout.Compute(cfg)
	if err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	// The heap may grow anywhere between the end of static data and the
	// stack; none of that span may touch an I/O segment.
	heapStart, sp := p.EndOfStaticData(), p.StackPointer()
	span := types.Range{Start: heapStart}
	if sp > heapStart {
		span.Size = sp - heapStart
	}
	for _, d := range l.Segments() {
		if d.Contains(heapStart) || span.Overlaps(d.Range) {
			return nil, fmt.Errorf("%w: heap %s reaches %s %s", ErrHeapInSegment, span, d.Segment, d.Range)
		}
	}

	input, _ := l.Range(layout.PublicInput)
	output, _ := l.Range(layout.PublicOutput)
	logging, _ := l.Range(layout.PublicLogging)

	return &Runtime{
		layout:  l,
		input:   segment.NewReader(mem, input),
		output:  segment.NewWriter(mem, output),
		logging: segment.NewWriter(mem, logging),
		heap:    heap.New(p),
	}, nil
}

// NewSpace creates an address space with the segments of l mapped. The
// input segment is read-only to the guest. Empty segments are not mapped.
func NewSpace(l layout.Layout) (*vmem.Space, error) {
	s := vmem.NewSpace()
	for _, d := range l.Segments() {
		if d.Size == 0 {
			continue
		}
		if _, err := s.Map(d.Segment.String(), d.Start, d.Size, d.Segment.Writable()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

var booted atomic.Bool

// Boot is the program entry point: it resolves the build configuration from
// the environment and builds the process-wide Runtime. Failures abort the
// program. Boot panics if called more than once.
func Boot(mem vmem.Memory, p heap.Platform) *Runtime {
	if !booted.CompareAndSwap(false, true) {
		panic(ErrAlreadyBooted)
	}
	rt, err := New(buildcfg.MustResolve(), mem, p)
	if err != nil {
		panic(fmt.Errorf("boot guest runtime: %w", err))
	}
	return rt
}

// Layout returns the memory layout the runtime was built for.
func (rt *Runtime) Layout() layout.Layout {
	return rt.layout
}

// ReadInput reads one byte of public input, or all remaining input when
// exhaust is set. It returns false once the input is exhausted.
func (rt *Runtime) ReadInput(exhaust bool) ([]byte, bool) {
	return rt.input.Read(exhaust)
}

// WriteOutput appends p to the public output. It returns false, writing
// nothing, if p does not fit.
func (rt *Runtime) WriteOutput(p []byte) bool {
	return rt.output.Write(p)
}

// WriteLog appends p to the logging segment. It returns false, writing
// nothing, if p does not fit.
func (rt *Runtime) WriteLog(p []byte) bool {
	return rt.logging.Write(p)
}

// Alloc reserves heap memory. Running into the stack is fatal.
func (rt *Runtime) Alloc(size, align uint64) uint64 {
	return rt.heap.Alloc(size, align)
}

// Stats is a snapshot of the runtime cursors.
type Stats struct {
	InputOffset   uint64
	OutputOffset  uint64
	LoggingOffset uint64
	HeapPos       uint64
}

// Stats returns the current cursor positions.
func (rt *Runtime) Stats() Stats {
	return Stats{
		InputOffset:   rt.input.Offset(),
		OutputOffset:  rt.output.Offset(),
		LoggingOffset: rt.logging.Offset(),
		HeapPos:       rt.heap.Pos(),
	}
}
