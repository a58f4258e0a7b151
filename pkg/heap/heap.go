// Package heap implements the guest bump allocator.
//
// The heap starts right after the program's static data and grows upward
// towards the stack. Memory is never freed. An allocation that would come
// within MemoryGap bytes of the stack pointer is fatal.
package heap

import (
	"errors"
	"fmt"
)

// MemoryGap is the minimum distance kept between the heap and the stack.
const MemoryGap = uint64(0x1000)

// ErrOverflow is returned when heap address arithmetic overflows.
var ErrOverflow = errors.New("heap calculation has overflowed")

// Platform exposes the two machine facts the allocator depends on.
type Platform interface {
	// StackPointer returns the current stack pointer.
	StackPointer() uint64
	// EndOfStaticData returns the address just past the static data.
	EndOfStaticData() uint64
}

// StaticPlatform is a Platform with fixed values.
type StaticPlatform struct {
	End uint64
	SP  uint64
}

// StackPointer implements Platform.
func (p StaticPlatform) StackPointer() uint64 { return p.SP }

// EndOfStaticData implements Platform.
func (p StaticPlatform) EndOfStaticData() uint64 { return p.End }

// ClashError reports a heap that has grown into the stack guard area.
type ClashError struct {
	Heap  uint64
	Stack uint64
}

// Error implements the error interface.
func (e *ClashError) Error() string {
	return fmt.Sprintf("heap clashing with stack (heap: 0x%x, stack: 0x%x)", e.Heap, e.Stack)
}

// Allocator is a bump allocator. It is not safe for concurrent use; a guest
// program owns exactly one.
type Allocator struct {
	platform Platform
	pos      uint64 // next free address, 0 until first allocation
}

// New creates an allocator. Nothing is read from p until the first
// allocation.
func New(p Platform) *Allocator {
	return &Allocator{platform: p}
}

// Pos returns the next free heap address, or 0 if nothing was allocated yet.
func (a *Allocator) Pos() uint64 {
	return a.pos
}

// TryAlloc reserves size bytes aligned to align, which must be a power of
// two. On error the heap position is unchanged.
//
// A zero-size allocation only aligns the heap position. It returns the
// same address as the next allocation with the same or smaller alignment,
// so callers must not treat the result as a unique object.
func (a *Allocator) TryAlloc(size, align uint64) (uint64, error) {
	pos := a.pos
	if pos == 0 {
		pos = a.platform.EndOfStaticData()
	}

	if offset := pos & (align - 1); offset != 0 {
		next := pos + (align - offset)
		if next < pos {
			return 0, fmt.Errorf("%w: aligning 0x%x to %d", ErrOverflow, pos, align)
		}
		pos = next
	}

	ptr := pos
	pos += size
	if pos < ptr {
		return 0, fmt.Errorf("%w: 0x%x + %d", ErrOverflow, ptr, size)
	}

	sp := a.platform.StackPointer()
	gapCheck := pos + MemoryGap
	if gapCheck < pos {
		return 0, fmt.Errorf("%w: 0x%x + gap", ErrOverflow, pos)
	}
	if gapCheck > sp {
		return 0, &ClashError{Heap: pos, Stack: sp}
	}

	a.pos = pos
	return ptr, nil
}

// Alloc is like TryAlloc but treats every failure as fatal and panics.
func (a *Allocator) Alloc(size, align uint64) uint64 {
	ptr, err := a.TryAlloc(size, align)
	if err != nil {
		panic(err)
	}
	return ptr
}
