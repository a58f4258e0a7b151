// Package segment implements the offset-tracked accessors bound to the I/O
// segments of a guest program.
//
// Each accessor owns one cursor. The cursor starts at zero, only moves
// forward and is never reset. Exhaustion is reported through ordinary
// return values. A translation failure means the segment was never mapped,
// which is fatal and panics.
package segment

import (
	"fmt"

	"github.com/gustidama/nexus-zkvm/internal/types"
	"github.com/gustidama/nexus-zkvm/pkg/vmem"
)

type cursor struct {
	mem    vmem.Memory
	base   uint64
	max    uint64
	offset uint64
}

// Offset returns the current cursor position.
func (c *cursor) Offset() uint64 { return c.offset }

// Len returns the segment length.
func (c *cursor) Len() uint64 { return c.max }

// Remaining returns the number of bytes past the cursor.
func (c *cursor) Remaining() uint64 {
	if c.offset >= c.max {
		return 0
	}
	return c.max - c.offset
}

func (c *cursor) translate(size uint64, write bool) []byte {
	mem, err := c.mem.Translate(c.base+c.offset, size, write)
	if err != nil {
		panic(fmt.Errorf("segment at 0x%x (offset %d): %w", c.base, c.offset, err))
	}
	return mem
}

// Reader reads the public input segment.
type Reader struct {
	cursor
}

// NewReader binds a reader to the segment r of mem.
func NewReader(mem vmem.Memory, r types.Range) *Reader {
	return &Reader{cursor{mem: mem, base: r.Start, max: r.Size}}
}

// Read returns the next byte, or every remaining byte when exhaust is set.
// It returns false once the segment is exhausted; an exhausting read always
// leaves the segment exhausted.
func (r *Reader) Read(exhaust bool) ([]byte, bool) {
	if r.offset >= r.max {
		return nil, false
	}

	n := uint64(1)
	if exhaust {
		n = r.max - r.offset
	}

	out := make([]byte, n)
	copy(out, r.translate(n, false))
	r.offset += n
	return out, true
}

// Writer writes the public output or logging segment.
type Writer struct {
	cursor
}

// NewWriter binds a writer to the segment r of mem.
func NewWriter(mem vmem.Memory, r types.Range) *Writer {
	return &Writer{cursor{mem: mem, base: r.Start, max: r.Size}}
}

// Write copies p into the segment and advances the cursor. A write is
// accepted only if offset+len(p) < Len(): the last byte of the segment is
// never written. Rejected writes leave the segment untouched.
func (w *Writer) Write(p []byte) bool {
	n := uint64(len(p))
	end := w.offset + n
	if end < w.offset || end >= w.max {
		return false
	}
	if n == 0 {
		return true
	}

	copy(w.translate(n, true), p)
	w.offset = end
	return true
}
