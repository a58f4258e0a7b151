package types

import "fmt"

// Range is a half-open guest address range [Start, Start+Size).
type Range struct {
	Start uint64
	Size  uint64
}

// End returns the first address past the range. The second result is false
// if Start+Size overflows.
func (r Range) End() (uint64, bool) {
	end := r.Start + r.Size
	return end, end >= r.Start
}

// Contains reports whether addr lies inside the range.
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr-r.Start < r.Size
}

// Overlaps reports whether two ranges share at least one address.
// Empty ranges overlap nothing.
func (r Range) Overlaps(o Range) bool {
	if r.Size == 0 || o.Size == 0 {
		return false
	}
	return r.Contains(o.Start) || o.Contains(r.Start)
}

// Within reports whether r lies entirely inside outer.
func (r Range) Within(outer Range) bool {
	end, ok := r.End()
	if !ok {
		return false
	}
	outerEnd, ok := outer.End()
	if !ok {
		return false
	}
	return r.Start >= outer.Start && end <= outerEnd
}

func (r Range) String() string {
	end, _ := r.End()
	return fmt.Sprintf("[0x%x, 0x%x)", r.Start, end)
}
