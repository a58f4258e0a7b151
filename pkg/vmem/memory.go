// Package vmem models the guest address space as a set of mapped regions.
//
// Guest code never holds raw pointers: every access goes through Translate,
// which checks address arithmetic, region bounds and write permission before
// handing out a slice of the backing memory.
package vmem

import (
	"errors"
	"fmt"
	"sort"
)

// Errors.
var (
	ErrInvalidMemoryAccess = errors.New("invalid memory access")
	ErrInvalidRegion       = errors.New("invalid region")
	ErrImageMismatch       = errors.New("memory image does not match region table")
)

// Memory is the guest view of the address space.
type Memory interface {
	// Translate converts a guest address range to a slice of backing memory.
	Translate(addr uint64, size uint64, write bool) ([]byte, error)
}

// Region is one mapped area of the address space.
type Region struct {
	Name     string
	Base     uint64
	Writable bool
	data     []byte
}

// Size returns the region length in bytes.
func (r *Region) Size() uint64 {
	return uint64(len(r.data))
}

// Bytes returns the backing memory of the region.
func (r *Region) Bytes() []byte {
	return r.data
}

func (r *Region) contains(addr uint64) bool {
	return addr >= r.Base && addr-r.Base < uint64(len(r.data))
}

// Space is a region-mapped address space. It is not safe for concurrent use.
type Space struct {
	regions []*Region // sorted by Base
}

// NewSpace creates an empty address space.
func NewSpace() *Space {
	return &Space{}
}

// Map adds a zero-filled region of size bytes at base.
func (s *Space) Map(name string, base, size uint64, writable bool) (*Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: %s has zero size", ErrInvalidRegion, name)
	}
	end := base + size
	if end < base {
		return nil, fmt.Errorf("%w: %s at 0x%x (size %d) overflows", ErrInvalidRegion, name, base, size)
	}
	for _, r := range s.regions {
		if base < r.Base+r.Size() && r.Base < end {
			return nil, fmt.Errorf("%w: %s at 0x%x overlaps %s at 0x%x", ErrInvalidRegion, name, base, r.Name, r.Base)
		}
	}

	region := &Region{
		Name:     name,
		Base:     base,
		Writable: writable,
		data:     make([]byte, size),
	}
	s.regions = append(s.regions, region)
	sort.Slice(s.regions, func(i, j int) bool {
		return s.regions[i].Base < s.regions[j].Base
	})
	return region, nil
}

// Regions returns the mapped regions in address order.
func (s *Space) Regions() []*Region {
	out := make([]*Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Region returns the region with the given name.
func (s *Space) Region(name string) (*Region, bool) {
	for _, r := range s.regions {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

func (s *Space) find(addr uint64) *Region {
	i := sort.Search(len(s.regions), func(i int) bool {
		return s.regions[i].Base > addr
	})
	if i == 0 {
		return nil
	}
	if r := s.regions[i-1]; r.contains(addr) {
		return r
	}
	return nil
}

// Translate converts a guest address range to a memory slice.
func (s *Space) Translate(addr uint64, size uint64, write bool) ([]byte, error) {
	return s.translate(addr, size, write, true)
}

func (s *Space) translate(addr, size uint64, write, enforce bool) ([]byte, error) {
	// Check for integer overflow in address calculation
	if size > 0 && addr > ^uint64(0)-size {
		return nil, fmt.Errorf("%w: address overflow at 0x%x (size %d)", ErrInvalidMemoryAccess, addr, size)
	}

	r := s.find(addr)
	if r == nil {
		return nil, fmt.Errorf("%w: unmapped region at 0x%x", ErrInvalidMemoryAccess, addr)
	}
	if write && enforce && !r.Writable {
		return nil, fmt.Errorf("%w: write to read-only %s segment at 0x%x", ErrInvalidMemoryAccess, r.Name, addr)
	}

	lo := addr - r.Base
	if lo+size > r.Size() {
		return nil, fmt.Errorf("%w: access beyond %s segment at 0x%x (size %d, max %d)", ErrInvalidMemoryAccess, r.Name, addr, size, r.Size())
	}
	return r.data[lo : lo+size], nil
}

// Load copies data into memory at addr, ignoring write protection. The host
// uses it to populate read-only segments before the guest starts.
func (s *Space) Load(addr uint64, data []byte) error {
	mem, err := s.translate(addr, uint64(len(data)), true, false)
	if err != nil {
		return err
	}
	copy(mem, data)
	return nil
}
