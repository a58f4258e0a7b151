package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/gustidama/nexus-zkvm/pkg/buildcfg"
)

func TestComputeEndToEnd(t *testing.T) {
	l, err := Compute(buildcfg.Config{MaxInputSize: 64, MaxOutputSize: 32, MaxLogSize: 16})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	x := l.InputStart
	if x != RAMStart-112 {
		t.Errorf("InputStart = 0x%x, want 0x%x", x, RAMStart-112)
	}
	if l.OutputStart != x+64 {
		t.Errorf("OutputStart = 0x%x, want 0x%x", l.OutputStart, x+64)
	}
	if l.OutputAndLogSize != 48 {
		t.Errorf("OutputAndLogSize = %d, want 48", l.OutputAndLogSize)
	}

	r, err := l.Range(PublicLogging)
	if err != nil {
		t.Fatalf("Range(PublicLogging) error = %v", err)
	}
	if r.Start != x+96 || r.Size != 16 {
		t.Errorf("Range(PublicLogging) = %s, want base 0x%x len 16", r, x+96)
	}
}

func TestComputeSegments(t *testing.T) {
	l, err := Compute(buildcfg.Config{MaxInputSize: 100, MaxOutputSize: 50, MaxLogSize: 25})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	tests := []struct {
		seg   Segment
		start uint64
		size  uint64
	}{
		{PublicInput, l.InputStart, 100},
		{PublicOutput, l.InputStart + 100, 50},
		{PublicLogging, l.InputStart + 150, 25},
	}

	for _, tt := range tests {
		t.Run(tt.seg.String(), func(t *testing.T) {
			r, err := l.Range(tt.seg)
			if err != nil {
				t.Fatalf("Range() error = %v", err)
			}
			if r.Start != tt.start || r.Size != tt.size {
				t.Errorf("Range() = %s/%d, want 0x%x/%d", r, r.Size, tt.start, tt.size)
			}
		})
	}

	if _, err := l.Range(Segment(9)); !errors.Is(err, ErrUnknownSegment) {
		t.Errorf("Range(9) error = %v, want ErrUnknownSegment", err)
	}
}

func TestComputeDisjoint(t *testing.T) {
	sizes := []uint32{0, 1, 2, 7, 64, 4096, 1 << 20, 1 << 28}

	for _, in := range sizes {
		for _, out := range sizes {
			for _, lg := range sizes {
				cfg := buildcfg.Config{MaxInputSize: in, MaxOutputSize: out, MaxLogSize: lg}
				l, err := Compute(cfg)
				if err != nil {
					t.Fatalf("Compute(%s) error = %v", cfg, err)
				}
				if err := l.Validate(); err != nil {
					t.Errorf("Validate(%s) error = %v", cfg, err)
				}
				if end := l.LoggingStart() + l.MaxLogSize; end != RAMStart {
					t.Errorf("Compute(%s) I/O end = 0x%x, want 0x%x", cfg, end, RAMStart)
				}
			}
		}
	}
}

func TestComputeOverflow(t *testing.T) {
	cfg := buildcfg.Config{MaxInputSize: math.MaxUint32, MaxOutputSize: math.MaxUint32, MaxLogSize: 1}
	if _, err := Compute(cfg); !errors.Is(err, ErrOverflow) {
		t.Errorf("Compute() error = %v, want ErrOverflow", err)
	}

	// Exactly fills the reserved area.
	cfg = buildcfg.Config{MaxInputSize: 1 << 30, MaxOutputSize: 1 << 30, MaxLogSize: 0}
	l, err := Compute(cfg)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if l.InputStart != 0 {
		t.Errorf("InputStart = 0x%x, want 0", l.InputStart)
	}
}

func TestComputeDeterministic(t *testing.T) {
	cfg := buildcfg.Config{MaxInputSize: 4096, MaxOutputSize: 1024, MaxLogSize: 512}
	a, _ := Compute(cfg)
	b, _ := Compute(cfg)
	if a != b {
		t.Errorf("Compute() = %+v and %+v", a, b)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Fingerprint() differs for equal layouts")
	}

	cfg.MaxLogSize++
	c, _ := Compute(cfg)
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("Fingerprint() equal for different layouts")
	}
}

func TestValidate(t *testing.T) {
	l, _ := Compute(buildcfg.Config{MaxInputSize: 16, MaxOutputSize: 16, MaxLogSize: 16})

	overlapping := l
	overlapping.OutputStart -= 1
	if err := overlapping.Validate(); !errors.Is(err, ErrOverlap) {
		t.Errorf("Validate() error = %v, want ErrOverlap", err)
	}

	outside := l
	outside.InputStart = RAMStart
	if err := outside.Validate(); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Validate() error = %v, want ErrOutOfBounds", err)
	}

	skewed := l
	skewed.OutputAndLogSize = 1
	if err := skewed.Validate(); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Validate() error = %v, want ErrInconsistent", err)
	}
}

func TestParseSegment(t *testing.T) {
	for _, s := range AllSegments {
		got, err := ParseSegment(s.String())
		if err != nil {
			t.Fatalf("ParseSegment(%q) error = %v", s, err)
		}
		if got != s {
			t.Errorf("ParseSegment(%q) = %v, want %v", s, got, s)
		}
	}
	if _, err := ParseSegment("stack"); !errors.Is(err, ErrUnknownSegment) {
		t.Errorf("ParseSegment(stack) error = %v, want ErrUnknownSegment", err)
	}
	if PublicInput.Writable() || !PublicOutput.Writable() || !PublicLogging.Writable() {
		t.Error("Writable() mismatch")
	}
}
