package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/gustidama/nexus-zkvm/internal/types"
	"github.com/gustidama/nexus-zkvm/pkg/buildcfg"
	"github.com/gustidama/nexus-zkvm/pkg/guest"
	"github.com/gustidama/nexus-zkvm/pkg/heap"
	"github.com/gustidama/nexus-zkvm/pkg/layout"
	"github.com/gustidama/nexus-zkvm/pkg/vmem"
)

func runEncode(args []string) error {
	fs := newFlagSet("encode")
	input := fs.Uint("input", 4096, "Maximum public input size in bytes")
	output := fs.Uint("output", 4096, "Maximum public output size in bytes")
	logSize := fs.Uint("log", 1024, "Maximum logging segment size in bytes")
	out := fs.String("o", "", "Artifact path (required)")
	fs.Parse(args)

	if *out == "" {
		return errors.New("-o is required")
	}

	cfg, err := configFromFlags(*input, *output, *logSize)
	if err != nil {
		return err
	}
	if _, err := layout.Compute(cfg); err != nil {
		return err
	}
	if err := buildcfg.WriteFile(*out, cfg); err != nil {
		return err
	}

	log.Printf("Wrote %s (%s, fingerprint %s)", *out, cfg, buildcfg.Fingerprint(cfg))
	fmt.Printf("%s=%q\n", buildcfg.MarkerKey, *out)
	return nil
}

// configFromFlags builds a Config from the encode size flags. Sizes are
// u32 in the artifact, so wider values are rejected instead of truncated.
func configFromFlags(input, output, logSize uint) (buildcfg.Config, error) {
	var sizes [3]uint32
	for i, f := range []struct {
		name string
		v    uint
	}{{"input", input}, {"output", output}, {"log", logSize}} {
		if uint64(f.v) > math.MaxUint32 {
			return buildcfg.Config{}, fmt.Errorf("-%s %d exceeds %d", f.name, f.v, uint32(math.MaxUint32))
		}
		sizes[i] = uint32(f.v)
	}
	return buildcfg.Config{
		MaxInputSize:  sizes[0],
		MaxOutputSize: sizes[1],
		MaxLogSize:    sizes[2],
	}, nil
}

func runLayout(args []string) error {
	fs := newFlagSet("layout")
	cfgPath := fs.String("config", "", "Config artifact path")
	expect := fs.String("expect", "", "Expected layout fingerprint (base58)")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	l, err := layout.Compute(cfg)
	if err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return err
	}

	fmt.Printf("config:      %s\n", cfg)
	for _, d := range l.Segments() {
		fmt.Printf("%-12s %s  len %d\n", d.Segment.String()+":", d.Range, d.Size)
	}
	fp := l.Fingerprint()
	fmt.Printf("fingerprint: %s\n", fp)
	fmt.Printf("             %s\n", fp.Hex())
	return checkFingerprint(fp, *expect)
}

// checkFingerprint compares fp with a base58 digest given on the command
// line. An empty expectation always matches.
func checkFingerprint(fp types.Digest, expect string) error {
	if expect == "" {
		return nil
	}
	want, err := types.DigestFromBase58(expect)
	if err != nil {
		return fmt.Errorf("-expect: %w", err)
	}
	if fp != want {
		return fmt.Errorf("layout fingerprint %s, expected %s", fp, want)
	}
	return nil
}

func runGuest(args []string) error {
	fs := newFlagSet("run")
	cfgPath := fs.String("config", "", "Config artifact path")
	inPath := fs.String("in", "", "File loaded into the input segment")
	imagePath := fs.String("image", "memory.img.zst", "Memory image output path")
	staticSize := fs.Uint64("static-size", 0x1_0000, "Size of program text and static data")
	stackSize := fs.Uint64("stack-size", 0x10_0000, "Distance from static data end to stack top")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	l, err := layout.Compute(cfg)
	if err != nil {
		return err
	}

	space, err := guest.NewSpace(l)
	if err != nil {
		return err
	}

	if *inPath != "" {
		data, err := os.ReadFile(*inPath)
		if err != nil {
			return err
		}
		if uint64(len(data)) > l.InputSize {
			return fmt.Errorf("input is %d bytes, segment holds %d", len(data), l.InputSize)
		}
		if len(data) > 0 {
			if err := space.Load(l.InputStart, data); err != nil {
				return err
			}
		}
		log.Printf("Loaded %d input bytes at 0x%x", len(data), l.InputStart)
	}

	end := layout.RAMStart + *staticSize
	platform := heap.StaticPlatform{End: end, SP: end + *stackSize}

	rt, err := guest.New(cfg, space, platform)
	if err != nil {
		return err
	}
	if err := runEcho(rt); err != nil {
		return err
	}

	st := rt.Stats()
	log.Printf("Guest finished: input=%d output=%d logging=%d heap=0x%x",
		st.InputOffset, st.OutputOffset, st.LoggingOffset, st.HeapPos)

	f, err := os.Create(*imagePath)
	if err != nil {
		return err
	}
	if err := space.Snapshot(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("Wrote memory image %s (layout %s)", *imagePath, l.Fingerprint())
	return nil
}

func runInspect(args []string) error {
	fs := newFlagSet("inspect")
	cfgPath := fs.String("config", "", "Config artifact path")
	imagePath := fs.String("image", "memory.img.zst", "Memory image path")
	segNames := fs.String("segment", "output,logging", "Comma-separated segments to print")
	fs.Parse(args)

	segs, err := parseSegments(*segNames)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	l, err := layout.Compute(cfg)
	if err != nil {
		return err
	}
	space, err := guest.NewSpace(l)
	if err != nil {
		return err
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := space.Restore(f); err != nil {
		return err
	}

	for _, seg := range segs {
		printSegment(space, seg)
	}
	return nil
}

func parseSegments(list string) ([]layout.Segment, error) {
	var segs []layout.Segment
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		seg, err := layout.ParseSegment(name)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return nil, errors.New("-segment names no segment")
	}
	return segs, nil
}

func printSegment(space *vmem.Space, seg layout.Segment) {
	region, ok := space.Region(seg.String())
	if !ok {
		fmt.Printf("%s: (empty)\n", seg)
		return
	}
	data := region.Bytes()
	n := len(data)
	for n > 0 && data[n-1] == 0 {
		n--
	}
	fmt.Printf("%s @ 0x%x (%d of %d bytes used):\n%q\n", seg, region.Base, n, len(data), data[:n])
}
