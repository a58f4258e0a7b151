package vmem

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// imageMagic prefixes every memory image.
var imageMagic = [8]byte{'N', 'X', 'M', 'E', 'M', 'I', 'M', '1'}

// regionHeader is the fixed part of a region record in an image.
type regionHeader struct {
	Base     uint64
	Size     uint64
	Writable uint8
	NameLen  uint16
}

// Snapshot writes a zstd-compressed image of every mapped region to w.
func (s *Space) Snapshot(w io.Writer) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}

	bw := bufio.NewWriter(enc)
	if err := s.writeImage(bw); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func (s *Space) writeImage(w io.Writer) error {
	if _, err := w.Write(imageMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.regions))); err != nil {
		return err
	}
	for _, r := range s.regions {
		hdr := regionHeader{
			Base:    r.Base,
			Size:    r.Size(),
			NameLen: uint16(len(r.Name)),
		}
		if r.Writable {
			hdr.Writable = 1
		}
		if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
			return err
		}
		if _, err := io.WriteString(w, r.Name); err != nil {
			return err
		}
		if _, err := w.Write(r.data); err != nil {
			return err
		}
	}
	return nil
}

// Restore reads an image produced by Snapshot and copies its contents into
// the mapped regions. The image must describe exactly the same regions.
func (s *Space) Restore(r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return fmt.Errorf("read image magic: %w", err)
	}
	if magic != imageMagic {
		return fmt.Errorf("%w: bad magic %q", ErrImageMismatch, magic[:])
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("read region count: %w", err)
	}
	if int(count) != len(s.regions) {
		return fmt.Errorf("%w: image has %d regions, space has %d", ErrImageMismatch, count, len(s.regions))
	}

	for _, region := range s.regions {
		var hdr regionHeader
		if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
			return fmt.Errorf("read region header: %w", err)
		}
		name := make([]byte, hdr.NameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return fmt.Errorf("read region name: %w", err)
		}
		if string(name) != region.Name || hdr.Base != region.Base || hdr.Size != region.Size() {
			return fmt.Errorf("%w: image region %s at 0x%x (size %d), want %s at 0x%x (size %d)",
				ErrImageMismatch, name, hdr.Base, hdr.Size, region.Name, region.Base, region.Size())
		}
		if _, err := io.ReadFull(br, region.data); err != nil {
			return fmt.Errorf("read %s contents: %w", region.Name, err)
		}
	}
	return nil
}
