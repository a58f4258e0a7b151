// Package types defines small value types shared by the guest memory packages.
//
// Digests are rendered in base58, matching how commitments are displayed
// by the host tooling.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

// DigestSize is the size of a Digest in bytes.
const DigestSize = 32

// ErrInvalidDigest is returned when a digest has invalid length.
var ErrInvalidDigest = errors.New("invalid digest: must be 32 bytes")

// Digest is a 32-byte blake3 commitment.
type Digest [DigestSize]byte

// ComputeDigest computes the blake3 digest of data.
func ComputeDigest(data []byte) Digest {
	return blake3.Sum256(data)
}

// DigestFromBase58 parses a base58-encoded digest.
func DigestFromBase58(s string) (Digest, error) {
	var d Digest
	data, err := base58.Decode(s)
	if err != nil {
		return d, fmt.Errorf("base58 decode: %w", err)
	}
	if len(data) != DigestSize {
		return d, ErrInvalidDigest
	}
	copy(d[:], data)
	return d, nil
}

// String returns the base58-encoded representation.
func (d Digest) String() string {
	return base58.Encode(d[:])
}

// Hex returns the hex-encoded representation.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// IsZero returns true if the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := DigestFromBase58(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
