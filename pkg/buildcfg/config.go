// Package buildcfg resolves the build-time memory configuration of a guest
// program.
//
// The build tool writes a small binary artifact holding the I/O size limits
// and passes its location through an environment-supplied flag string:
//
//	NEXUS_ENCODED_BUILDFLAGS='... compile_config_dir="/path/to/config" ...'
//
// Resolution happens once, before any segment or heap operation. Every
// failure is a build error; there is no runtime fallback.
package buildcfg

import (
	"fmt"
	"io"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/gustidama/nexus-zkvm/internal/types"
)

// Channel constants.
const (
	// ChannelEnv is the environment variable carrying the encoded build flags.
	ChannelEnv = "NEXUS_ENCODED_BUILDFLAGS"

	// MarkerKey is the key under which the artifact path is embedded.
	MarkerKey = "compile_config_dir"

	// MaxEncodedSize bounds an encoded artifact: three u32 varints.
	MaxEncodedSize = 3 * maxVarintLen32
)

// A u32 varint spans at most five 7-bit groups.
const maxVarintLen32 = 5

// Config holds the I/O size limits of a guest program.
//
// On disk it is the postcard encoding of the tuple
// ((max_input_size, max_output_size), max_log_size): each field an unsigned
// LEB128 varint, with no framing and no trailing bytes.
type Config struct {
	MaxInputSize  uint32
	MaxOutputSize uint32
	MaxLogSize    uint32
}

func (c Config) String() string {
	return fmt.Sprintf("input=%d output=%d log=%d", c.MaxInputSize, c.MaxOutputSize, c.MaxLogSize)
}

// Encode serializes cfg into the artifact format.
func Encode(cfg Config) []byte {
	data := make([]byte, 0, MaxEncodedSize)
	data = protowire.AppendVarint(data, uint64(cfg.MaxInputSize))
	data = protowire.AppendVarint(data, uint64(cfg.MaxOutputSize))
	return protowire.AppendVarint(data, uint64(cfg.MaxLogSize))
}

// Decode parses an artifact. Truncated fields, values wider than 32 bits and
// trailing bytes are rejected.
func Decode(data []byte) (Config, error) {
	var fields [3]uint32
	names := [3]string{"max_input_size", "max_output_size", "max_log_size"}

	rest := data
	for i := range fields {
		v, n := protowire.ConsumeVarint(rest)
		if n < 0 {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrMalformed, names[i], protowire.ParseError(n))
		}
		if n > maxVarintLen32 || v > math.MaxUint32 {
			return Config{}, fmt.Errorf("%w: %s does not fit in 32 bits", ErrMalformed, names[i])
		}
		fields[i] = uint32(v)
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return Config{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	}

	return Config{
		MaxInputSize:  fields[0],
		MaxOutputSize: fields[1],
		MaxLogSize:    fields[2],
	}, nil
}

// Load reads and decodes the artifact at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, &BuildError{Stage: StageRead, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Config{}, &BuildError{Stage: StageRead, Err: err}
	}

	cfg, err := Decode(data)
	if err != nil {
		return Config{}, &BuildError{Stage: StageDecode, Err: err}
	}
	return cfg, nil
}

// WriteFile encodes cfg and writes it to path.
func WriteFile(path string, cfg Config) error {
	return os.WriteFile(path, Encode(cfg), 0o644)
}

// Fingerprint returns the blake3 digest of the encoded artifact.
func Fingerprint(cfg Config) types.Digest {
	return types.ComputeDigest(Encode(cfg))
}
