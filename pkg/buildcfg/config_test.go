package buildcfg

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodePostcard(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []byte
	}{
		{
			name: "single byte fields",
			cfg:  Config{MaxInputSize: 64, MaxOutputSize: 32, MaxLogSize: 16},
			want: []byte{64, 32, 16},
		},
		{
			name: "two byte fields",
			cfg:  Config{MaxInputSize: 4096, MaxOutputSize: 4096, MaxLogSize: 1024},
			want: []byte{0x80, 0x20, 0x80, 0x20, 0x80, 0x08},
		},
		{
			name: "widest fields",
			cfg:  Config{MaxInputSize: math.MaxUint32, MaxOutputSize: 0, MaxLogSize: 128},
			want: []byte{0xff, 0xff, 0xff, 0xff, 0x0f, 0x00, 0x80, 0x01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.cfg); !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = %#v, want %#v", got, tt.want)
			}
			got, err := Decode(tt.want)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.cfg {
				t.Errorf("Decode() = %+v, want %+v", got, tt.cfg)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"missing log size", []byte{64, 32}},
		{"truncated varint", []byte{64, 32, 0x80}},
		{"trailing", []byte{64, 32, 16, 0}},
		{"wider than u32", []byte{0xff, 0xff, 0xff, 0xff, 0x10, 1, 1}},
		{"overlong", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00, 1, 1}},
		{"old fixed width", []byte{64, 0, 0, 0, 32, 0, 0, 0, 16, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	cfg := Config{MaxInputSize: 10, MaxOutputSize: 20, MaxLogSize: 30}
	if err := WriteFile(path, cfg); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != cfg {
		t.Errorf("Load() = %+v, want %+v", got, cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing"))
	var be *BuildError
	if !errors.As(err, &be) || be.Stage != StageRead {
		t.Errorf("Load(missing) error = %v, want read stage BuildError", err)
	}

	bad := filepath.Join(dir, "bad")
	if err := os.WriteFile(bad, []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(bad)
	if !errors.As(err, &be) || be.Stage != StageDecode {
		t.Errorf("Load(bad) error = %v, want decode stage BuildError", err)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Load(bad) error = %v, want ErrMalformed", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(Config{MaxInputSize: 1, MaxOutputSize: 2, MaxLogSize: 3})
	b := Fingerprint(Config{MaxInputSize: 1, MaxOutputSize: 2, MaxLogSize: 3})
	c := Fingerprint(Config{MaxInputSize: 1, MaxOutputSize: 2, MaxLogSize: 4})

	if a != b {
		t.Errorf("Fingerprint() not deterministic: %s != %s", a, b)
	}
	if a == c {
		t.Error("Fingerprint() equal for different configs")
	}
}
