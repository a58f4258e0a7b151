package buildcfg

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"sync"
)

var markerRe = regexp.MustCompile(MarkerKey + `="(?P<path>[^"]*)"`)

// ExtractPath returns the artifact path embedded in a flag string.
func ExtractPath(flags string) (string, error) {
	m := markerRe.FindStringSubmatch(flags)
	if m == nil {
		return "", fmt.Errorf("%w: no %s=\"...\" token", ErrNoMarker, MarkerKey)
	}
	path := m[markerRe.SubexpIndex("path")]
	if path == "" {
		return "", fmt.Errorf("%w: empty %s", ErrNoMarker, MarkerKey)
	}
	return path, nil
}

// ResolveFrom resolves the configuration using lookup to read the channel.
func ResolveFrom(lookup func(string) (string, bool)) (Config, error) {
	flags, ok := lookup(ChannelEnv)
	if !ok {
		return Config{}, &BuildError{Stage: StageChannel, Err: fmt.Errorf("%w: %s", ErrNoChannel, ChannelEnv)}
	}

	path, err := ExtractPath(flags)
	if err != nil {
		return Config{}, &BuildError{Stage: StageMarker, Err: err}
	}

	cfg, err := Load(path)
	if err != nil {
		var be *BuildError
		if errors.As(err, &be) {
			be.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

var (
	resolveOnce sync.Once
	resolved    Config
	resolveErr  error
)

// Resolve resolves the configuration from the process environment. The
// environment is consulted once; later calls return the first result.
func Resolve() (Config, error) {
	resolveOnce.Do(func() {
		resolved, resolveErr = ResolveFrom(os.LookupEnv)
	})
	return resolved, resolveErr
}

// MustResolve is like Resolve but aborts the process on failure.
func MustResolve() Config {
	cfg, err := Resolve()
	if err != nil {
		log.Fatalf("Failed to resolve build configuration: %v", err)
	}
	return cfg
}
