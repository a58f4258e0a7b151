package main

import (
	"fmt"

	"github.com/gustidama/nexus-zkvm/pkg/guest"
)

// runEcho is the simulated guest program: it drains the input, copies it to
// the output through a heap buffer and records what it did in the log.
func runEcho(rt *guest.Runtime) error {
	input, _ := rt.ReadInput(true)

	// A guest copying its input needs a buffer of the same size.
	buf := rt.Alloc(uint64(len(input)), 8)

	// The last output byte is never writable.
	n := uint64(len(input))
	if limit := rt.Layout().MaxOutputSize; n >= limit {
		n = 0
		if limit > 0 {
			n = limit - 1
		}
	}
	if n > 0 && !rt.WriteOutput(input[:n]) {
		return fmt.Errorf("output rejected %d bytes", n)
	}

	msg := fmt.Sprintf("echo %d/%d bytes via heap 0x%x\n", n, len(input), buf)
	if !rt.WriteLog([]byte(msg)) {
		rt.WriteLog([]byte("echo\n"))
	}
	return nil
}
