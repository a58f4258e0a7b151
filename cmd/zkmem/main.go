// zkmem: developer tool for the nexus-zkvm guest memory layer.
//
// It writes build configuration artifacts, prints the memory layout a
// configuration produces, and runs a small simulated guest over a
// region-mapped address space so segment contents can be inspected.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gustidama/nexus-zkvm/pkg/buildcfg"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"encode", "write a build configuration artifact", runEncode},
	{"layout", "print the memory layout of a configuration", runLayout},
	{"run", "run the echo guest and write a memory image", runGuest},
	{"inspect", "print the output and logging segments of a memory image", runInspect},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: zkmem <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintf(os.Stderr, "\nWithout -config, the configuration is resolved from $%s.\n", buildcfg.ChannelEnv)
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "version", "-version", "--version":
		fmt.Printf("zkmem %s (%s)\n", Version, GitCommit)
		return
	case "help", "-h", "-help", "--help":
		usage()
		return
	}

	for _, c := range commands {
		if c.name == os.Args[1] {
			if err := c.run(os.Args[2:]); err != nil {
				log.Fatalf("%s: %v", c.name, err)
			}
			return
		}
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
	usage()
	os.Exit(2)
}

// loadConfig reads the artifact at path, or resolves it from the build
// channel when path is empty.
func loadConfig(path string) (buildcfg.Config, error) {
	if path == "" {
		return buildcfg.Resolve()
	}
	return buildcfg.Load(path)
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("zkmem "+name, flag.ExitOnError)
}
