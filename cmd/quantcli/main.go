// quantcli runs the analytics operations against JSON input files.
//
// Every command reads --input <file.json> in the same shape the HTTP API accepts and
// prints the result as indented JSON on stdout. Logs go to stderr.
package main

import (
	"fmt"
	"os"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
