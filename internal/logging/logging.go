// Package logging builds the logr.Logger shared by the server and CLIs.
package logging

import (
	"log"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Levels used across the module. V(0) is always printed.
const (
	DEFAULT = 0
	VERBOSE = 1
	DEBUG   = 2
)

// New returns a logger that prints through the standard log package.
// Messages above verbosity are dropped.
func New(verbosity int) logr.Logger {
	return NewWithPrinter(log.Default(), verbosity)
}

// NewWithPrinter is New writing to a specific *log.Logger.
func NewWithPrinter(out *log.Logger, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			out.Printf("%s: %s", prefix, args)
			return
		}
		out.Print(args)
	}, funcr.Options{Verbosity: verbosity})
}
