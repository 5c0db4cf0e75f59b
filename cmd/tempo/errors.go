package main

import (
	"fmt"
	"os"

	"github.com/steveyegge/tempo/internal/ui"
)

// FatalError writes an error message to stderr and exits with code 1.
// Commands return errors from RunE; only main calls this.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}

// WarnError writes a warning message to stderr and returns.
// Use this for auxiliary work whose failure must not fail the command.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn("Warning:"), fmt.Sprintf(format, args...))
}
