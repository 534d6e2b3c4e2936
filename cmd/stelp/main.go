// Command stelp is the CLI front-end for the stelp pipeline: argument
// parsing, file opening, and exit-code mapping. Only the left-to-right
// step ordering and the documented flags/exit codes are binding, not the
// exact parsing mechanics.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stelp:", err)
		os.Exit(exitCodeForError(err))
	}
}
