package main

import (
	"os"

	"github.com/spf13/cobra"
)

// usageErr marks an invalid-CLI condition: these are never-silent and
// must map to a non-zero exit
// distinct from the "ran but produced nothing" code 2.
type usageErr struct{ error }

const exitUsageError = 64 // sysexits.h EX_USAGE, distinct from the run-outcome codes, chosen
// since invalid arguments or an unopenable file need a non-zero code
// distinct from the run-outcome codes without a fixed value being named
// anywhere (see DESIGN.md Open Question).

func exitCodeForError(err error) int {
	if _, ok := err.(usageErr); ok {
		return exitUsageError
	}
	// Any other error reaching main (e.g. an output write failure, one of
	// never-silent conditions) is a run-time failure, not a
	// usage problem — map it to exit 1, the same code a Skip-mode error
	// tally would produce.
	return 1
}

// rootCmd exists to give stelp cobra-generated --help text; actual flag
// parsing is the hand-rolled left-to-right scan in
// parseArgs, since cobra/pflag cannot preserve interleaved ordering across
// distinct repeatable flags (see steps.go).
var rootCmd = &cobra.Command{
	Use:                "stelp",
	Short:              "A streaming record processor for text and semi-structured data",
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := defaultOptions()
		if err := applyConfigFile(args, opts); err != nil {
			return usageErr{err}
		}
		opts, err := parseArgs(args, opts)
		if err != nil {
			return usageErr{err}
		}
		if opts.help {
			return cmd.Help()
		}
		return run(opts)
	},
}

func Execute() error {
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.Execute()
}

// isTerminal reports whether f looks like an interactive terminal, for the
// CLI's color auto-detection (--color/--no-color); kept minimal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
