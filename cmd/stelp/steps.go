package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// stepKind names one of the CLI's repeatable step-producing flags.
type stepKind int

const (
	stepTransform stepKind = iota
	stepFilter
	stepIncludeLevel
	stepExcludeLevel
	stepWindow
)

// stepSpec is one entry in the ordered list of repeatable step flags,
// evaluated left-to-right in command-line order.
type stepSpec struct {
	kind       stepKind
	expr       string   // eval/filter source, or the window's inner expr
	levels     []string // include-level/exclude-level
	windowSize int
	windowKind stepKind // stepTransform or stepFilter, for --window's inner step
}

// parseArgs walks argv left-to-right, recognizing every supported flag and
// appending step-producing flags to an ordered list as it encounters them.
// This hand-rolled scan (rather than cobra/pflag's flag registration) is
// what actually gives left-to-right ordering across *different* flag names
// — pflag tracks repeated occurrences of one flag, not interleaving order
// across several — and step ordering depends on exactly that interleaving.
func parseArgs(argv []string, opts *options) (*options, error) {
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		next := func() (string, error) {
			i++
			if i >= len(argv) {
				return "", fmt.Errorf("flag %s requires an argument", arg)
			}
			return argv[i], nil
		}

		switch {
		case arg == "-e" || arg == "--eval":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.steps = append(opts.steps, stepSpec{kind: stepTransform, expr: v})

		case arg == "--filter":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.steps = append(opts.steps, stepSpec{kind: stepFilter, expr: v})

		case arg == "--include-level":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.steps = append(opts.steps, stepSpec{kind: stepIncludeLevel, levels: splitCommaList(v)})

		case arg == "--exclude-level":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.steps = append(opts.steps, stepSpec{kind: stepExcludeLevel, levels: splitCommaList(v)})

		case arg == "--window":
			nStr, err := next()
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(nStr)
			if err != nil {
				return nil, fmt.Errorf("--window: invalid size %q", nStr)
			}
			expr, err := next()
			if err != nil {
				return nil, err
			}
			opts.steps = append(opts.steps, stepSpec{kind: stepWindow, expr: expr, windowSize: n, windowKind: stepTransform})

		case arg == "-f" || arg == "--input-format":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.inputFormat = v

		case arg == "-F" || arg == "--output-format":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.outputFormat = v

		case arg == "-k" || arg == "--keys":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.keys = splitCommaList(v)

		case arg == "--chunk":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.chunk = v

		case arg == "-i":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.inputFile = v

		case arg == "-o":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.outputFile = v

		case arg == "--config":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.configFile = v

		case arg == "--metrics-addr":
			v, err := next()
			if err != nil {
				return nil, err
			}
			opts.metricsAddr = v

		case arg == "--progress":
			v, err := next()
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("--progress: invalid interval %q", v)
			}
			opts.progressInterval = n

		case arg == "--debug":
			opts.debug = true

		case arg == "--fail-fast":
			opts.failFast = true

		case arg == "--color":
			opts.color = true

		case arg == "--no-color":
			opts.color = false

		case arg == "-h" || arg == "--help":
			opts.help = true

		default:
			return nil, fmt.Errorf("unknown argument: %s", arg)
		}
	}

	return opts, nil
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// options is the fully parsed CLI invocation, ready to build a pipeline.
type options struct {
	steps []stepSpec

	inputFormat  string
	outputFormat string
	keys         []string
	chunk        string

	inputFile  string
	outputFile string
	configFile string

	metricsAddr      string
	progressInterval int

	debug    bool
	failFast bool
	color    bool
	help     bool
}

func defaultOptions() *options {
	return &options{
		inputFormat:  "line",
		outputFormat: "jsonl",
		chunk:        "line",
		color:        isTerminal(os.Stdout),
	}
}
