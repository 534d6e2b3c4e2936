package main

import (
	"fmt"

	"github.com/stelp/stelp/internal/config"
	"github.com/stelp/stelp/internal/logging"
	"github.com/stelp/stelp/internal/pipeline"
)

// applyConfigFile pre-scans argv for --config FILE and, if present, seeds
// opts' defaults from it before the left-to-right CLI
// scan runs. CLI flags always win, since parseArgs overwrites whatever this
// seeds.
func applyConfigFile(argv []string, opts *options) error {
	for i, arg := range argv {
		if arg != "--config" {
			continue
		}
		if i+1 >= len(argv) {
			return fmt.Errorf("--config requires an argument")
		}
		cfg, err := config.Load(argv[i+1])
		if err != nil {
			return fmt.Errorf("loading config %q: %w", argv[i+1], err)
		}
		opts.inputFormat = cfg.GetString("input-format", opts.inputFormat)
		opts.outputFormat = cfg.GetString("output-format", opts.outputFormat)
		opts.chunk = cfg.GetString("chunk", opts.chunk)
		opts.debug = cfg.GetBool("debug", opts.debug)
		opts.failFast = cfg.GetBool("fail-fast", opts.failFast)
		opts.metricsAddr = cfg.GetString("metrics-addr", opts.metricsAddr)
		opts.progressInterval = cfg.GetInt("progress", opts.progressInterval)
		opts.configFile = argv[i+1]
		return nil
	}
	return nil
}

// buildSteps turns the ordered CLI step specs into the ordered pipeline.Step
// list, preserving the left-to-right order parseArgs
// already captured.
func buildSteps(specs []stepSpec, logger *logging.Logger) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(specs))
	for i, spec := range specs {
		step, err := buildOneStep(i, spec, logger)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func buildOneStep(index int, spec stepSpec, logger *logging.Logger) (pipeline.Step, error) {
	switch spec.kind {
	case stepTransform:
		name := fmt.Sprintf("eval[%d]", index)
		return pipeline.NewTransformStep(name, spec.expr, logger)

	case stepFilter:
		name := fmt.Sprintf("filter[%d]", index)
		return pipeline.NewFilterStep(name, spec.expr, logger)

	case stepIncludeLevel:
		name := fmt.Sprintf("include-level[%d]", index)
		return pipeline.NewLevelFilterStep(name, spec.levels, nil), nil

	case stepExcludeLevel:
		name := fmt.Sprintf("exclude-level[%d]", index)
		return pipeline.NewLevelFilterStep(name, nil, spec.levels), nil

	case stepWindow:
		name := fmt.Sprintf("window[%d]", index)
		var inner pipeline.Step
		var err error
		switch spec.windowKind {
		case stepFilter:
			inner, err = pipeline.NewFilterStep(name, spec.expr, logger)
		default:
			inner, err = pipeline.NewTransformStep(name, spec.expr, logger)
		}
		if err != nil {
			return nil, err
		}
		return pipeline.NewWindowedStep(spec.windowSize, inner), nil
	}
	return nil, fmt.Errorf("unknown step kind %d", spec.kind)
}
