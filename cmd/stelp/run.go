package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stelp/stelp/internal/chunk"
	"github.com/stelp/stelp/internal/format"
	"github.com/stelp/stelp/internal/logging"
	"github.com/stelp/stelp/internal/metrics"
	"github.com/stelp/stelp/internal/pipeline"
	"github.com/stelp/stelp/internal/record"
)

// run drives one end-to-end invocation: open streams, build the chunker,
// parser, step chain, and writer, then feed records through until EOF or a
// terminate() call, and map the outcome to an exit code.
func run(opts *options) error {
	logCfg := logging.DefaultConfig()
	if opts.debug {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	in, closeIn, err := openInput(opts.inputFile)
	if err != nil {
		return usageErr{fmt.Errorf("cannot open input %q: %w", opts.inputFile, err)}
	}
	defer closeIn()

	out, closeOut, err := openOutput(opts.outputFile)
	if err != nil {
		return usageErr{fmt.Errorf("cannot open output %q: %w", opts.outputFile, err)}
	}
	defer closeOut()
	bufOut := bufio.NewWriter(out)

	strategy, err := chunk.ParseStrategy(opts.chunk)
	if err != nil {
		return usageErr{err}
	}
	chunkCfg := chunk.DefaultConfig()
	chunkCfg.Strategy = strategy
	chunker := chunk.New(chunkCfg)

	var parser format.LineParser
	if opts.inputFormat != "line" {
		p, ok := format.NewParser(format.InputKind(opts.inputFormat))
		if !ok {
			return usageErr{fmt.Errorf("unknown input format %q", opts.inputFormat)}
		}
		parser = p
	}

	steps, err := buildSteps(opts.steps, logger)
	if err != nil {
		return usageErr{err}
	}

	strategyErr := pipeline.SkipErrors
	if opts.failFast {
		strategyErr = pipeline.FailFast
	}

	pl := pipeline.New(steps,
		pipeline.WithErrorStrategy(strategyErr),
		pipeline.WithDebug(opts.debug),
		pipeline.WithErrorHandler(func(e *pipeline.StepError) {
			if opts.debug {
				fmt.Fprintf(os.Stderr, "stelp: %v\n", e)
			}
		}),
	)

	writer := format.NewWriter(bufOut, format.OutputKind(opts.outputFormat), opts.keys)

	var recorder *metrics.Recorder
	if opts.metricsAddr != "" {
		recorder = metrics.NewRecorder()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	_, runErr := processStream(in, opts, chunker, parser, pl, writer, recorder, logger)
	if flushErr := bufOut.Flush(); flushErr != nil && runErr == nil {
		runErr = flushErr
	}
	if runErr != nil {
		return fmt.Errorf("output write failure: %w", runErr)
	}

	stats := pl.Stats()
	logger.Info("stream finished",
		"processed", stats.RecordsProcessed,
		"output", stats.RecordsOutput,
		"skipped", stats.RecordsSkipped,
		"errors", stats.Errors,
		"elapsed", stats.Elapsed,
	)

	switch {
	case stats.Errors > 0:
		os.Exit(1)
	case stats.RecordsOutput == 0:
		os.Exit(2)
	default:
		os.Exit(0)
	}
	return nil
}

func openInput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// processStream is the per-record loop: feed lines to
// the chunker, parse completed chunks into records, run them through the
// pipeline, write every surviving record, and stop at the first
// Terminate.
func processStream(in *os.File, opts *options, chunker *chunk.Chunker, parser format.LineParser, pl *pipeline.Pipeline, writer *format.Writer, recorder *metrics.Recorder, logger *logging.Logger) (terminated bool, err error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var recordCount int64
	filename := opts.inputFile
	if filename == "" {
		filename = "-"
	}

	handleChunk := func(c chunk.Chunk) (bool, error) {
		rec, perr := parseChunk(c, parser)
		if perr == errSkipRecord {
			return false, nil
		}
		if perr != nil {
			stepErr := &pipeline.StepError{
				Kind:    pipeline.ErrParse,
				Step:    "parse",
				LineNum: c.StartLine,
				Format:  opts.inputFormat,
				Detail:  perr.Error(),
				Cause:   perr,
			}
			if err := pl.HandleParseError(stepErr); err != nil {
				return false, err
			}
			return false, nil
		}
		recordCount++
		rec.Ctx = record.Context{LineNum: c.StartLine, RecordCount: recordCount, Filename: filename}

		outcome, perr := pl.Process(rec)
		if perr != nil {
			return false, perr
		}
		for _, r := range outcome.Records {
			if werr := writer.WriteRecord(r); werr != nil {
				return false, werr
			}
		}
		if recorder != nil {
			recorder.Record(metrics.Snapshot(pl.Stats()))
		}
		if opts.progressInterval > 0 && recordCount%int64(opts.progressInterval) == 0 {
			logger.Info("progress", "records", recordCount)
		}
		return outcome.Terminate, nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if c, ok := chunker.AddLine(line); ok {
			stop, err := handleChunk(c)
			if err != nil {
				return false, err
			}
			if stop {
				return true, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	if c, ok := chunker.Flush(); ok {
		stop, err := handleChunk(c)
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}
	return false, nil
}

// parseChunk applies the declared input format (nil parser means raw
// text/"line" format, which stays a Text record) and handles CSV's
// stateful header row (the first non-empty chunk defines the
// header").
func parseChunk(c chunk.Chunk, parser format.LineParser) (record.Record, error) {
	if parser == nil {
		return record.NewText(c.Content, record.Context{}), nil
	}
	if csvParser, ok := parser.(*format.CSVParser); ok && !csvParser.HeadersSet() {
		if strings.TrimSpace(c.Content) == "" {
			return record.Record{}, errSkipRecord
		}
		if err := csvParser.ParseHeaders(c.Content); err != nil {
			return record.Record{}, err
		}
		return record.Record{}, errSkipRecord
	}
	v, err := parser.ParseLine(c.Content)
	if err != nil {
		return record.Record{}, err
	}
	return record.NewStructured(v, record.Context{}), nil
}

var errSkipRecord = fmt.Errorf("header row consumed, no record produced")
