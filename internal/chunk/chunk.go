// Package chunk groups a byte stream of lines into chunks according to one
// of four strategies before each chunk is handed to an input-format parser.
package chunk

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies a chunking strategy.
type Kind int

const (
	Line Kind = iota
	FixedLines
	StartPattern
	Delimiter
)

// Strategy configures how the Chunker groups incoming lines.
type Strategy struct {
	Kind      Kind
	Count     int            // FixedLines
	Pattern   *regexp.Regexp // StartPattern
	Delimiter string         // Delimiter
}

// Config bounds a Chunker with safety limits that apply to the FixedLines,
// StartPattern and Delimiter strategies; the Line strategy never checks them.
type Config struct {
	Strategy      Strategy
	MaxChunkLines int
	MaxChunkBytes int
}

// DefaultConfig matches the hard safety limits: 1000 lines or 1MiB,
// whichever triggers first, applied on top of any strategy except Line.
func DefaultConfig() Config {
	return Config{
		Strategy:      Strategy{Kind: Line},
		MaxChunkLines: 1000,
		MaxChunkBytes: 1024 * 1024,
	}
}

// Chunk is one grouped unit of input text, along with the line number its
// first line occupied in the overall stream.
type Chunk struct {
	Content   string
	LineCount int
	StartLine int64
}

// Chunker accumulates lines and emits Chunks per Config.Strategy.
type Chunker struct {
	cfg             Config
	current         strings.Builder
	currentLines    int
	chunkStartLine  int64
	globalLineNum   int64
}

func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg, chunkStartLine: 1}
}

// AddLine feeds one line (without its trailing newline) into the chunker.
// It returns a completed Chunk when the active strategy decides a boundary
// was crossed, or ok=false if the line was only buffered.
func (c *Chunker) AddLine(line string) (Chunk, bool) {
	c.globalLineNum++

	switch c.cfg.Strategy.Kind {
	case Line:
		return Chunk{Content: line, LineCount: 1, StartLine: c.globalLineNum}, true

	case FixedLines:
		c.append(line)
		if c.currentLines >= c.cfg.Strategy.Count || c.exceedsSafetyLimits() {
			return c.emit(), true
		}
		return Chunk{}, false

	case StartPattern:
		if c.cfg.Strategy.Pattern.MatchString(line) && c.current.Len() > 0 {
			chunk := c.emit()
			c.chunkStartLine = c.globalLineNum
			c.append(line)
			return chunk, true
		}
		c.append(line)
		if c.exceedsSafetyLimits() {
			return c.emit(), true
		}
		return Chunk{}, false

	case Delimiter:
		if strings.TrimSpace(line) == strings.TrimSpace(c.cfg.Strategy.Delimiter) {
			if c.current.Len() > 0 {
				return c.emit(), true
			}
			return Chunk{}, false
		}
		c.append(line)
		if c.exceedsSafetyLimits() {
			return c.emit(), true
		}
		return Chunk{}, false
	}

	return Chunk{}, false
}

// Flush returns any partially accumulated chunk at end of stream.
func (c *Chunker) Flush() (Chunk, bool) {
	if c.current.Len() > 0 {
		return c.emit(), true
	}
	return Chunk{}, false
}

func (c *Chunker) append(line string) {
	if c.current.Len() > 0 {
		c.current.WriteByte('\n')
	}
	c.current.WriteString(line)
	c.currentLines++
}

func (c *Chunker) emit() Chunk {
	chunk := Chunk{
		Content:   c.current.String(),
		LineCount: c.currentLines,
		StartLine: c.chunkStartLine,
	}
	c.current.Reset()
	c.currentLines = 0
	c.chunkStartLine = c.globalLineNum + 1
	return chunk
}

func (c *Chunker) exceedsSafetyLimits() bool {
	return c.currentLines >= c.cfg.MaxChunkLines || c.current.Len() >= c.cfg.MaxChunkBytes
}

// ParseStrategy parses a CLI-style strategy spec such as "line",
// "lines:50", "start-pattern:^\d{4}-", or "delimiter:---".
func ParseStrategy(spec string) (Strategy, error) {
	switch {
	case spec == "line":
		return Strategy{Kind: Line}, nil
	case strings.HasPrefix(spec, "lines:"):
		n, err := strconv.Atoi(spec[len("lines:"):])
		if err != nil {
			return Strategy{}, fmt.Errorf("invalid line count: %s", spec[len("lines:"):])
		}
		return Strategy{Kind: FixedLines, Count: n}, nil
	case strings.HasPrefix(spec, "start-pattern:"):
		re, err := regexp.Compile(spec[len("start-pattern:"):])
		if err != nil {
			return Strategy{}, fmt.Errorf("invalid start pattern regex: %w", err)
		}
		return Strategy{Kind: StartPattern, Pattern: re}, nil
	case strings.HasPrefix(spec, "delimiter:"):
		return Strategy{Kind: Delimiter, Delimiter: spec[len("delimiter:"):]}, nil
	default:
		return Strategy{}, fmt.Errorf("unknown chunk strategy: %s", spec)
	}
}
