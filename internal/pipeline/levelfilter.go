package pipeline

import (
	"strings"

	"github.com/stelp/stelp/internal/record"
)

// levelFieldNames is the fixed field-name list probed, in order, when a
// record is structured.
var levelFieldNames = []string{"level", "loglevel", "log_level", "lvl", "severity", "levelname", "@l"}

// levelKeywords is the text-mode probe: a Text record's line is scanned for
// one of these keywords. Structured records are not scanned; when none of
// levelFieldNames is set they have no detectable level.
var levelKeywords = []string{
	"trace", "debug", "info", "warn", "warning", "error", "err", "fatal", "critical", "panic",
}

// LevelFilterStep is the third step kind: extract a log
// level token from the record, then apply include/exclude rules. Exclude
// always wins over include.
type LevelFilterStep struct {
	name    string
	include map[string]bool
	exclude map[string]bool
}

// NewLevelFilterStep builds a level filter from include and exclude lists of
// level names (either may be empty). Levels are matched case-insensitively.
func NewLevelFilterStep(name string, include, exclude []string) *LevelFilterStep {
	s := &LevelFilterStep{name: name}
	if len(include) > 0 {
		s.include = toLowerSet(include)
	}
	if len(exclude) > 0 {
		s.exclude = toLowerSet(exclude)
	}
	return s
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(strings.TrimSpace(it))] = true
	}
	return set
}

func (s *LevelFilterStep) Name() string { return s.name }
func (s *LevelFilterStep) Reset()       {}

func (s *LevelFilterStep) Run(rec record.Record, sctx *StepContext) StepResult {
	level, found := extractLevel(rec)

	if !found {
		// accept when only an exclude list is configured;
		// reject when an include list is configured; accept when neither.
		if len(s.include) > 0 {
			return Skip()
		}
		return Transform(rec)
	}

	if s.exclude[level] {
		return Skip()
	}
	if len(s.include) > 0 && !s.include[level] {
		return Skip()
	}
	return Transform(rec)
}

// extractLevel runs two probes: the text view scans for a
// configured keyword; structured view probes the fixed field-name list and
// lower-cases whatever it finds.
func extractLevel(rec record.Record) (string, bool) {
	if rec.Kind == record.Text {
		return extractLevelFromText(rec.Text)
	}
	return extractLevelFromStructured(rec.Value)
}

func extractLevelFromText(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range levelKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func extractLevelFromStructured(v record.Value) (string, bool) {
	m, ok := v.Map()
	if !ok {
		return "", false
	}
	for _, field := range levelFieldNames {
		val, ok := m.Get(field)
		if !ok {
			continue
		}
		s, ok := val.Str()
		if !ok {
			continue
		}
		return strings.ToLower(s), true
	}
	return "", false
}
