package detect

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	veilotel "github.com/veilhq/veil/internal/otel"
	"github.com/veilhq/veil/patterns"
)

var tracer = veilotel.Tracer("github.com/veilhq/veil/internal/detect")

const (
	// DefaultMinScore is the minimum confidence threshold. Matches below
	// this score are discarded unless boosted by context words.
	DefaultMinScore = 0.5

	// ContextBoost is the score added when context words are found near a
	// match.
	ContextBoost = 0.35

	// ContextWindowChars is the number of characters searched before and
	// after a match when looking for context words.
	ContextWindowChars = 100
)

// Scanner is the rule-based pattern detector. It detects PII in page text
// using configurable regex recognizers and emits candidate spans with
// Source = SourcePattern.
type Scanner struct {
	patterns []PIIPattern
	minScore float64
}

// ScannerOption configures a Scanner via the functional options pattern.
type ScannerOption func(*scannerConfig)

type scannerConfig struct {
	patternFile       string
	enabledKinds      []string
	disabledKinds     []string
	customRecognizers []RecognizerConfig
	minScore          float64
}

// WithMinScore overrides the default minimum confidence threshold for matches.
func WithMinScore(score float64) ScannerOption {
	return func(c *scannerConfig) { c.minScore = score }
}

// WithPatternFile loads additional recognizers from a global patterns YAML
// file. If the file does not exist, it is silently skipped.
func WithPatternFile(path string) ScannerOption {
	return func(c *scannerConfig) { c.patternFile = path }
}

// WithEnabledKinds sets a whitelist of kinds. When non-empty, only
// recognizers with a matching kind will be active.
func WithEnabledKinds(kinds []string) ScannerOption {
	return func(c *scannerConfig) { c.enabledKinds = kinds }
}

// WithDisabledKinds sets a blacklist of kinds to exclude.
func WithDisabledKinds(kinds []string) ScannerOption {
	return func(c *scannerConfig) { c.disabledKinds = kinds }
}

// WithCustomRecognizers adds per-run custom recognizer definitions.
func WithCustomRecognizers(recognizers []RecognizerConfig) ScannerOption {
	return func(c *scannerConfig) { c.customRecognizers = recognizers }
}

// NewScanner creates a pattern detector. Without options it uses the
// embedded defaults. Options layer a global pattern file and per-run
// customization on top.
func NewScanner(opts ...ScannerOption) (*Scanner, error) {
	var cfg scannerConfig
	for _, o := range opts {
		o(&cfg)
	}

	// Layer 1: embedded defaults
	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	// Layer 2: global pattern file (optional)
	var globalRecs []*RecognizerConfig
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading global pattern file: %w", err)
		}
		if rf != nil {
			globalRecs = toPtrSlice(rf.Recognizers)
		}
	}

	// Layer 3: per-run custom recognizers
	var runRecs []*RecognizerConfig
	if len(cfg.customRecognizers) > 0 {
		runRecs = toPtrSlice(cfg.customRecognizers)
	}

	merged := MergeRecognizers(toPtrSlice(defaults), globalRecs, runRecs)
	merged = FilterByKinds(merged, cfg.enabledKinds, cfg.disabledKinds)

	compiled, err := CompilePatterns(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	minScore := DefaultMinScore
	if cfg.minScore > 0 {
		minScore = cfg.minScore
	}

	return &Scanner{patterns: compiled, minScore: minScore}, nil
}

// MustNewScanner is like NewScanner but panics on error. Useful for
// zero-config startup where the embedded defaults are expected to always
// compile.
func MustNewScanner(opts ...ScannerOption) *Scanner {
	s, err := NewScanner(opts...)
	if err != nil {
		panic(fmt.Sprintf("detect.NewScanner: %v", err))
	}
	return s
}

// DefaultRecognizers returns the built-in recognizers parsed from the
// embedded pii_default.yaml file. This is the first layer in the merge chain.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.DefaultYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded PII patterns: %w", err)
	}
	return rf.Recognizers, nil
}

// Source returns SourcePattern.
func (s *Scanner) Source() Source { return SourcePattern }

// Detect scans page text and returns candidate spans. Each match goes
// through hard validation gates (IBAN checksum/length, Luhn) and then
// score-based context filtering before being accepted.
func (s *Scanner) Detect(ctx context.Context, page int, text string) ([]CandidateSpan, error) {
	_, span := tracer.Start(ctx, "detect.pattern_scan")
	defer span.End()

	var candidates []CandidateSpan
	for _, pattern := range s.patterns {
		matches := pattern.Pattern.FindAllStringIndex(text, -1)
		for _, match := range matches {
			value := text[match[0]:match[1]]

			// Hard validation gate: IBAN checksum + country length
			if pattern.ValidateIBAN {
				clean := strings.ReplaceAll(value, " ", "")
				if !validIBANLength(clean) || !validIBANChecksum(clean) {
					continue
				}
			}

			// Hard validation gate: Luhn checksum for card numbers
			if pattern.ValidateLuhn {
				if !luhnValid(stripNonDigits(value)) {
					continue
				}
			}

			confidence := boostScoreWithContext(text, match[0], pattern.Score, pattern.Context)
			if confidence < s.minScore {
				continue
			}
			if confidence > 1 {
				confidence = 1
			}

			candidates = append(candidates, CandidateSpan{
				Text:       value,
				Kind:       pattern.Kind,
				Confidence: confidence,
				Start:      match[0],
				End:        match[1],
				Page:       page,
				Source:     SourcePattern,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("detect.page", page),
		attribute.Int("detect.candidates", len(candidates)),
	)

	return candidates, nil
}

// boostScoreWithContext boosts a match's base score when context words
// appear within +/- ContextWindowChars characters of the match position.
func boostScoreWithContext(text string, position int, baseScore float64, contextWords []string) float64 {
	if len(contextWords) == 0 {
		return baseScore
	}
	start := position - ContextWindowChars
	if start < 0 {
		start = 0
	}
	end := position + ContextWindowChars
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for _, cw := range contextWords {
		if strings.Contains(window, strings.ToLower(cw)) {
			return baseScore + ContextBoost
		}
	}
	return baseScore
}
