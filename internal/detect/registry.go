package detect

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RecognizerFile is the top-level YAML structure for a recognizer config file.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig is one named recognizer: a set of regex patterns for a
// single PII kind, with optional context words and a sensitivity rank.
type RecognizerConfig struct {
	Name          string          `yaml:"name" json:"name"`
	Kind          string          `yaml:"kind" json:"kind"`
	Enabled       *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns      []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Context       []string        `yaml:"context,omitempty" json:"context,omitempty"`
	Sensitivity   int             `yaml:"sensitivity,omitempty" json:"sensitivity,omitempty"`
	ValidateLuhn  bool            `yaml:"validate_luhn,omitempty" json:"validate_luhn,omitempty"`
	ValidateIBAN  bool            `yaml:"validate_iban,omitempty" json:"validate_iban,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing global config as a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseRecognizerFile(data)
}

// MergeRecognizers performs a layered merge: embedded defaults, then the
// global override file, then per-run overrides. Later layers override
// earlier ones by matching on the recognizer Name; new names are appended.
func MergeRecognizers(layers ...[]*RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if rc == nil {
				continue
			}
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = *rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, *rc)
			}
		}
	}

	return merged
}

// toPtrSlice converts []RecognizerConfig to []*RecognizerConfig for MergeRecognizers.
func toPtrSlice(configs []RecognizerConfig) []*RecognizerConfig {
	ptrs := make([]*RecognizerConfig, len(configs))
	for i := range configs {
		ptrs[i] = &configs[i]
	}
	return ptrs
}

// FilterByKinds applies enabled/disabled kind filters to a recognizer list.
// If enabled is non-empty, only recognizers with a matching kind are kept
// (whitelist). Then any recognizer whose kind is in disabled is removed.
func FilterByKinds(recognizers []RecognizerConfig, enabled, disabled []string) []RecognizerConfig {
	result := recognizers

	if len(enabled) > 0 {
		allowed := make(map[string]bool, len(enabled))
		for _, k := range enabled {
			allowed[k] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if allowed[r.Kind] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	if len(disabled) > 0 {
		blocked := make(map[string]bool, len(disabled))
		for _, k := range disabled {
			blocked[k] = true
		}
		var filtered []RecognizerConfig
		for _, r := range result {
			if !blocked[r.Kind] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	return result
}

// PIIPattern is a compiled, ready-to-use detection pattern.
type PIIPattern struct {
	Name         string
	Kind         string
	Pattern      *regexp.Regexp
	Score        float64
	Context      []string
	Sensitivity  int
	ValidateLuhn bool
	ValidateIBAN bool
}

// CompilePatterns converts recognizer configs into the compiled []PIIPattern
// slice the scanner uses at runtime. Disabled recognizers are skipped; each
// regex in a recognizer produces one PIIPattern entry.
func CompilePatterns(recognizers []RecognizerConfig) ([]PIIPattern, error) {
	var patterns []PIIPattern

	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}
		for _, p := range rec.Patterns {
			compiled, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", p.Name, rec.Name, err)
			}
			patterns = append(patterns, PIIPattern{
				Name:         rec.Name,
				Kind:         rec.Kind,
				Pattern:      compiled,
				Score:        p.Score,
				Context:      rec.Context,
				Sensitivity:  rec.Sensitivity,
				ValidateLuhn: rec.ValidateLuhn,
				ValidateIBAN: rec.ValidateIBAN,
			})
		}
	}

	return patterns, nil
}
