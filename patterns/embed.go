// Package patterns provides the embedded default recognizer definitions
// for the rule-based pattern detector.
package patterns

import _ "embed"

//go:embed pii_default.yaml
var defaultYAML []byte

// DefaultYAML returns the embedded default PII recognizer definitions.
func DefaultYAML() []byte { return defaultYAML }
