package region

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Plan line format, one directive per line:
//
//	PII_TEXT:TYPE:STRATEGY:PAGE:X0:Y0:X1:Y1[:REPLACEMENT]
//
// PII_TEXT may itself contain colons, so parsing anchors from the right:
// the trailing fields are fixed-shape and everything before them is the
// literal text. Lines starting with '#' and blank lines are ignored.

// planFixedFields is the number of colon-separated fields after PII_TEXT
// when no explicit replacement is present.
const planFixedFields = 7

// FormatLine serializes one directive into the plan line format.
func FormatLine(d Directive) string {
	line := fmt.Sprintf("%s:%s:%s:%d:%.2f:%.2f:%.2f:%.2f",
		d.Text, d.Kind, d.Strategy, d.Page,
		d.Rect.X0, d.Rect.Y0, d.Rect.X1, d.Rect.Y1)
	if d.Replacement != "" {
		line += ":" + d.Replacement
	}
	return line
}

// WritePlan writes all directives to w, one line each, with a header comment.
func WritePlan(w io.Writer, directives []Directive) error {
	if _, err := fmt.Fprintln(w, "# veil masking plan"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "# PII_TEXT:TYPE:STRATEGY:PAGE:X0:Y0:X1:Y1[:REPLACEMENT]"); err != nil {
		return err
	}
	for _, d := range directives {
		line := FormatLine(d)
		// A text beginning with '#' formats into a line ParsePlan treats
		// as a comment, so the directive would vanish on read-back.
		if strings.HasPrefix(line, "#") {
			log.Warn().Str("text", d.Text).Msg("Directive text starts with '#', the plan line will be skipped as a comment on parse")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ParsePlan reads a plan and returns its directives. Malformed lines are
// skipped with a warning; malformed coordinate fields fall back to 0.0.
// Parsing never aborts on bad input.
func ParsePlan(r io.Reader) ([]Directive, error) {
	var directives []Directive
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		d, err := ParseLine(line)
		if err != nil {
			log.Warn().Int("line", lineNo).Err(err).Msg("Skipping malformed plan line")
			continue
		}
		directives = append(directives, d)
	}
	if err := scanner.Err(); err != nil {
		return directives, fmt.Errorf("reading plan: %w", err)
	}
	return directives, nil
}

// ParseLine parses a single plan line into a Directive.
//
// The format is ambiguous from the left because PII_TEXT may contain colons,
// so the fixed-shape tail is located from the right: first try the 7-field
// tail (no replacement), validating that the STRATEGY and PAGE slots parse;
// otherwise try the 8-field tail with a trailing REPLACEMENT.
func ParseLine(line string) (Directive, error) {
	fields := strings.Split(line, ":")
	if len(fields) < planFixedFields+1 {
		return Directive{}, fmt.Errorf("expected at least %d fields, got %d", planFixedFields+1, len(fields))
	}

	// Tail without replacement: ...:TYPE:STRATEGY:PAGE:X0:Y0:X1:Y1
	if d, ok := parseTail(fields, len(fields)-planFixedFields, ""); ok {
		return d, nil
	}
	// Tail with replacement: ...:TYPE:STRATEGY:PAGE:X0:Y0:X1:Y1:REPLACEMENT
	if len(fields) >= planFixedFields+2 {
		if d, ok := parseTail(fields, len(fields)-planFixedFields-1, fields[len(fields)-1]); ok {
			return d, nil
		}
	}
	return Directive{}, fmt.Errorf("no valid STRATEGY:PAGE anchor found")
}

// parseTail interprets fields[tail:] as TYPE:STRATEGY:PAGE:X0:Y0:X1:Y1 and
// everything before as the literal text (with replacement already stripped
// when present). Returns false when the anchor fields do not validate.
func parseTail(fields []string, tail int, replacement string) (Directive, bool) {
	if tail < 1 {
		return Directive{}, false
	}
	strategy, err := ParseStrategy(fields[tail+1])
	if err != nil {
		return Directive{}, false
	}
	page, err := strconv.Atoi(fields[tail+2])
	if err != nil || page < 0 {
		return Directive{}, false
	}
	return Directive{
		Text:     strings.Join(fields[:tail], ":"),
		Kind:     fields[tail],
		Strategy: strategy,
		Page:     page,
		Rect: Rect{
			X0: parseCoord(fields[tail+3]),
			Y0: parseCoord(fields[tail+4]),
			X1: parseCoord(fields[tail+5]),
			Y1: parseCoord(fields[tail+6]),
		},
		Replacement: replacement,
	}, true
}

// parseCoord parses a coordinate field, falling back to 0.0 with a warning
// on malformed input.
func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		log.Warn().Str("field", s).Msg("Malformed coordinate, using 0.0")
		return 0.0
	}
	return v
}
