// Package detect defines the canonical candidate-span record shared by all
// detector sources, plus the concrete pattern and LLM-verifier detectors.
package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/veilhq/veil/internal/region"
)

// Source identifies which detector proposed a candidate span. The numeric
// value doubles as the consolidation tie-break priority: a statistical NER
// hit outranks a pattern match, which outranks an unverified LLM proposal.
type Source uint8

// Detector sources, in ascending priority order.
const (
	SourceUnknown  Source = iota
	SourceVerifier        // LLM verification pass
	SourcePattern         // rule-based pattern matcher
	SourceNER             // statistical NER model
)

// Priority returns the consolidation tie-break rank of the source.
func (s Source) Priority() int { return int(s) }

// String returns the wire name of the source.
func (s Source) String() string {
	switch s {
	case SourceVerifier:
		return "llm_verifier"
	case SourcePattern:
		return "pattern_match"
	case SourceNER:
		return "statistical_ner"
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// ParseSource converts a wire name into a Source.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "llm_verifier", "verifier":
		return SourceVerifier, nil
	case "pattern_match", "pattern":
		return SourcePattern, nil
	case "statistical_ner", "ner":
		return SourceNER, nil
	}
	return SourceUnknown, fmt.Errorf("unknown detector source %q", s)
}

// Common kind labels shared across detectors. Detectors may emit other
// kinds; these are the ones downstream stages switch on.
const (
	KindPerson     = "person"
	KindOrg        = "organization"
	KindAddress    = "address"
	KindEmail      = "email"
	KindPhone      = "phone"
	KindSSN        = "ssn"
	KindCreditCard = "credit_card"
	KindIBAN       = "iban"
	KindIPAddress  = "ip_address"
)

// CandidateSpan is one detector's opinion about one textual occurrence on a
// page. Offsets are half-open byte offsets into the page text. Immutable
// once created; consumed exactly once by the consolidator.
type CandidateSpan struct {
	Text       string
	Kind       string
	Confidence float64
	Start, End int
	Page       int
	Source     Source
	Verified   bool         // true only when an LLM verification pass confirmed it
	Rect       *region.Rect // optional; most detectors leave geometry to the surface
}

// Detector is a capability that proposes candidate spans for one page of
// text. A failing detector is treated as contributing zero candidates; the
// engine never lets one source abort a page.
type Detector interface {
	Source() Source
	Detect(ctx context.Context, page int, text string) ([]CandidateSpan, error)
}

// Func adapts a plain function to the Detector interface.
type Func struct {
	Src Source
	Fn  func(ctx context.Context, page int, text string) ([]CandidateSpan, error)
}

// Source returns the adapted function's source label.
func (f Func) Source() Source { return f.Src }

// Detect invokes the adapted function.
func (f Func) Detect(ctx context.Context, page int, text string) ([]CandidateSpan, error) {
	return f.Fn(ctx, page, text)
}
