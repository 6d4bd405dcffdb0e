// Package consolidate merges overlapping candidate spans from independent
// detectors into one authoritative span per textual occurrence.
package consolidate

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/veilhq/veil/internal/detect"
	veilotel "github.com/veilhq/veil/internal/otel"
)

var tracer = veilotel.Tracer("github.com/veilhq/veil/internal/consolidate")

// Span is the authoritative record for one textual occurrence after
// merging. Its attributes (text, kind, confidence, source, verified) come
// from the winning candidate; its range is the union of all merged ranges
// so a longer but lower-confidence match is never truncated by a shorter
// winner.
type Span struct {
	Text       string
	Kind       string
	Confidence float64
	Start, End int
	TextStart  int // start of the winning candidate's own match, within [Start,End)
	Page       int
	Source     detect.Source
	Verified   bool
	Sources    map[detect.Source]bool // all sources that contributed
}

// Page consolidates all candidates for one page. The result satisfies the
// no-overlap invariant: no two returned spans have overlapping [start,end)
// ranges. Candidates must all carry the same page number; consolidation
// only runs once the full candidate set for a page has arrived.
func Page(ctx context.Context, candidates []detect.CandidateSpan) []Span {
	_, span := tracer.Start(ctx, "consolidate.page")
	defer span.End()

	sorted := make([]detect.CandidateSpan, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	var accepted []Span
	for _, cand := range sorted {
		if len(accepted) == 0 {
			accepted = append(accepted, fromCandidate(cand))
			continue
		}
		last := &accepted[len(accepted)-1]

		// Strict overlap only. Adjacent spans (cand.Start == last.End)
		// stay separate: back-to-back distinct entities were never
		// flagged as one by any detector, so joining them would invent
		// a span nobody proposed.
		if cand.Start >= last.End {
			accepted = append(accepted, fromCandidate(cand))
			continue
		}

		merge(last, cand)
	}

	span.SetAttributes(
		attribute.Int("consolidate.candidates", len(candidates)),
		attribute.Int("consolidate.spans", len(accepted)),
	)
	return accepted
}

// fromCandidate starts a new accepted span from a single candidate.
func fromCandidate(c detect.CandidateSpan) Span {
	return Span{
		Text:       c.Text,
		Kind:       c.Kind,
		Confidence: c.Confidence,
		Start:      c.Start,
		End:        c.End,
		TextStart:  c.Start,
		Page:       c.Page,
		Source:     c.Source,
		Verified:   c.Verified,
		Sources:    map[detect.Source]bool{c.Source: true},
	}
}

// merge folds an overlapping candidate into the accepted span. The winner's
// attributes are kept; the range becomes the union of both ranges and the
// contributing source set accumulates either way.
func merge(accepted *Span, cand detect.CandidateSpan) {
	if candidateWins(accepted, cand) {
		accepted.Text = cand.Text
		accepted.Kind = cand.Kind
		accepted.Confidence = cand.Confidence
		accepted.Source = cand.Source
		accepted.Verified = cand.Verified
		accepted.TextStart = cand.Start
	}
	if cand.Start < accepted.Start {
		accepted.Start = cand.Start
	}
	if cand.End > accepted.End {
		accepted.End = cand.End
	}
	accepted.Sources[cand.Source] = true
}

// candidateWins applies the tie-break rules in strict order:
//  1. if exactly one of the two is verified, the verified one wins
//  2. else the higher confidence wins
//  3. else the higher source priority wins; full ties keep the
//     first-seen record
func candidateWins(accepted *Span, cand detect.CandidateSpan) bool {
	if accepted.Verified != cand.Verified {
		return cand.Verified
	}
	if accepted.Confidence != cand.Confidence {
		return cand.Confidence > accepted.Confidence
	}
	return cand.Source.Priority() > accepted.Source.Priority()
}
