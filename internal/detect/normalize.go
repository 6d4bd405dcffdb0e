package detect

import (
	"github.com/rs/zerolog/log"

	"github.com/veilhq/veil/internal/region"
)

// RawCandidate is the loosely-shaped record a detector integration hands to
// the normalizer. Pointer fields distinguish "absent" from zero values,
// since detector output shape varies per source.
type RawCandidate struct {
	Text       string
	Kind       string
	Confidence *float64
	Start      *int
	End        *int
	Page       int
	Source     Source
	Verified   bool
	Rect       *region.Rect
}

// defaultConfidence is assumed when a detector reports no confidence at all.
const defaultConfidence = 0.5

// Normalize converts a raw detector record into a canonical CandidateSpan.
// Records missing text or offsets, or with inverted offsets, are dropped
// with a warning. Normalize never panics and never returns an error; the
// second return value reports whether the record survived.
func Normalize(raw RawCandidate) (CandidateSpan, bool) {
	if raw.Text == "" {
		log.Warn().
			Stringer("source", raw.Source).
			Str("kind", raw.Kind).
			Msg("Dropping candidate without text")
		return CandidateSpan{}, false
	}
	if raw.Start == nil || raw.End == nil {
		log.Warn().
			Stringer("source", raw.Source).
			Str("kind", raw.Kind).
			Msg("Dropping candidate without offsets")
		return CandidateSpan{}, false
	}
	start, end := *raw.Start, *raw.End
	if start < 0 || end <= start {
		log.Warn().
			Stringer("source", raw.Source).
			Str("kind", raw.Kind).
			Int("start", start).
			Int("end", end).
			Msg("Dropping candidate with invalid offsets")
		return CandidateSpan{}, false
	}

	confidence := defaultConfidence
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return CandidateSpan{
		Text:       raw.Text,
		Kind:       raw.Kind,
		Confidence: confidence,
		Start:      start,
		End:        end,
		Page:       raw.Page,
		Source:     raw.Source,
		Verified:   raw.Verified,
		Rect:       raw.Rect,
	}, true
}
