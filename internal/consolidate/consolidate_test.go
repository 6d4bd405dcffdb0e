package consolidate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilhq/veil/internal/detect"
)

func cand(text, kind string, conf float64, start, end int, src detect.Source) detect.CandidateSpan {
	return detect.CandidateSpan{
		Text: text, Kind: kind, Confidence: conf,
		Start: start, End: end, Source: src,
	}
}

// assertNoOverlap checks the half-open range disjointness invariant.
func assertNoOverlap(t *testing.T, spans []Span) {
	t.Helper()
	for i := 1; i < len(spans); i++ {
		assert.GreaterOrEqual(t, spans[i].Start, spans[i-1].End,
			"spans %d and %d overlap", i-1, i)
	}
}

func TestPage_Empty(t *testing.T) {
	assert.Empty(t, Page(context.Background(), nil))
}

func TestPage_DisjointPassThrough(t *testing.T) {
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("a@x.io", detect.KindEmail, 0.9, 10, 16, detect.SourcePattern),
		cand("Jane", detect.KindPerson, 0.8, 20, 24, detect.SourceNER),
	})
	require.Len(t, spans, 2)
	assert.Equal(t, "a@x.io", spans[0].Text)
	assert.Equal(t, "Jane", spans[1].Text)
	assertNoOverlap(t, spans)
}

func TestPage_HigherConfidenceWins(t *testing.T) {
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("Jane", detect.KindPerson, 0.6, 0, 4, detect.SourceNER),
		cand("Jane Smith", detect.KindPerson, 0.95, 0, 10, detect.SourceVerifier),
	})
	require.Len(t, spans, 1)
	sp := spans[0]
	assert.Equal(t, "Jane Smith", sp.Text)
	assert.Equal(t, 0.95, sp.Confidence)
	assert.Equal(t, detect.SourceVerifier, sp.Source)
	// Range is the union even when the winner already covers it.
	assert.Equal(t, 0, sp.Start)
	assert.Equal(t, 10, sp.End)
}

func TestPage_UnionRangeKeepsLoserExtent(t *testing.T) {
	// The shorter candidate wins on confidence but the longer loser's range
	// must not be truncated.
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("Jane Smith", detect.KindPerson, 0.5, 0, 10, detect.SourceVerifier),
		cand("Jane", detect.KindPerson, 0.9, 0, 4, detect.SourceNER),
	})
	require.Len(t, spans, 1)
	assert.Equal(t, "Jane", spans[0].Text)
	assert.Equal(t, 0.9, spans[0].Confidence)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 10, spans[0].End)
}

func TestPage_TextStartTracksWinner(t *testing.T) {
	// An asymmetric merge widens the range to the loser's start; the
	// winner's own match offset must survive so callers can tell which
	// occurrence of the winner text this span refers to.
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("Ms Jane", detect.KindPerson, 0.4, 0, 7, detect.SourceNER),
		cand("Jane", detect.KindPerson, 0.9, 3, 7, detect.SourcePattern),
	})
	require.Len(t, spans, 1)
	assert.Equal(t, "Jane", spans[0].Text)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 7, spans[0].End)
	assert.Equal(t, 3, spans[0].TextStart)
}

func TestPage_VerifiedBeatsConfidence(t *testing.T) {
	verified := cand("jane@x.io", detect.KindEmail, 0.6, 5, 14, detect.SourceVerifier)
	verified.Verified = true
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("jane@x.io", detect.KindEmail, 0.99, 5, 14, detect.SourcePattern),
		verified,
	})
	require.Len(t, spans, 1)
	assert.Equal(t, detect.SourceVerifier, spans[0].Source)
	assert.True(t, spans[0].Verified)
	assert.Equal(t, 0.6, spans[0].Confidence)
}

func TestPage_SourcePriorityBreaksConfidenceTie(t *testing.T) {
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("555-0100", detect.KindPhone, 0.7, 0, 8, detect.SourcePattern),
		cand("555-0100", detect.KindPhone, 0.7, 0, 8, detect.SourceNER),
	})
	require.Len(t, spans, 1)
	assert.Equal(t, detect.SourceNER, spans[0].Source)
}

func TestPage_FullTieKeepsFirstSeen(t *testing.T) {
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("first", detect.KindPerson, 0.7, 0, 5, detect.SourceNER),
		cand("other", detect.KindPerson, 0.7, 0, 5, detect.SourceNER),
	})
	require.Len(t, spans, 1)
	assert.Equal(t, "first", spans[0].Text)
}

func TestPage_AdjacentSpansStaySeparate(t *testing.T) {
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("Jane", detect.KindPerson, 0.9, 0, 4, detect.SourceNER),
		cand("Smith", detect.KindPerson, 0.9, 4, 9, detect.SourceNER),
	})
	require.Len(t, spans, 2)
	assertNoOverlap(t, spans)
}

func TestPage_TransitiveOverlapChain(t *testing.T) {
	// a overlaps b, b overlaps c; all three collapse into one span covering
	// the full union.
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("a", detect.KindPerson, 0.5, 0, 6, detect.SourceNER),
		cand("b", detect.KindPerson, 0.9, 5, 12, detect.SourcePattern),
		cand("c", detect.KindPerson, 0.6, 11, 20, detect.SourceVerifier),
	})
	require.Len(t, spans, 1)
	assert.Equal(t, "b", spans[0].Text)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 20, spans[0].End)
	assert.Equal(t, map[detect.Source]bool{
		detect.SourceNER:      true,
		detect.SourcePattern:  true,
		detect.SourceVerifier: true,
	}, spans[0].Sources)
}

func TestPage_UnsortedInput(t *testing.T) {
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("late", detect.KindPerson, 0.8, 30, 34, detect.SourceNER),
		cand("early", detect.KindPerson, 0.8, 0, 5, detect.SourceNER),
		cand("mid", detect.KindPerson, 0.8, 10, 13, detect.SourceNER),
	})
	require.Len(t, spans, 3)
	assert.Equal(t, "early", spans[0].Text)
	assert.Equal(t, "mid", spans[1].Text)
	assert.Equal(t, "late", spans[2].Text)
	assertNoOverlap(t, spans)
}

func TestPage_SourcesAccumulateWhenLoserMerges(t *testing.T) {
	spans := Page(context.Background(), []detect.CandidateSpan{
		cand("Jane Smith", detect.KindPerson, 0.95, 0, 10, detect.SourceNER),
		cand("Jane", detect.KindPerson, 0.4, 0, 4, detect.SourceVerifier),
	})
	require.Len(t, spans, 1)
	assert.Equal(t, detect.SourceNER, spans[0].Source)
	assert.True(t, spans[0].Sources[detect.SourceNER])
	assert.True(t, spans[0].Sources[detect.SourceVerifier])
}
