package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_PriorityOrder(t *testing.T) {
	assert.Greater(t, SourceNER.Priority(), SourcePattern.Priority())
	assert.Greater(t, SourcePattern.Priority(), SourceVerifier.Priority())
	assert.Greater(t, SourceVerifier.Priority(), SourceUnknown.Priority())
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{in: "pattern_match", want: SourcePattern},
		{in: "pattern", want: SourcePattern},
		{in: "Statistical_NER", want: SourceNER},
		{in: "  llm_verifier ", want: SourceVerifier},
		{in: "psychic", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSource(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
		// Round-trip through the wire name.
		back, err := ParseSource(got.String())
		require.NoError(t, err)
		assert.Equal(t, tt.want, back)
	}
}

func TestFunc_AdaptsDetector(t *testing.T) {
	var d Detector = Func{
		Src: SourceNER,
		Fn: func(ctx context.Context, page int, text string) ([]CandidateSpan, error) {
			return []CandidateSpan{{Text: text, Kind: KindPerson, Page: page, Source: SourceNER}}, nil
		},
	}
	assert.Equal(t, SourceNER, d.Source())
	spans, err := d.Detect(context.Background(), 4, "Jane Smith")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "Jane Smith", spans[0].Text)
	assert.Equal(t, 4, spans[0].Page)
}
