package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"redact", StrategyRedact, false},
		{"mask", StrategyMask, false},
		{"pseudo", StrategyPseudo, false},
		{"pseudonymize", StrategyPseudo, false},
		{"REDACT", StrategyRedact, false},
		{"  mask  ", StrategyMask, false},
		{"shred", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrategy_RoundTrip(t *testing.T) {
	for _, s := range []Strategy{StrategyPseudo, StrategyMask, StrategyRedact} {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestStrategy_PriorityOrder(t *testing.T) {
	assert.Greater(t, StrategyRedact.Priority(), StrategyMask.Priority())
	assert.Greater(t, StrategyMask.Priority(), StrategyPseudo.Priority())
}

func TestRect_Overlaps(t *testing.T) {
	a := Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"identical", Rect{0, 0, 10, 10}, true},
		{"contained", Rect{2, 2, 5, 5}, true},
		{"partial", Rect{8, 8, 15, 15}, true},
		{"disjoint right", Rect{11, 0, 20, 10}, false},
		{"disjoint below", Rect{0, 11, 10, 20}, false},
		{"touching edge", Rect{10, 0, 20, 10}, true},
		{"overlap x only", Rect{5, 20, 15, 30}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(a), "overlap must be symmetric")
		})
	}
}

func TestRect_Union(t *testing.T) {
	a := Rect{X0: 2, Y0: 3, X1: 10, Y1: 8}
	b := Rect{X0: 0, Y0: 5, X1: 7, Y1: 12}
	assert.Equal(t, Rect{X0: 0, Y0: 3, X1: 10, Y1: 12}, a.Union(b))
	assert.Equal(t, a.Union(b), b.Union(a))
}

func TestRegion_EffectiveStrategy(t *testing.T) {
	tests := []struct {
		name       string
		strategies []Strategy
		want       Strategy
	}{
		{"mask and redact resolves to redact", []Strategy{StrategyMask, StrategyRedact}, StrategyRedact},
		{"pseudo and mask resolves to mask", []Strategy{StrategyPseudo, StrategyMask}, StrategyMask},
		{"redact wins regardless of count", []Strategy{StrategyPseudo, StrategyPseudo, StrategyRedact, StrategyPseudo}, StrategyRedact},
		{"single pseudo", []Strategy{StrategyPseudo}, StrategyPseudo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Region
			for _, s := range tt.strategies {
				r.Directives = append(r.Directives, Directive{Strategy: s})
			}
			assert.Equal(t, tt.want, r.EffectiveStrategy())
		})
	}
}

func TestRegion_LongestText(t *testing.T) {
	r := Region{Directives: []Directive{
		{Text: "short"},
		{Text: "the longest one here"},
		{Text: "mid-size"},
	}}
	assert.Equal(t, "the longest one here", r.LongestText())
}
