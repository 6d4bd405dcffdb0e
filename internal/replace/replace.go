// Package replace produces the literal replacement content for resolved
// regions: a fixed redaction marker, a length-matched character mask, or a
// consistent pseudo value drawn from the mapping cache.
package replace

import (
	"strings"
	"unicode/utf8"

	"github.com/veilhq/veil/internal/mapping"
	"github.com/veilhq/veil/internal/region"
)

// DefaultMarker is the replacement text for redacted regions, independent
// of the original length.
const DefaultMarker = "[REDACTED]"

// DefaultMaskChar fills masked regions.
const DefaultMaskChar = '*'

// LayoutFit shrinks replacement text that would overflow the rectangle the
// original occupied. It is cosmetic layout protection, not a security
// property, and must degrade gracefully rather than fail.
type LayoutFit interface {
	Fit(replacement string, originalLen int) string
}

// ProportionalFit abbreviates proportionally to the original length: the
// shorter the original, the more aggressively the replacement shrinks.
// Slack is how many characters of overflow are tolerated before fitting
// kicks in.
type ProportionalFit struct {
	Slack int
}

// Fit returns replacement unchanged when it roughly fits, otherwise falls
// back to the first word, truncated to the original length (minimum 3
// characters so the result stays readable).
func (p ProportionalFit) Fit(replacement string, originalLen int) string {
	if originalLen <= 0 || utf8.RuneCountInString(replacement) <= originalLen+p.Slack {
		return replacement
	}
	fields := strings.Fields(replacement)
	if len(fields) == 0 {
		return replacement
	}
	first := fields[0]
	if utf8.RuneCountInString(first) <= originalLen+p.Slack {
		return first
	}
	limit := originalLen
	if limit < 3 {
		limit = 3
	}
	runes := []rune(first)
	if limit > len(runes) {
		limit = len(runes)
	}
	return string(runes[:limit])
}

// Generator turns a resolved region into its replacement text.
type Generator struct {
	cache    *mapping.Cache
	marker   string
	maskChar rune
	fit      LayoutFit
}

// Option configures a Generator.
type Option func(*Generator)

// WithMarker overrides the fixed redaction marker.
func WithMarker(marker string) Option {
	return func(g *Generator) { g.marker = marker }
}

// WithMaskChar overrides the mask fill character.
func WithMaskChar(ch rune) Option {
	return func(g *Generator) { g.maskChar = ch }
}

// WithLayoutFit swaps the truncation policy.
func WithLayoutFit(fit LayoutFit) Option {
	return func(g *Generator) { g.fit = fit }
}

// NewGenerator creates a replacement generator backed by the given
// per-run mapping cache.
func NewGenerator(cache *mapping.Cache, opts ...Option) *Generator {
	g := &Generator{
		cache:    cache,
		marker:   DefaultMarker,
		maskChar: DefaultMaskChar,
		fit:      ProportionalFit{Slack: 2},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// For returns the replacement text for a region under its effective
// strategy. For pseudo regions the first directive (original insertion
// order) is the representative original value; an explicit replacement
// carried by a directive, when present, wins over a cache draw.
func (g *Generator) For(r region.Region) string {
	if len(r.Directives) == 0 {
		return ""
	}
	switch r.EffectiveStrategy() {
	case region.StrategyRedact:
		return g.marker
	case region.StrategyMask:
		return strings.Repeat(string(g.maskChar), utf8.RuneCountInString(r.LongestText()))
	case region.StrategyPseudo:
		rep := r.Directives[0]
		replacement := r.ExplicitReplacement()
		if replacement == "" {
			replacement = g.cache.LookupOrCreate(rep.Text, rep.Kind)
		}
		return g.fit.Fit(replacement, utf8.RuneCountInString(rep.Text))
	}
	return g.marker
}
