// Package region turns per-span masking directives into disjoint page
// regions and decides which masking strategy governs each one.
package region

import (
	"fmt"
	"strings"
)

// Strategy is a closed set of masking strategies. Higher values take
// precedence when directives inside one region disagree.
type Strategy uint8

// Masking strategies, in ascending priority order.
const (
	StrategyPseudo Strategy = iota + 1 // realistic fake replacement
	StrategyMask                       // length-preserving character mask
	StrategyRedact                     // destructive fixed marker
)

// Priority returns the precedence rank of the strategy. Redact outranks
// Mask outranks Pseudo: redaction is destructive and safety-dominant, so a
// single redact directive governs the whole physical area.
func (s Strategy) Priority() int { return int(s) }

// String returns the lowercase wire name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyPseudo:
		return "pseudo"
	case StrategyMask:
		return "mask"
	case StrategyRedact:
		return "redact"
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseStrategy converts a wire name into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pseudo", "pseudonymize":
		return StrategyPseudo, nil
	case "mask":
		return StrategyMask, nil
	case "redact":
		return StrategyRedact, nil
	}
	return 0, fmt.Errorf("unknown masking strategy %q", s)
}

// Rect is an axis-aligned rectangle in page space, x0 <= x1 and y0 <= y1.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Overlaps reports whether r and o intersect in both dimensions. The
// comparison is inclusive, so rectangles sharing only an edge or corner
// count as overlapping and will be merged by the resolver.
func (r Rect) Overlaps(o Rect) bool {
	return !(r.X1 < o.X0 || o.X1 < r.X0 || r.Y1 < o.Y0 || o.Y1 < r.Y0)
}

// Union returns the bounding box of r and o.
func (r Rect) Union(o Rect) Rect {
	u := r
	if o.X0 < u.X0 {
		u.X0 = o.X0
	}
	if o.Y0 < u.Y0 {
		u.Y0 = o.Y0
	}
	if o.X1 > u.X1 {
		u.X1 = o.X1
	}
	if o.Y1 > u.Y1 {
		u.Y1 = o.Y1
	}
	return u
}

// Directive is one requested masking operation tied to a rectangle.
type Directive struct {
	Text        string
	Kind        string
	Strategy    Strategy
	Page        int
	Rect        Rect
	Replacement string // optional explicit replacement text
}

// Region is a merged set of directives covering one disjoint rectangle.
// Directives keep their insertion order; the first one is the
// representative for pseudo replacement.
type Region struct {
	Rect       Rect
	Page       int
	Directives []Directive
}

// EffectiveStrategy returns the single strategy that governs the region:
// the highest-priority strategy present among its directives.
func (r Region) EffectiveStrategy() Strategy {
	var winner Strategy
	for _, d := range r.Directives {
		if d.Strategy.Priority() > winner.Priority() {
			winner = d.Strategy
		}
	}
	return winner
}

// LongestText returns the longest original text among the region's
// directives. The mask strategy sizes its character run from this so the
// mask never under-covers the longest original token.
func (r Region) LongestText() string {
	var longest string
	for _, d := range r.Directives {
		if len(d.Text) > len(longest) {
			longest = d.Text
		}
	}
	return longest
}

// ExplicitReplacement returns the first non-empty explicit replacement among
// the region's directives, or "".
func (r Region) ExplicitReplacement() string {
	for _, d := range r.Directives {
		if d.Replacement != "" {
			return d.Replacement
		}
	}
	return ""
}
