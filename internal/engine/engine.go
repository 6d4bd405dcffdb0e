// Package engine drives the consolidation-and-resolution pipeline over a
// document surface: detect, consolidate, locate, resolve regions, pick
// strategies, generate replacements, apply.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veilhq/veil/internal/consolidate"
	"github.com/veilhq/veil/internal/detect"
	veilotel "github.com/veilhq/veil/internal/otel"
	"github.com/veilhq/veil/internal/region"
	"github.com/veilhq/veil/internal/replace"
	"github.com/veilhq/veil/internal/runctx"
	"github.com/veilhq/veil/internal/surface"
)

var tracer = veilotel.Tracer("github.com/veilhq/veil/internal/engine")

// Stats accumulates per-document counters. Apply failures and locate
// misses are recorded here rather than aborting the document.
type Stats struct {
	Pages            int
	Candidates       int
	Spans            int
	Regions          int
	Masked           int
	Failed           int
	LocateMisses     int
	DetectorFailures int
	KindCounts       map[string]int
}

func newStats() *Stats {
	return &Stats{KindCounts: make(map[string]int)}
}

// StrategyFunc maps a PII kind to the masking strategy requested for it.
type StrategyFunc func(kind string) region.Strategy

// Engine wires detectors, the shared per-run mapping cache, and the
// replacement generator. One Engine instance serves one document run; the
// mapping cache is shared across all pages of that document and nothing
// else.
type Engine struct {
	detectors   []detect.Detector
	generator   *replace.Generator
	strategyFor StrategyFunc
}

// New creates an engine. strategyFor decides the requested strategy per
// kind; nil means every kind gets pseudo replacement.
func New(detectors []detect.Detector, generator *replace.Generator, strategyFor StrategyFunc) *Engine {
	if strategyFor == nil {
		strategyFor = func(string) region.Strategy { return region.StrategyPseudo }
	}
	return &Engine{
		detectors:   detectors,
		generator:   generator,
		strategyFor: strategyFor,
	}
}

// Run processes a whole document page by page: pages are independent units
// of work with no shared state except the mapping cache inside the
// generator. Returns per-document stats; only surface-level failures (a
// page that cannot be read) are fatal.
func (e *Engine) Run(ctx context.Context, surf surface.Surface) (*Stats, error) {
	ctx, span := tracer.Start(ctx, "engine.run",
		trace.WithAttributes(attribute.Int("document.pages", surf.PageCount())))
	defer span.End()

	stats := newStats()
	for page := 0; page < surf.PageCount(); page++ {
		directives, err := e.planPage(ctx, surf, page, stats)
		if err != nil {
			return stats, err
		}
		e.applyDirectives(ctx, surf, directives, stats)
		stats.Pages++
	}

	span.SetAttributes(
		attribute.Int("engine.spans", stats.Spans),
		attribute.Int("engine.masked", stats.Masked),
		attribute.Int("engine.failed", stats.Failed),
	)
	return stats, nil
}

// Plan runs detection, consolidation, and geometry lookup for the whole
// document without touching it, returning the masking directives that a
// later Apply would execute.
func (e *Engine) Plan(ctx context.Context, surf surface.Surface) ([]region.Directive, *Stats, error) {
	ctx, span := tracer.Start(ctx, "engine.plan")
	defer span.End()

	stats := newStats()
	var all []region.Directive
	for page := 0; page < surf.PageCount(); page++ {
		directives, err := e.planPage(ctx, surf, page, stats)
		if err != nil {
			return nil, stats, err
		}
		all = append(all, directives...)
		stats.Pages++
	}
	return all, stats, nil
}

// Apply resolves directives into disjoint regions and masks them on the
// surface. Directives may cover multiple pages; merging only ever happens
// within a page. Safe to call with an empty directive list.
func (e *Engine) Apply(ctx context.Context, surf surface.Surface, directives []region.Directive) *Stats {
	ctx, span := tracer.Start(ctx, "engine.apply",
		trace.WithAttributes(attribute.Int("engine.directives", len(directives))))
	defer span.End()

	stats := newStats()
	e.applyDirectives(ctx, surf, directives, stats)
	return stats
}

// planPage produces the masking directives for one page. Consolidation
// only runs once the full candidate set for the page has arrived; there is
// no partial consolidation.
func (e *Engine) planPage(ctx context.Context, surf surface.Surface, page int, stats *Stats) ([]region.Directive, error) {
	ctx, span := tracer.Start(ctx, "engine.plan_page",
		trace.WithAttributes(attribute.Int("page", page)))
	defer span.End()

	text, err := surf.PageText(page)
	if err != nil {
		return nil, fmt.Errorf("reading page %d: %w", page, err)
	}

	// Detector failures are isolated per source: a failing detector
	// contributes zero candidates and the page continues.
	var candidates []detect.CandidateSpan
	for _, d := range e.detectors {
		cands, err := d.Detect(ctx, page, text)
		if err != nil {
			stats.DetectorFailures++
			log.Warn().
				Err(err).
				Stringer("source", d.Source()).
				Int("page", page).
				Str("run_id", runctx.RunID(ctx)).
				Func(veilotel.LogTraceFields(ctx)).
				Msg("Detector failed, treating as zero candidates")
			continue
		}
		candidates = append(candidates, cands...)
	}
	stats.Candidates += len(candidates)

	spans := consolidate.Page(ctx, candidates)
	stats.Spans += len(spans)

	var directives []region.Directive
	for _, s := range spans {
		stats.KindCounts[s.Kind]++
		rects, err := surf.Locate(page, s.Text)
		if err != nil || len(rects) == 0 {
			stats.LocateMisses++
			log.Warn().
				Err(err).
				Int("page", page).
				Str("kind", s.Kind).
				Str("run_id", runctx.RunID(ctx)).
				Msg("Span text not found on rendered page, skipping")
			continue
		}
		// A value can occur several times on a page; each consolidated
		// span carries the offsets of one occurrence. Pick the rect with
		// the matching ordinal so repeated values don't all collapse onto
		// the first occurrence. The ordinal counts from the winning
		// candidate's own match start, not the merged union start, which
		// can sit before an earlier occurrence of the winner text.
		rect := rects[0]
		if ord := strings.Count(text[:s.TextStart], s.Text); ord < len(rects) {
			rect = rects[ord]
		}
		directives = append(directives, region.Directive{
			Text:     s.Text,
			Kind:     s.Kind,
			Strategy: e.strategyFor(s.Kind),
			Page:     page,
			Rect:     rect,
		})
	}
	return directives, nil
}

// applyDirectives resolves and masks one batch of directives, counting
// failures instead of aborting.
func (e *Engine) applyDirectives(ctx context.Context, surf surface.Surface, directives []region.Directive, stats *Stats) {
	if len(directives) == 0 {
		return
	}
	regions := region.Resolve(directives)
	stats.Regions += len(regions)

	for _, r := range regions {
		strategy := r.EffectiveStrategy()
		replacement := e.generator.For(r)
		if err := surf.Apply(r.Page, r.Rect, replacement, strategy); err != nil {
			stats.Failed++
			log.Warn().
				Err(err).
				Int("page", r.Page).
				Stringer("strategy", strategy).
				Str("run_id", runctx.RunID(ctx)).
				Msg("Masking a region failed, continuing with remaining regions")
			continue
		}
		stats.Masked++
	}
}
