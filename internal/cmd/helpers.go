package cmd

import (
	"fmt"
	"os"

	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/detect"
	"github.com/veilhq/veil/internal/engine"
	"github.com/veilhq/veil/internal/mapping"
	"github.com/veilhq/veil/internal/replace"
	"github.com/veilhq/veil/internal/surface"
)

// verifierMinConfidence filters low-confidence LLM detections before they
// enter consolidation.
const verifierMinConfidence = 0.5

// buildDetectors assembles the detector set from config: always the
// pattern scanner, plus the LLM verifier when enabled. A statistical NER
// model is an external capability and is not constructed here.
func buildDetectors(cfg *config.Config) ([]detect.Detector, error) {
	var opts []detect.ScannerOption
	if cfg.PatternFile != "" {
		opts = append(opts, detect.WithPatternFile(cfg.PatternFile))
	}
	if cfg.MinScore > 0 {
		opts = append(opts, detect.WithMinScore(cfg.MinScore))
	}
	scanner, err := detect.NewScanner(opts...)
	if err != nil {
		return nil, fmt.Errorf("building pattern detector: %w", err)
	}

	detectors := []detect.Detector{scanner}
	if cfg.VerifierEnabled {
		detectors = append(detectors,
			detect.NewVerifier(cfg.OllamaBaseURL, cfg.VerifierModel, cfg.VerifierRPM, verifierMinConfidence))
	}
	return detectors, nil
}

// newEngine wires detectors, a fresh per-run mapping cache, and the
// replacement generator into an engine for one document run.
func newEngine(cfg *config.Config) (*engine.Engine, error) {
	detectors, err := buildDetectors(cfg)
	if err != nil {
		return nil, err
	}
	cache := mapping.NewCache()
	generator := replace.NewGenerator(cache,
		replace.WithMarker(cfg.RedactMarker),
		replace.WithMaskChar(cfg.MaskChar),
	)
	return engine.New(detectors, generator, cfg.StrategyFor), nil
}

// loadSurface opens a document as a text surface: a directory of .txt
// pages, or a single file with form-feed page breaks.
func loadSurface(path string) (*surface.TextSurface, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", path, err)
	}
	if info.IsDir() {
		return surface.LoadDir(path)
	}
	return surface.LoadFile(path)
}
