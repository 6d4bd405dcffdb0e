package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/runctx"
)

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run <document>",
	Short: "Detect and mask sensitive text in a document",
	Long: `Runs the full pipeline on a document: detection, span consolidation,
region resolution, strategy selection, and replacement. The masked document
is written next to the input unless --output is given. Every run persists a
signed audit record.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output path for the masked document (default: <input>.masked)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "run")
	defer span.End()

	input := args[0]
	runID := uuid.NewString()
	ctx = runctx.SetRunID(ctx, runID)
	ctx = runctx.SetDocument(ctx, input)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultKey()

	surf, err := loadSurface(input)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", runID).
		Str("document", input).
		Int("pages", surf.PageCount()).
		Msg("Starting document run")

	stats, err := eng.Run(ctx, surf)
	if err != nil {
		return fmt.Errorf("processing document: %w", err)
	}

	output := runOutput
	if output == "" {
		output = input + ".masked"
	}
	if err := os.WriteFile(output, []byte(surf.Document()), 0o600); err != nil {
		return fmt.Errorf("writing masked document: %w", err)
	}

	store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer store.Close()

	rec := &audit.Record{
		ID:            runID,
		Document:      input,
		Pages:         stats.Pages,
		SpansDetected: stats.Spans,
		RegionsMasked: stats.Masked,
		RegionsFailed: stats.Failed,
		LocateMisses:  stats.LocateMisses,
		KindCounts:    stats.KindCounts,
	}
	if err := store.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving audit record: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Masked %s -> %s\n", input, output)
	fmt.Fprintf(out, "  Run:     %s\n", runID)
	fmt.Fprintf(out, "  Pages:   %d\n", stats.Pages)
	fmt.Fprintf(out, "  Spans:   %d\n", stats.Spans)
	fmt.Fprintf(out, "  Regions: %d masked, %d failed, %d not located\n",
		stats.Masked, stats.Failed, stats.LocateMisses)
	return nil
}
