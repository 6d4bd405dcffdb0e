package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/region"
	"github.com/veilhq/veil/internal/runctx"
)

var (
	applyPlanFile string
	applyOutput   string
)

var applyCmd = &cobra.Command{
	Use:   "apply <document>",
	Short: "Apply a previously written masking plan to a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyPlanFile, "plan", "p", "", "plan file to apply (required)")
	applyCmd.Flags().StringVarP(&applyOutput, "output", "o", "", "output path for the masked document (default: <input>.masked)")
	_ = applyCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "apply")
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

	f, err := os.Open(applyPlanFile)
	if err != nil {
		return fmt.Errorf("opening plan file: %w", err)
	}
	directives, err := region.ParsePlan(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	surf, err := loadSurface(input)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	stats := eng.Apply(ctx, surf, directives)

	output := applyOutput
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

	kindCounts := make(map[string]int)
	for _, d := range directives {
		kindCounts[d.Kind]++
	}
	rec := &audit.Record{
		ID:            runID,
		Document:      input,
		Pages:         surf.PageCount(),
		SpansDetected: len(directives),
		RegionsMasked: stats.Masked,
		RegionsFailed: stats.Failed,
		KindCounts:    kindCounts,
	}
	if err := store.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving audit record: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Applied %s to %s -> %s\n", applyPlanFile, input, output)
	fmt.Fprintf(out, "  Directives: %d\n", len(directives))
	fmt.Fprintf(out, "  Regions:    %d masked, %d failed\n", stats.Masked, stats.Failed)
	return nil
}
