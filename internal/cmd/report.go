package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/config"
)

var (
	reportDocument string
	reportLimit    int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recent masking runs from the audit store",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDocument, "document", "", "only include runs for this document")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "maximum number of runs to include")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	ctx, span := tracer.Start(ctx, "report")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer store.Close()

	runs, err := store.List(ctx, reportDocument, reportLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	var totalSpans, totalMasked, totalFailed int
	kindTotals := make(map[string]int)
	tampered := 0
	for i := range runs {
		rec := &runs[i]
		totalSpans += rec.SpansDetected
		totalMasked += rec.RegionsMasked
		totalFailed += rec.RegionsFailed
		for kind, n := range rec.KindCounts {
			kindTotals[kind] += n
		}
		if ok, err := store.Verify(rec); err != nil || !ok {
			tampered++
		}
	}

	fmt.Fprintf(out, "Masking summary, last %d runs\n", len(runs))
	fmt.Fprintf(out, "  Spans detected:  %d\n", totalSpans)
	fmt.Fprintf(out, "  Regions masked:  %d\n", totalMasked)
	fmt.Fprintf(out, "  Regions failed:  %d\n", totalFailed)
	if tampered > 0 {
		fmt.Fprintf(out, "  ⚠ Signature check failed on %d record(s)\n", tampered)
	}

	if len(kindTotals) > 0 {
		kinds := make([]string, 0, len(kindTotals))
		for kind := range kindTotals {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		fmt.Fprintln(out, "  By kind:")
		for _, kind := range kinds {
			fmt.Fprintf(out, "    %-16s %d\n", kind, kindTotals[kind])
		}
	}

	fmt.Fprintln(out, "  Recent runs:")
	for i := range runs {
		rec := &runs[i]
		fmt.Fprintf(out, "    %s  %s  %d/%d masked  %s\n",
			rec.Timestamp.Format(time.RFC3339), rec.ID[:8],
			rec.RegionsMasked, rec.RegionsMasked+rec.RegionsFailed, rec.Document)
	}
	return nil
}
