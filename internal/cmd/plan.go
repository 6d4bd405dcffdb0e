package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/region"
	"github.com/veilhq/veil/internal/runctx"
)

var planOutput string

var planCmd = &cobra.Command{
	Use:   "plan <document>",
	Short: "Detect sensitive text and write a masking plan without applying it",
	Long: `Runs detection, consolidation, and geometry lookup, then writes the
resulting masking directives in the line-oriented plan format
(PII_TEXT:TYPE:STRATEGY:PAGE:X0:Y0:X1:Y1). Feed the plan to "veil apply",
editing it first if needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "plan file path (default: stdout)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "plan")
	defer span.End()

	input := args[0]
	ctx = runctx.SetRunID(ctx, uuid.NewString())
	ctx = runctx.SetDocument(ctx, input)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	surf, err := loadSurface(input)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	directives, stats, err := eng.Plan(ctx, surf)
	if err != nil {
		return fmt.Errorf("planning document: %w", err)
	}

	out := cmd.OutOrStdout()
	if planOutput != "" {
		f, err := os.Create(planOutput)
		if err != nil {
			return fmt.Errorf("creating plan file: %w", err)
		}
		defer f.Close()
		if err := region.WritePlan(f, directives); err != nil {
			return fmt.Errorf("writing plan: %w", err)
		}
		fmt.Fprintf(out, "✓ Plan written: %s (%d directives, %d pages, %d not located)\n",
			planOutput, len(directives), stats.Pages, stats.LocateMisses)
		return nil
	}
	return region.WritePlan(out, directives)
}
