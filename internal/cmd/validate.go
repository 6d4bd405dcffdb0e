package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veilhq/veil/internal/detect"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a recognizer pattern file",
	Long:  "Parses a recognizer YAML file and compiles every regex, reporting errors without applying anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "validate")
		defer span.End()

		var recognizers []detect.RecognizerConfig
		if validateFile == "" {
			// No file given: validate the embedded defaults.
			defaults, err := detect.DefaultRecognizers()
			if err != nil {
				return fmt.Errorf("loading embedded recognizers: %w", err)
			}
			recognizers = defaults
		} else {
			rf, err := detect.LoadRecognizerFile(validateFile)
			if err != nil {
				log.Error().Err(err).Str("file", validateFile).Msg("Pattern validation failed")
				fmt.Fprintf(os.Stderr, "✗ Validation failed: %s\n", validateFile)
				return fmt.Errorf("validation failed: %w", err)
			}
			if rf == nil {
				return fmt.Errorf("pattern file not found: %s", validateFile)
			}
			recognizers = rf.Recognizers
		}

		compiled, err := detect.CompilePatterns(recognizers)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Pattern compilation failed\n")
			return fmt.Errorf("pattern compilation failed: %w", err)
		}

		target := validateFile
		if target == "" {
			target = "embedded defaults"
		}
		fmt.Printf("✓ Patterns valid: %s\n", target)
		fmt.Printf("  Recognizers: %d\n", len(recognizers))
		fmt.Printf("  Compiled patterns: %d\n", len(compiled))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "pattern file to validate (default: embedded defaults)")
}
