package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/RamanKey/pkg/background"
	"github.com/ChrisMcGann/RamanKey/pkg/reader/xy"
	"github.com/ChrisMcGann/RamanKey/pkg/session"
	xywriter "github.com/ChrisMcGann/RamanKey/pkg/writer/xy"
)

var (
	// Flags for baseline command
	baselineIn     string
	baselineOut    string
	baselineMethod string
)

func init() {
	baselineCmd.Flags().StringVarP(&baselineIn, "in", "i", "", "Input spectrum file (required)")
	baselineCmd.Flags().StringVarP(&baselineOut, "out", "o", "", "Output file for the corrected spectrum (required)")
	baselineCmd.Flags().StringVarP(&baselineMethod, "method", "m", "", "Method: als, linear, polynomial, spline, moving-average (default from config)")

	baselineCmd.MarkFlagRequired("in")
	baselineCmd.MarkFlagRequired("out")
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Subtract a background from a spectrum",
	Long: `Estimate a background for a two-column spectrum, subtract it and write the
corrected spectrum with the baseline as an extra column. Method parameters
come from the background section of the config file.

Examples:
  ramankey baseline --in raw.txt --out corrected.csv --method als`,
	RunE: runBaseline,
}

func runBaseline(cmd *cobra.Command, args []string) error {
	params, err := cfg.BackgroundParams()
	if err != nil {
		return err
	}
	if baselineMethod != "" {
		m, err := background.ParseMethod(baselineMethod)
		if err != nil {
			return err
		}
		if params, err = cfg.BackgroundParamsFor(m); err != nil {
			return err
		}
	}

	spec, err := xy.ReadFile(baselineIn)
	if err != nil {
		return err
	}

	sess, err := session.New(spec)
	if err != nil {
		return err
	}

	preview, err := sess.PreviewBackground(params)
	if err != nil {
		return fmt.Errorf("background estimation failed: %w", err)
	}
	if preview.Fallback != nil {
		log.Warn("background method fell back",
			zap.String("requested", string(params.Method())),
			zap.String("used", string(preview.Method)),
			zap.Error(preview.Fallback),
		)
	}
	baseline := preview.Baseline

	if err := sess.Commit(); err != nil {
		return err
	}

	out := sess.Current()
	if err := xywriter.WriteFile(baselineOut, out, xywriter.Column{Name: "baseline", Values: baseline}); err != nil {
		return err
	}

	fmt.Printf("Background: %s\n", preview.Method)
	fmt.Printf("Points: %d\n", out.Len())
	fmt.Printf("Output: %s\n", baselineOut)
	return nil
}
