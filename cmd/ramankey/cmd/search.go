package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/RamanKey/pkg/background"
	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/filter"
	"github.com/ChrisMcGann/RamanKey/pkg/reader/xy"
	"github.com/ChrisMcGann/RamanKey/pkg/score"
	"github.com/ChrisMcGann/RamanKey/pkg/search"
	"github.com/ChrisMcGann/RamanKey/pkg/session"
	"github.com/ChrisMcGann/RamanKey/pkg/store/sqlite"
)

var (
	// Flags for search command
	queryFile        string
	algorithm        string
	maxResults       int
	threshold        float64
	peakPositions    string
	peakTolerance    float64
	exhaustive       bool
	subtractMethod   string
	chemicalFamily   string
	classification   string
	onlyElements     string
	requiredElements string
	excludedElements string
	showProgress     bool
	showMetrics      bool
)

func init() {
	searchCmd.Flags().StringVarP(&queryFile, "in", "i", "", "Query spectrum file, two columns (required)")
	searchCmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "Algorithm: correlation, multi-window, mineral-vibration, peak, dtw, combined")
	searchCmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "Maximum number of matches")
	searchCmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum score (0-1)")
	searchCmd.Flags().StringVar(&peakPositions, "peaks", "", "Comma-separated query peak positions in cm-1 (e.g., '1085,712')")
	searchCmd.Flags().Float64Var(&peakTolerance, "tolerance", 0, "Peak matching tolerance in cm-1")
	searchCmd.Flags().BoolVar(&exhaustive, "exhaustive", false, "Score every candidate (disables early termination)")
	searchCmd.Flags().StringVar(&subtractMethod, "background", "", "Subtract a background before searching: als, linear, polynomial, spline, moving-average")
	searchCmd.Flags().StringVar(&chemicalFamily, "family", "", "Chemical family substring filter")
	searchCmd.Flags().StringVar(&classification, "class", "", "Hey classification substring filter")
	searchCmd.Flags().StringVar(&onlyElements, "only-elements", "", "Comma-separated elements records may contain exclusively")
	searchCmd.Flags().StringVar(&requiredElements, "require-elements", "", "Comma-separated elements records must contain")
	searchCmd.Flags().StringVar(&excludedElements, "exclude-elements", "", "Comma-separated elements records must not contain")
	searchCmd.Flags().BoolVar(&showProgress, "progress", false, "Print search progress")
	searchCmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print search metrics in Prometheus text format")

	searchCmd.MarkFlagRequired("in")
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the reference library for a query spectrum",
	Long: `Score a query spectrum against every record of the reference library and
print the best matches.

Examples:
  # Correlation search
  ramankey search --db minerals.db --in unknown.txt

  # Combined search with known peaks, carbonates only
  ramankey search --db minerals.db --in unknown.txt -a combined --peaks 1085,712 --family carbonate

  # Subtract an ALS background first
  ramankey search --db minerals.db --in unknown.txt --background als`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	filters, err := searchFilters(cmd)
	if err != nil {
		return err
	}

	spec, err := xy.ReadFile(queryFile)
	if err != nil {
		return err
	}

	sess, err := session.New(spec)
	if err != nil {
		return fmt.Errorf("invalid query spectrum: %w", err)
	}
	if subtractMethod != "" {
		m, err := background.ParseMethod(subtractMethod)
		if err != nil {
			return err
		}
		params, err := cfg.BackgroundParamsFor(m)
		if err != nil {
			return err
		}
		if err := sess.SubtractBackground(params); err != nil {
			return fmt.Errorf("background subtraction failed: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer store.Close()

	candidates, err := store.Records()
	if err != nil {
		return err
	}

	opts := []search.Option{
		search.WithLogger(log),
		search.WithScoreConfig(cfg.ScoreConfig()),
	}
	reg := prometheus.NewRegistry()
	if showMetrics {
		opts = append(opts, search.WithMetrics(search.NewMetrics(reg)))
	}
	engine := search.NewEngine(opts...)

	var progress search.ProgressFunc
	if showProgress {
		progress = func(p search.Progress) {
			fmt.Printf("Scored %d/%d candidates, %d matches\n", p.Processed, p.Total, p.Matches)
		}
	}

	fmt.Printf("Searching %d records with %s...\n", len(candidates), filters.Algorithm)
	ctx := cmd.Context()
	results, err := engine.Search(ctx, sess.Query(), candidates, filters, progress)
	if err != nil {
		if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			return fmt.Errorf("search failed: %w", err)
		}
		log.Warn("search interrupted, showing partial results", zap.Error(err))
	}

	printResults(results)
	if showMetrics {
		fmt.Println()
		return writeMetrics(os.Stdout, reg)
	}
	return nil
}

// writeMetrics dumps every gathered metric family in text exposition format
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// searchFilters merges config defaults with command line flags
func searchFilters(cmd *cobra.Command) (search.Filters, error) {
	filters, err := cfg.SearchFilters()
	if err != nil {
		return search.Filters{}, err
	}

	if cmd.Flags().Changed("algorithm") {
		algo, err := score.ParseAlgorithm(algorithm)
		if err != nil {
			return search.Filters{}, err
		}
		filters.Algorithm = algo
	}
	if cmd.Flags().Changed("max-results") {
		filters.MaxResults = maxResults
	}
	if cmd.Flags().Changed("threshold") {
		filters.Threshold = threshold
	}
	if cmd.Flags().Changed("tolerance") {
		filters.PeakTolerance = peakTolerance
	}
	if cmd.Flags().Changed("exhaustive") {
		filters.Exhaustive = exhaustive
	}

	filters.PeakPositions, err = parsePositions(peakPositions)
	if err != nil {
		return search.Filters{}, err
	}

	md := &filter.Config{
		ChemicalFamily:   chemicalFamily,
		Classification:   classification,
		OnlyElements:     splitList(onlyElements),
		RequiredElements: splitList(requiredElements),
		ExcludedElements: splitList(excludedElements),
	}
	if !md.IsEmpty() {
		filters.Metadata = md
	}

	return filters, filters.Validate()
}

func printResults(results []core.MatchResult) {
	if len(results) == 0 {
		fmt.Printf("\nNo matches found\n")
		return
	}

	fmt.Printf("\n%-4s %-30s %-8s %s\n", "Rank", "Name", "Score", "Family")
	for i, r := range results {
		fmt.Printf("%-4d %-30s %-8.4f %s\n", i+1, r.Name, r.Score, r.Metadata.Get(core.KeyChemicalFamily))
		if len(r.Peaks) > 0 {
			fmt.Printf("     peaks: %s\n", formatPositions(r.Peaks))
		}
	}
}

func formatPositions(positions []float64) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("%.1f", p)
	}
	return strings.Join(parts, ", ")
}
