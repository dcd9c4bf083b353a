package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
	"github.com/ChrisMcGann/RamanKey/pkg/peaks"
	"github.com/ChrisMcGann/RamanKey/pkg/reader/rruff"
	"github.com/ChrisMcGann/RamanKey/pkg/store/sqlite"
)

var (
	// Flags for import command
	description string
	skipPeaks   bool
)

func init() {
	importCmd.Flags().StringVar(&description, "description", "", "Library description written to the header")
	importCmd.Flags().BoolVar(&skipPeaks, "no-peaks", false, "Do not detect peaks for records that carry none")
}

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import RRUFF-style spectrum files into a reference library",
	Long: `Import one or more RRUFF-style files ("##KEY=VALUE" headers followed by
"x, y" data) into the SQLite reference library. Metadata keys are normalized
and peaks are detected at import time.

Examples:
  # Import a directory of RRUFF files
  ramankey import --db minerals.db rruff/*.txt

  # Import with a description
  ramankey import --db minerals.db --description "RRUFF excellent oriented" rruff/*.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer store.Close()

	if description != "" {
		if err := store.SetDescription(description); err != nil {
			return err
		}
	}

	peakParams := cfg.PeakParams()
	count := 0
	skipped := 0

	for _, path := range args {
		n, s, err := importFile(store, path, peakParams)
		if err != nil {
			return err
		}
		count += n
		skipped += s
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Imported: %d records\n", count)
	if skipped > 0 {
		fmt.Printf("Skipped: %d records (validation errors)\n", skipped)
	}
	fmt.Printf("Library: %s\n", cfg.Database.Path)

	return nil
}

// importFile reads every record of one file into the store
func importFile(store *sqlite.Store, path string, peakParams peaks.Params) (count, skipped int, err error) {
	inFile, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	reader := rruff.NewReader(inFile, stem)

	for reader.Next() {
		rec := reader.Record()

		// Validate spectrum
		if err := rec.Spectrum().Validate(); err != nil {
			log.Warn("skipping invalid record", zap.String("file", path), zap.String("record", rec.Name), zap.Error(err))
			skipped++
			continue
		}

		if len(rec.Peaks) == 0 && !skipPeaks {
			rec.Peaks = detectPeaks(rec, peakParams)
		}

		if err := store.Put(rec); err != nil {
			return count, skipped, fmt.Errorf("failed to write record %s: %w", rec.Name, err)
		}

		count++
		if count%1000 == 0 {
			fmt.Printf("Processed %d records...\n", count)
		}
	}

	if err := reader.Err(); err != nil {
		return count, skipped, fmt.Errorf("error reading %s: %w", path, err)
	}
	return count, skipped, nil
}

// detectPeaks returns the record's peak positions on its sorted axis
func detectPeaks(rec *core.Record, p peaks.Params) []float64 {
	spec := rec.Spectrum().Sorted()
	return peaks.Positions(spec, peaks.DetectRelative(spec.Intensities, p))
}
