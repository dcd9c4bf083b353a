// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/RamanKey/internal/config"
	"github.com/ChrisMcGann/RamanKey/internal/logger"
)

var (
	// Global flags
	configFile string
	logLevel   string
	dbPath     string

	// Loaded in PersistentPreRunE
	cfg config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ramankey",
	Short: "RamanKey - Raman spectrum identification tool",
	Long: `RamanKey builds reference libraries of Raman spectra and identifies unknown
spectra against them.

Supports:
- RRUFF-style library import into SQLite
- Background subtraction (ALS, polynomial, spline, moving average, linear)
- Peak detection
- Library search (correlation, multi-window, mineral-vibration, peak, DTW, combined)`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	// Ctrl-C cancels a running search
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer func() { _ = log.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file (defaults are used if not specified)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Reference library database (overrides database.path)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(peaksCmd)
}

// setup loads the configuration and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	l, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	log = l
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), l))
	return nil
}

// splitList splits a comma-separated flag value, dropping empty items
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePositions parses a comma-separated list of peak positions
func parsePositions(s string) ([]float64, error) {
	var out []float64
	for _, part := range splitList(s) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid peak position '%s': %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
