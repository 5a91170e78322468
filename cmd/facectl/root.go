package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-face-verifier/internal/analyzer"
	"go-face-verifier/internal/config"
	"go-face-verifier/internal/container"
	"go-face-verifier/internal/logger"
)

// Version is the application version.
const Version = "1.0.0"

var (
	cfg       *config.Config
	logLevel  string
	method    string
	threshold float64
)

var rootCmd = &cobra.Command{
	Use:           "facectl",
	Short:         "Verify that a portrait and an ID document show the same face",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.UseText(os.Stderr)
		var err error
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.SetLevel(cfg.LogLevel)
		return nil
	},
}

// Execute runs the root command with a context cancelled by Ctrl+C.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default: LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&method, "method", "", "comparison method: ensemble, histogram, ssim or features")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", -1, "match threshold in [0, 1] (default: MATCH_THRESHOLD)")

	rootCmd.AddCommand(detectCmd, extractCmd, compareCmd, batchCmd, reconcileCmd)
}

// openContainer builds the pipeline. Local paths are accepted as image
// locations.
func openContainer(enableOCR bool) (*container.Container, error) {
	return container.NewContainer(cfg, container.Options{AllowLocalFiles: true, EnableOCR: enableOCR})
}

// comparisonOptions applies the --method and --threshold flags to the
// configured defaults.
func comparisonOptions(base analyzer.ComparisonOptions) analyzer.ComparisonOptions {
	if method != "" {
		base = base.WithMethod(method)
	}
	if threshold >= 0 {
		base = base.WithThreshold(threshold)
	}
	return base
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
