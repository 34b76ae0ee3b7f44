package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgpkg "github.com/KaramelBytes/healthlens-cli/internal/config"
	"github.com/KaramelBytes/healthlens-cli/internal/logging"
	"github.com/KaramelBytes/healthlens-cli/internal/records"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	debug     bool
	logFormat string
	// Source flags (override config if set)
	flagDelimiter string
	flagSheet     string
	flagTable     string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "healthlens",
	Short: "healthlens: rank, join, aggregate and correlate city health metrics",
	Long: `healthlens loads a public-health survey dataset (one row per metric, city and period)
and answers comparative questions about it: top and bottom cities per metric,
state averages against a national baseline, and correlations between metrics.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.healthlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text | json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSheet, "sheet", "", "XLSX: sheet name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagTable, "table", "", "SQLite: table name (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so commands still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("log-format") && logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if f.Changed("delimiter") {
		cfg.Delimiter = flagDelimiter
	}
	if f.Changed("sheet") {
		cfg.XLSXSheet = flagSheet
	}
	if f.Changed("table") {
		cfg.SQLiteTable = flagTable
	}
	logger = logging.New(debug, cfg.LogFormat)
}

// loadStore reads a dataset file with the configured source options.
func loadStore(ctx context.Context, path string) (*records.Store, error) {
	delim, err := cfgpkg.Delimiter(cfg.Delimiter)
	if err != nil {
		return nil, err
	}
	dec, err := cfgpkg.Separator(cfg.DecimalSeparator)
	if err != nil {
		return nil, fmt.Errorf("decimal_separator: %w", err)
	}
	thou, err := cfgpkg.Separator(cfg.ThousandsSeparator)
	if err != nil {
		return nil, fmt.Errorf("thousands_separator: %w", err)
	}
	src, err := records.SourceForPath(path, records.SourceOptions{
		Delimiter: delim,
		Sheet:     cfg.XLSXSheet,
		Table:     cfg.SQLiteTable,
	})
	if err != nil {
		return nil, err
	}
	start := time.Now()
	s, err := records.Load(ctx, src, records.NumberFormat{DecimalSeparator: dec, ThousandsSeparator: thou})
	if err != nil {
		return nil, err
	}
	logger.WithComponent("records").LogLoad(src.Name(), s.Len(), s.DroppedColumns(), time.Since(start))
	return s, nil
}
