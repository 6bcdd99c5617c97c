// Command processor converts a demurrage control spreadsheet into CSV
// reports without running the web server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"demcli/internal/analytics"
	"demcli/internal/config"
	"demcli/internal/dataprocessing"
	"demcli/internal/exporter"
	"demcli/internal/infrastructure"
	"demcli/pkg/contracts/domain"
)

func main() {
	inFile := flag.String("in", "", "input .xlsx workbook (required)")
	outDir := flag.String("out", "", "output directory for CSV reports (defaults to <data_dir>/reports)")
	asOf := flag.String("as-of", "", "reference day for demurrage computation, YYYY-MM-DD (defaults to today)")
	flag.Parse()

	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "usage: processor -in report.xlsx [-out dir] [-as-of YYYY-MM-DD]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if err := run(*inFile, *outDir, *asOf, cfg, logger); err != nil {
		logger.Error("Processing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(inFile, outDir, asOf string, cfg *config.Config, logger *slog.Logger) error {
	today := dataprocessing.TodayUTC(time.Now())
	if asOf != "" {
		parsed, err := time.Parse("2006-01-02", asOf)
		if err != nil {
			return fmt.Errorf("invalid -as-of value %q: %w", asOf, err)
		}
		today = parsed
	}

	if outDir == "" {
		outDir = filepath.Join(cfg.GetDataDir(), "reports")
	}

	logger.Info("Processing workbook",
		slog.String("input", inFile),
		slog.String("output_dir", outDir),
		slog.String("as_of", today.Format("2006-01-02")))

	rows, err := dataprocessing.ReadWorkbookFile(inFile, logger)
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}

	normalizer := dataprocessing.NewNormalizer(logger)
	result := normalizer.Normalize(rows, domain.DefaultRateTable(), today)

	logger.Info("Normalization complete",
		slog.Int("records", len(result.Records)),
		slog.Int("dropped", len(result.Dropped)),
		slog.Int("degraded", len(result.Degraded)))

	if len(result.Records) == 0 {
		return fmt.Errorf("workbook contains no usable records")
	}

	writer := exporter.NewCSVWriter(outDir, logger)
	if err := writer.WriteFullReport(result.Records, today); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	if len(result.Dropped) > 0 {
		if err := writer.WriteDropReport("dropped.csv", result.Dropped); err != nil {
			return fmt.Errorf("write drop report: %w", err)
		}
	}

	kpis := analytics.ComputeKPIs(result.Records, today)
	fmt.Printf("Containers:        %d\n", len(result.Records))
	fmt.Printf("With demurrage:    %d\n", kpis.WithDemurrage)
	fmt.Printf("Returned late:     %d\n", kpis.ReturnedLate)
	fmt.Printf("At risk (15d):     %d\n", kpis.AtRisk15)
	fmt.Printf("Attention (30d):   %d\n", kpis.Attention30)
	fmt.Printf("Returned on time:  %d\n", kpis.ReturnedOnTime)
	fmt.Printf("Total cost:        %.2f\n", kpis.TotalCost)

	return nil
}
