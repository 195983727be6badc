package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/config"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/report"
)

// RunReport builds the receipt-generation status report and writes it to the
// output file. Non-empty arguments override the configured range and output.
func RunReport(ctx context.Context, dateRange, startDate, endDate, outputFile string) error {
	cfg := config.Load()
	if dateRange != "" {
		cfg.DateRange = dateRange
	}
	if startDate != "" {
		cfg.CustomStartDate = startDate
	}
	if endDate != "" {
		cfg.CustomEndDate = endDate
	}
	if outputFile != "" {
		cfg.ReportOutputFile = outputFile
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("building report",
		slog.String("date_range", cfg.DateRange),
		slog.String("output_file", cfg.ReportOutputFile),
	)
	defer closeContainer(container, logger)

	result, err := report.New(container).Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	fmt.Println(result.Text)
	return nil
}
