package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/config"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/regenerate"
)

// RunRegenerateReceipts regenerates the PDFs of notified single receipts in
// the given date window whose amounts were stored without a decimal point.
// Empty from/to fall back to the configured window.
func RunRegenerateReceipts(ctx context.Context, from, to string) error {
	container, logger := regenerateContainer(from, to)
	defer closeContainer(container, logger)

	summary, err := regenerate.New(container).Receipts(ctx)
	if err != nil {
		return fmt.Errorf("failed to regenerate receipts: %w", err)
	}

	fmt.Printf("scanned %d, matched %d, regenerated %d, failed %d\n",
		summary.Scanned, summary.Matched, summary.Succeeded, summary.Failed)
	return nil
}

// RunRegenerateCartReceipts is the cart variant of RunRegenerateReceipts.
func RunRegenerateCartReceipts(ctx context.Context, from, to string) error {
	container, logger := regenerateContainer(from, to)
	defer closeContainer(container, logger)

	summary, err := regenerate.New(container).Carts(ctx)
	if err != nil {
		return fmt.Errorf("failed to regenerate cart receipts: %w", err)
	}

	fmt.Printf("scanned %d, matched %d, regenerated %d, failed %d\n",
		summary.Scanned, summary.Matched, summary.Succeeded, summary.Failed)
	return nil
}

func regenerateContainer(from, to string) (*app.Container, *slog.Logger) {
	cfg := config.Load()
	if from != "" {
		cfg.RegenerateFrom = from
	}
	if to != "" {
		cfg.RegenerateTo = to
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting regeneration",
		slog.String("from", cfg.RegenerateFrom),
		slog.String("to", cfg.RegenerateTo),
		slog.Duration("throttle", cfg.RegenerateThrottle),
	)
	return container, logger
}
