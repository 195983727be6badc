// Package regenerate implements the bulk PDF regeneration tool: it scans
// notified receipts inside a date window for amounts stored without a decimal
// point and asks the helpdesk to regenerate each affected PDF. Requests are
// throttled so a large window does not hammer the helpdesk API.
package regenerate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/helpdesk"
)

const dateLayout = "2006-01-02"

// Summary reports what a run did.
type Summary struct {
	Scanned   int
	Matched   int
	Succeeded int
	Failed    int
}

// Runner drives one regeneration run against the configured window.
type Runner struct {
	container *app.Container
	logger    *slog.Logger
	limiter   *rate.Limiter
}

// New creates a runner throttled at one helpdesk request per configured
// interval.
func New(container *app.Container) *Runner {
	return &Runner{
		container: container,
		logger:    container.Logger(),
		limiter:   rate.NewLimiter(rate.Every(container.Config().RegenerateThrottle), 1),
	}
}

// window parses the configured date bounds into an epoch-millisecond window
// spanning whole days.
func (r *Runner) window() (int64, int64, error) {
	cfg := r.container.Config()
	if cfg.RegenerateFrom == "" || cfg.RegenerateTo == "" {
		return 0, 0, apperrors.Wrap(apperrors.ErrInvalidInput, "regeneration window requires both start and end dates")
	}
	from, err := time.Parse(dateLayout, cfg.RegenerateFrom)
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("invalid start date %q", cfg.RegenerateFrom))
	}
	to, err := time.Parse(dateLayout, cfg.RegenerateTo)
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("invalid end date %q", cfg.RegenerateTo))
	}
	return from.UnixMilli(), to.Add(24*time.Hour - time.Millisecond).UnixMilli(), nil
}

// Receipts regenerates the PDF of every notified receipt in the window whose
// amount lacks a decimal point.
func (r *Runner) Receipts(ctx context.Context) (Summary, error) {
	from, to, err := r.window()
	if err != nil {
		return Summary{}, err
	}
	receipts, err := r.container.Receipts(ctx)
	if err != nil {
		return Summary{}, err
	}
	docs, err := receipts.ListByStatusInWindow(ctx, fixture.StatusIONotified, from, to)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Scanned: len(docs)}
	for _, doc := range docs {
		if strings.Contains(doc.EventData.Amount, ".") {
			continue
		}
		summary.Matched++

		if err := r.limiter.Wait(ctx); err != nil {
			return summary, err
		}
		response, err := r.container.Helpdesk().RegenerateReceiptPdf(ctx, doc.EventID)
		r.record(&summary, "receipt", doc.EventID, response, err)
	}

	r.logSummary("receipt regeneration finished", summary)
	return summary, nil
}

// Carts regenerates the PDF of every notified cart in the window with at
// least one line amount lacking a decimal point.
func (r *Runner) Carts(ctx context.Context) (Summary, error) {
	from, to, err := r.window()
	if err != nil {
		return Summary{}, err
	}
	carts, err := r.container.Carts(ctx)
	if err != nil {
		return Summary{}, err
	}
	docs, err := carts.ListByStatusInWindow(ctx, fixture.StatusIONotified, from, to)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Scanned: len(docs)}
	for _, doc := range docs {
		if !cartNeedsRepair(doc) {
			continue
		}
		summary.Matched++

		if err := r.limiter.Wait(ctx); err != nil {
			return summary, err
		}
		response, err := r.container.Helpdesk().RegenerateCartReceiptPdf(ctx, doc.CartID)
		r.record(&summary, "cart", doc.CartID, response, err)
	}

	r.logSummary("cart regeneration finished", summary)
	return summary, nil
}

func cartNeedsRepair(cart fixture.Cart) bool {
	for _, item := range cart.Payload.Cart {
		if !strings.Contains(item.Amount, ".") {
			return true
		}
	}
	return false
}

func (r *Runner) record(summary *Summary, kind, id string, response *helpdesk.Response, err error) {
	if err != nil || !response.OK() {
		summary.Failed++
		r.logger.Warn("regeneration request failed",
			slog.String("kind", kind),
			slog.String("id", id),
			slog.Any("error", err),
		)
		return
	}
	summary.Succeeded++
	r.logger.Info("regenerated",
		slog.String("kind", kind),
		slog.String("id", id),
	)
}

func (r *Runner) logSummary(msg string, summary Summary) {
	r.logger.Info(msg,
		slog.Int("scanned", summary.Scanned),
		slog.Int("matched", summary.Matched),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
}
