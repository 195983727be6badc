// Package report builds the periodic receipt-generation status report: it
// counts biz events, single receipts and cart receipts inside a date window,
// groups the receipt statuses into notified, not-notified, pending and error
// buckets, and writes a formatted summary to a JSON artifact.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
)

const dateLayout = "2006-01-02"

// Window ranges, in whole days ending yesterday.
var rangeDays = map[string]int{
	"daily":   1,
	"weekly":  7,
	"dozen":   12,
	"monthly": 30,
}

// Totals groups receipt counts into the report buckets.
type Totals struct {
	Notified    int
	NotNotified int
	Pending     int
	Error       int
	Total       int
}

// Report is the aggregated outcome of one run.
type Report struct {
	From      time.Time
	To        time.Time
	BizEvents int
	Receipts  Totals
	Carts     Totals
	Text      string
}

// artifact is the file format: a single pre-formatted text field.
type artifact struct {
	Text string `json:"text"`
}

// Builder assembles the report from the configured stores.
type Builder struct {
	container *app.Container
	logger    *slog.Logger
}

// New creates a report builder.
func New(container *app.Container) *Builder {
	return &Builder{container: container, logger: container.Logger()}
}

// Run gathers the counts, formats the summary and writes the artifact to the
// configured output file.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	report, err := b.Build(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	raw, err := json.MarshalIndent(artifact{Text: report.Text}, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal report artifact")
	}
	outputFile := b.container.Config().ReportOutputFile
	if err := os.WriteFile(outputFile, raw, 0o644); err != nil {
		return nil, apperrors.Wrap(err, "failed to write report artifact")
	}

	b.logger.Info("report written",
		slog.String("file", outputFile),
		slog.Int("biz_events", report.BizEvents),
		slog.Int("receipts", report.Receipts.Total),
		slog.Int("carts", report.Carts.Total),
	)
	return report, nil
}

// Build gathers the three counts concurrently for the window ending at now
// and formats the summary text.
func (b *Builder) Build(ctx context.Context, now time.Time) (*Report, error) {
	from, to, err := b.window(now)
	if err != nil {
		return nil, err
	}

	bizEvents, err := b.container.BizEvents(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := b.container.Receipts(ctx)
	if err != nil {
		return nil, err
	}
	carts, err := b.container.Carts(ctx)
	if err != nil {
		return nil, err
	}

	var (
		eventCount    int
		receiptCounts map[string]int
		cartCounts    map[string]int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		eventCount, err = bizEvents.CountInWindow(groupCtx, from.UnixMilli(), to.UnixMilli())
		return err
	})
	group.Go(func() error {
		var err error
		receiptCounts, err = receipts.CountByStatus(groupCtx, from.UnixMilli(), to.UnixMilli())
		return err
	})
	group.Go(func() error {
		var err error
		cartCounts, err = carts.CountByStatus(groupCtx, from.UnixMilli(), to.UnixMilli())
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		From:      from,
		To:        to,
		BizEvents: eventCount,
		Receipts:  bucketize(receiptCounts, false),
		Carts:     bucketize(cartCounts, true),
	}
	report.Text = format(report)
	return report, nil
}

// window resolves the configured date range to concrete bounds. Named ranges
// span whole days ending yesterday; custom uses the explicit dates.
func (b *Builder) window(now time.Time) (time.Time, time.Time, error) {
	cfg := b.container.Config()

	if cfg.DateRange == "custom" {
		from, err := time.Parse(dateLayout, cfg.CustomStartDate)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("invalid custom start date %q", cfg.CustomStartDate))
		}
		to, err := time.Parse(dateLayout, cfg.CustomEndDate)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("invalid custom end date %q", cfg.CustomEndDate))
		}
		return from, to.Add(24*time.Hour - time.Millisecond), nil
	}

	days, ok := rangeDays[cfg.DateRange]
	if !ok {
		return time.Time{}, time.Time{}, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unknown date range %q", cfg.DateRange))
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -days), today.Add(-time.Millisecond), nil
}

// bucketize groups per-status counts into the report buckets. Carts count the
// pre-aggregation state as pending. Statuses outside the bucket lists still
// count toward the total.
func bucketize(counts map[string]int, cart bool) Totals {
	var totals Totals
	for status, count := range counts {
		totals.Total += count
		switch status {
		case fixture.StatusIONotified:
			totals.Notified += count
		case fixture.StatusNotToNotify:
			totals.NotNotified += count
		case fixture.StatusInserted, fixture.StatusGenerated,
			fixture.StatusRetry, fixture.StatusIONotifierRetry:
			totals.Pending += count
		case fixture.StatusNotQueueSent, fixture.StatusFailed,
			fixture.StatusIOErrorToNotify, fixture.StatusUnableToSend,
			fixture.StatusToReview:
			totals.Error += count
		case fixture.StatusWaitingForBizEvnt:
			if cart {
				totals.Pending += count
			}
		}
	}
	return totals
}

func format(report *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Receipt generation report %s - %s\n",
		report.From.Format(dateLayout), report.To.Format(dateLayout))
	fmt.Fprintf(&sb, "Biz events received: %d\n", report.BizEvents)
	sb.WriteString("\nSingle receipts\n")
	writeTotals(&sb, report.Receipts)
	sb.WriteString("\nCart receipts\n")
	writeTotals(&sb, report.Carts)
	return sb.String()
}

func writeTotals(sb *strings.Builder, totals Totals) {
	fmt.Fprintf(sb, "  total: %d\n", totals.Total)
	fmt.Fprintf(sb, "  notified: %d (%s)\n", totals.Notified, percent(totals.Notified, totals.Total))
	fmt.Fprintf(sb, "  not notified: %d (%s)\n", totals.NotNotified, percent(totals.NotNotified, totals.Total))
	fmt.Fprintf(sb, "  pending: %d (%s)\n", totals.Pending, percent(totals.Pending, totals.Total))
	fmt.Fprintf(sb, "  error: %d (%s)\n", totals.Error, percent(totals.Error, totals.Total))
}

func percent(part, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)*100/float64(total))
}
