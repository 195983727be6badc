// Package testutil provides an in-process stand-in for the receipt pipeline,
// so the scenario suite can run hermetically against the in-memory drivers.
// The stand-in consumes the pipeline queues and performs the pipeline's
// observable writes: receipt status transitions, attachment metadata, PDF
// blobs and quarantine records. The scenario layer itself is
// transport-agnostic and runs unchanged against real URLs.
package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"gocloud.dev/pubsub"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/queue"
)

// pdfStub is what the stand-in writes for every generated attachment.
var pdfStub = []byte("%PDF-1.7\n%stub receipt\n%%EOF\n")

// Processor consumes the four pipeline queues and writes derived state the
// way the real pipeline would.
type Processor struct {
	container *app.Container
	logger    *slog.Logger

	subs   []*pubsub.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartProcessor opens one subscription per pipeline queue and starts the
// consume loops. The container's queue client is forced open first: the
// in-memory broker drops messages sent to a topic nobody subscribes to, so
// subscriptions must exist before any scenario enqueues.
func StartProcessor(ctx context.Context, container *app.Container) (*Processor, error) {
	if _, err := container.Queue(ctx); err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p := &Processor{
		container: container,
		logger:    container.Logger(),
		cancel:    cancel,
	}

	cfg := container.Config()
	handlers := []struct {
		url    string
		handle func(context.Context, []fixture.BizEvent) error
	}{
		{cfg.ReceiptQueueURL, p.handleReceipt},
		{cfg.ReceiptPoisonQueueURL, p.handleReceiptPoison},
		{cfg.CartQueueURL, p.handleCart},
		{cfg.CartPoisonQueueURL, p.handleCartPoison},
	}
	for _, h := range handlers {
		sub, err := pubsub.OpenSubscription(ctx, h.url)
		if err != nil {
			cancel()
			p.shutdownSubs(ctx)
			return nil, apperrors.Wrap(err, "failed to open subscription "+h.url)
		}
		p.subs = append(p.subs, sub)
		p.wg.Add(1)
		go p.consume(loopCtx, sub, h.handle)
	}
	return p, nil
}

// Stop cancels the consume loops and shuts the subscriptions down.
func (p *Processor) Stop(ctx context.Context) {
	p.cancel()
	p.wg.Wait()
	p.shutdownSubs(ctx)
}

func (p *Processor) shutdownSubs(ctx context.Context) {
	for _, sub := range p.subs {
		if err := sub.Shutdown(ctx); err != nil {
			p.logger.Warn("subscription shutdown failed", slog.Any("error", err))
		}
	}
	p.subs = nil
}

func (p *Processor) consume(ctx context.Context, sub *pubsub.Subscription, handle func(context.Context, []fixture.BizEvent) error) {
	defer p.wg.Done()
	for {
		msg, err := sub.Receive(ctx)
		if err != nil {
			return
		}
		events, err := DecodeEvents(msg.Body)
		if err != nil {
			p.logger.Warn("dropping undecodable message", slog.Any("error", err))
			msg.Ack()
			continue
		}
		if err := handle(ctx, events); err != nil {
			p.logger.Warn("message handling failed", slog.Any("error", err))
		}
		msg.Ack()
	}
}

// handleReceipt advances the seeded receipt of each event to GENERATED and
// attaches a freshly written PDF.
func (p *Processor) handleReceipt(ctx context.Context, events []fixture.BizEvent) error {
	receipts, err := p.container.Receipts(ctx)
	if err != nil {
		return err
	}
	for _, event := range events {
		found, err := receipts.GetByLookup(ctx, event.ID)
		if err != nil {
			return err
		}
		if len(found.Resources) == 0 {
			continue
		}
		receipt := found.Resources[0]
		receipt.Status = fixture.StatusGenerated
		receipt.MdAttach = writeAttachment(ctx, p.container, p.logger, fmt.Sprintf("pagopa-ricevuta-%s.pdf", event.ID))
		if err := receipts.Replace(ctx, &receipt); err != nil {
			return err
		}
	}
	return nil
}

// handleReceiptPoison re-submits first-attempt events to the main queue with
// the retry flag set, and quarantines events that already went through the
// retry path.
func (p *Processor) handleReceiptPoison(ctx context.Context, events []fixture.BizEvent) error {
	q, err := p.container.Queue(ctx)
	if err != nil {
		return err
	}
	errorReceipts, err := p.container.ErrorReceipts(ctx)
	if err != nil {
		return err
	}
	for _, event := range events {
		if !event.AttemptedPoisonRetry {
			event.AttemptedPoisonRetry = true
			if err := q.Enqueue(ctx, queue.ReceiptQueue, event); err != nil {
				return err
			}
			continue
		}
		record := fixture.ErrorReceipt{
			ID:             event.ID,
			BizEventID:     event.ID,
			MessagePayload: encodePayload(event),
			Status:         fixture.ErrorStatusToReview,
		}
		if _, err := errorReceipts.Create(ctx, &record, event.ID, ""); err != nil && !apperrors.Is(err, apperrors.ErrConflict) {
			return err
		}
	}
	return nil
}

// handleCart completes the seeded cart aggregate for the events' transaction:
// status GENERATED, one attachment per line plus the payer attachment.
func (p *Processor) handleCart(ctx context.Context, events []fixture.BizEvent) error {
	if len(events) == 0 {
		return nil
	}
	carts, err := p.container.Carts(ctx)
	if err != nil {
		return err
	}

	transactionID := events[0].TransactionDetails.Transaction.TransactionID
	found, err := carts.GetByKey(ctx, transactionID)
	if err != nil {
		return err
	}
	if len(found.Resources) == 0 {
		return nil
	}

	cart := found.Resources[0]
	cart.Status = fixture.StatusGenerated
	cart.Payload.MdAttachPayer = writeAttachment(ctx, p.container, p.logger, fmt.Sprintf("pagopa-ricevuta-%s-p.pdf", cart.CartID))
	for i := range cart.Payload.Cart {
		cart.Payload.Cart[i].MdAttach = writeAttachment(ctx, p.container, p.logger, fmt.Sprintf("pagopa-ricevuta-%s-%d-d.pdf", cart.CartID, i+1))
	}
	return carts.Replace(ctx, &cart)
}

// handleCartPoison mirrors the single-receipt poison branch at the aggregate
// level, quarantining by transaction id.
func (p *Processor) handleCartPoison(ctx context.Context, events []fixture.BizEvent) error {
	if len(events) == 0 {
		return nil
	}
	if !events[0].AttemptedPoisonRetry {
		q, err := p.container.Queue(ctx)
		if err != nil {
			return err
		}
		for i := range events {
			events[i].AttemptedPoisonRetry = true
		}
		return q.Enqueue(ctx, queue.CartQueue, events)
	}

	errorCarts, err := p.container.ErrorCarts(ctx)
	if err != nil {
		return err
	}
	transactionID := events[0].TransactionDetails.Transaction.TransactionID
	record := fixture.ErrorCart{
		ID:             transactionID,
		BizEventID:     transactionID,
		MessagePayload: encodePayload(events),
		Status:         fixture.ErrorStatusToReview,
	}
	if _, err := errorCarts.Create(ctx, &record, transactionID, ""); err != nil && !apperrors.Is(err, apperrors.ErrConflict) {
		return err
	}
	return nil
}

// writeAttachment stores a stub PDF under name and returns its metadata.
// Blob write failures are logged, not fatal: the datastore write is the
// observable the scenarios key on.
func writeAttachment(ctx context.Context, container *app.Container, logger *slog.Logger, name string) *fixture.Attachment {
	blob, err := container.Blob(ctx)
	if err == nil {
		err = blob.Bucket().WriteAll(ctx, name, pdfStub, nil)
	}
	if err != nil {
		logger.Warn("attachment write failed", slog.String("name", name), slog.Any("error", err))
	}
	return &fixture.Attachment{
		Name: name,
		URL:  "https://receipts.example.org/attachments/" + name,
	}
}

// DecodeEvents reverses the queue client's encoding: base64, then JSON as
// either a single event or a list of siblings.
func DecodeEvents(body []byte) ([]fixture.BizEvent, error) {
	raw, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decode message body")
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var events []fixture.BizEvent
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal event list")
		}
		return events, nil
	}

	var event fixture.BizEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal event")
	}
	return []fixture.BizEvent{event}, nil
}

func encodePayload(message any) string {
	raw, _ := json.Marshal(message)
	return base64.StdEncoding.EncodeToString(raw)
}
