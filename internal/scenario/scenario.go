// Package scenario implements the step definitions driving the receipt
// pipeline end to end: seed a fixture, stimulate the pipeline through a queue
// or the helpdesk API, wait out the asynchronous processing, read back the
// derived state and assert on it, then clean up everything the scenario
// created.
//
// Each scenario owns an explicit context struct; there is no shared mutable
// state between scenarios beyond the process-wide clients held by the
// container. Steps move the scenario through seeded, stimulated, settled and
// asserted phases in order, and Cleanup runs unconditionally afterwards.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/datastore"
	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/helpdesk"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/queue"
)

// Scenario carries the identifiers a single scenario has created and the
// state it has observed. Allocate a fresh one per scenario; identifiers are
// scenario-scoped and must not be shared across concurrently running
// scenarios.
type Scenario struct {
	container *app.Container
	logger    *slog.Logger

	// Tracked identifiers, cleaned up on teardown.
	receiptID      string
	errorReceiptID string
	cartID         string
	cartEventID    string
	errorCartID    string
	bizEventID     string

	// Observed state.
	receipts      *datastore.QueryResult[fixture.Receipt]
	errorReceipts *datastore.QueryResult[fixture.ErrorReceipt]
	carts         *datastore.QueryResult[fixture.Cart]
	errorCarts    *datastore.QueryResult[fixture.ErrorCart]
	response      *helpdesk.Response
}

// New creates a fresh scenario context backed by the shared container.
func New(container *app.Container) *Scenario {
	return &Scenario{
		container: container,
		logger:    container.Logger(),
	}
}

// GivenReceipt seeds a receipt document, deleting any leftover document for
// the same id first so a previous failed run cannot leak state into this one.
func (s *Scenario) GivenReceipt(ctx context.Context, opts fixture.ReceiptOptions) error {
	receipts, err := s.container.Receipts(ctx)
	if err != nil {
		return err
	}

	if err := receipts.DeleteByKey(ctx, opts.ID); err != nil {
		return err
	}

	receipt, err := fixture.NewReceipt(opts)
	if err != nil {
		return err
	}
	result, err := receipts.Create(ctx, &receipt, opts.ID, opts.ID)
	if err != nil {
		return err
	}
	if result.StatusCode != datastore.StatusCreated {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("seeding receipt %q returned status %d", opts.ID, result.StatusCode))
	}

	s.receiptID = opts.ID
	return nil
}

// GivenErrorReceipt seeds a reviewed quarantine record for the given event id.
func (s *Scenario) GivenErrorReceipt(ctx context.Context, opts fixture.EventOptions) error {
	errorReceipts, err := s.container.ErrorReceipts(ctx)
	if err != nil {
		return err
	}
	enc, err := s.container.Cipher()
	if err != nil {
		return err
	}

	if err := errorReceipts.DeleteByKey(ctx, opts.ID); err != nil {
		return err
	}

	record, err := fixture.NewErrorReceipt(enc, opts)
	if err != nil {
		return err
	}
	result, err := errorReceipts.Create(ctx, &record, opts.ID, "")
	if err != nil {
		return err
	}
	if result.StatusCode != datastore.StatusCreated {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("seeding error receipt %q returned status %d", opts.ID, result.StatusCode))
	}

	s.errorReceiptID = opts.ID
	return nil
}

// GivenCart seeds a cart document, deleting any leftover document for the
// same transaction id first.
func (s *Scenario) GivenCart(ctx context.Context, opts fixture.CartOptions) error {
	carts, err := s.container.Carts(ctx)
	if err != nil {
		return err
	}

	if err := carts.DeleteByKey(ctx, opts.ID); err != nil {
		return err
	}

	cart, err := fixture.NewCart(opts)
	if err != nil {
		return err
	}
	result, err := carts.Create(ctx, &cart, opts.ID, opts.CartID)
	if err != nil {
		return err
	}
	if result.StatusCode != datastore.StatusCreated {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("seeding cart %q returned status %d", opts.CartID, result.StatusCode))
	}

	s.cartID = opts.CartID
	s.cartEventID = opts.ID
	return nil
}

// GivenErrorCart seeds a reviewed quarantine record for the cart flow.
func (s *Scenario) GivenErrorCart(ctx context.Context, id, cartID, eventID string) error {
	errorCarts, err := s.container.ErrorCarts(ctx)
	if err != nil {
		return err
	}
	enc, err := s.container.Cipher()
	if err != nil {
		return err
	}

	if err := errorCarts.DeleteByKey(ctx, id); err != nil {
		return err
	}

	record, err := fixture.NewErrorCart(enc, id, cartID, eventID)
	if err != nil {
		return err
	}
	result, err := errorCarts.Create(ctx, &record, id, "")
	if err != nil {
		return err
	}
	if result.StatusCode != datastore.StatusCreated {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("seeding error cart %q returned status %d", id, result.StatusCode))
	}

	s.errorCartID = id
	s.cartID = cartID
	s.cartEventID = eventID
	return nil
}

// GivenBizEvent stores a biz event document directly, for scenarios that
// stimulate the pipeline through the helpdesk API rather than a queue. It
// seeds exactly one event: sibling counts above one only make sense on the
// cart queue and are rejected rather than silently truncated.
func (s *Scenario) GivenBizEvent(ctx context.Context, opts fixture.EventOptions) error {
	if opts.Count > 1 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("seeding stores a single biz event, got count %d", opts.Count))
	}

	bizEvents, err := s.container.BizEvents(ctx)
	if err != nil {
		return err
	}

	if err := bizEvents.DeleteByKey(ctx, opts.ID); err != nil {
		return err
	}

	events, err := fixture.NewEvents(opts)
	if err != nil {
		return err
	}
	result, err := bizEvents.Create(ctx, &events[0], opts.ID, "")
	if err != nil {
		return err
	}
	if result.StatusCode != datastore.StatusCreated {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("seeding biz event %q returned status %d", opts.ID, result.StatusCode))
	}

	s.bizEventID = opts.ID
	return nil
}

// WhenEventEnqueued submits a biz event to the main receipt queue.
func (s *Scenario) WhenEventEnqueued(ctx context.Context, opts fixture.EventOptions) error {
	events, err := fixture.NewEvents(opts)
	if err != nil {
		return err
	}
	s.receiptID = opts.ID
	return s.enqueue(ctx, queue.ReceiptQueue, events)
}

// WhenPoisonEventEnqueued submits a biz event to the receipt poison queue.
// Any stale quarantine record for the same event id is purged first: the
// pipeline is expected to create the record, and a leftover one would make
// the exactly-one assertion pass for the wrong reason.
func (s *Scenario) WhenPoisonEventEnqueued(ctx context.Context, opts fixture.EventOptions) error {
	errorReceipts, err := s.container.ErrorReceipts(ctx)
	if err != nil {
		return err
	}
	if err := errorReceipts.DeleteByKey(ctx, opts.ID); err != nil {
		return err
	}
	if err := errorReceipts.DeleteAllByLookup(ctx, opts.ID); err != nil {
		return err
	}

	events, err := fixture.NewEvents(opts)
	if err != nil {
		return err
	}
	s.errorReceiptID = opts.ID
	return s.enqueue(ctx, queue.ReceiptPoisonQueue, events)
}

// WhenCartEventsEnqueued submits the sibling biz events of a cart to the main
// cart queue.
func (s *Scenario) WhenCartEventsEnqueued(ctx context.Context, opts fixture.EventOptions) error {
	events, err := fixture.NewCartEvents(opts)
	if err != nil {
		return err
	}
	if s.cartEventID == "" {
		s.cartEventID = opts.TransactionID
	}
	return s.enqueue(ctx, queue.CartQueue, events)
}

// WhenCartPoisonEventsEnqueued submits the sibling biz events to the cart
// poison queue, purging any stale cart quarantine record first. The
// quarantine record is keyed by the transaction id, the only aggregate key
// visible to the pipeline.
func (s *Scenario) WhenCartPoisonEventsEnqueued(ctx context.Context, opts fixture.EventOptions) error {
	key := opts.TransactionID
	if key == "" {
		key = opts.ID
	}

	errorCarts, err := s.container.ErrorCarts(ctx)
	if err != nil {
		return err
	}
	if err := errorCarts.DeleteByKey(ctx, key); err != nil {
		return err
	}
	if err := errorCarts.DeleteAllByLookup(ctx, key); err != nil {
		return err
	}

	events, err := fixture.NewCartEvents(opts)
	if err != nil {
		return err
	}
	s.errorCartID = key
	return s.enqueue(ctx, queue.CartPoisonQueue, events)
}

// WhenReceiptRegenerated calls the helpdesk regenerate endpoint for a stored
// biz event and records the raw response.
func (s *Scenario) WhenReceiptRegenerated(ctx context.Context, eventID string) error {
	response, err := s.container.Helpdesk().RegenerateReceiptPdf(ctx, eventID)
	if err != nil {
		return err
	}
	s.receiptID = eventID
	s.response = response
	return nil
}

// WhenCartReceiptRegenerated calls the cart variant of the regenerate
// endpoint and records the raw response.
func (s *Scenario) WhenCartReceiptRegenerated(ctx context.Context, cartID string) error {
	response, err := s.container.Helpdesk().RegenerateCartReceiptPdf(ctx, cartID)
	if err != nil {
		return err
	}
	s.cartID = cartID
	s.response = response
	return nil
}

// AwaitReceipt waits out the processing window, then reads the receipt back
// by event id.
func (s *Scenario) AwaitReceipt(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	receipts, err := s.container.Receipts(ctx)
	if err != nil {
		return err
	}
	s.receipts, err = receipts.GetByLookup(ctx, s.receiptID)
	return err
}

// AwaitErrorReceipt waits out the processing window, then reads the
// quarantine record back by biz event id.
func (s *Scenario) AwaitErrorReceipt(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	errorReceipts, err := s.container.ErrorReceipts(ctx)
	if err != nil {
		return err
	}
	s.errorReceipts, err = errorReceipts.GetByLookup(ctx, s.errorReceiptID)
	return err
}

// AwaitCart waits out the processing window, then reads the cart aggregate
// back by transaction id.
func (s *Scenario) AwaitCart(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	carts, err := s.container.Carts(ctx)
	if err != nil {
		return err
	}
	s.carts, err = carts.GetByKey(ctx, s.cartEventID)
	return err
}

// AwaitCartByCartID waits out the processing window, then reads the cart
// aggregate back by cart id. Used by the regenerate scenarios, which only
// know the cart id.
func (s *Scenario) AwaitCartByCartID(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	carts, err := s.container.Carts(ctx)
	if err != nil {
		return err
	}
	s.carts, err = carts.GetByLookup(ctx, s.cartID)
	if err != nil {
		return err
	}
	if len(s.carts.Resources) > 0 {
		s.cartEventID = s.carts.Resources[0].ID
	}
	return nil
}

// AwaitErrorCart waits out the processing window, then reads the cart
// quarantine record back by biz event id.
func (s *Scenario) AwaitErrorCart(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	errorCarts, err := s.container.ErrorCarts(ctx)
	if err != nil {
		return err
	}
	s.errorCarts, err = errorCarts.GetByLookup(ctx, s.errorCartID)
	return err
}

// ThenOneReceipt asserts exactly one receipt document was observed.
func (s *Scenario) ThenOneReceipt() error {
	if s.receipts == nil || len(s.receipts.Resources) != 1 {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected exactly one receipt for %q, got %d", s.receiptID, s.observedReceipts()))
	}
	return nil
}

// ThenReceiptStatus asserts the observed receipt carries the given status.
func (s *Scenario) ThenReceiptStatus(status string) error {
	if err := s.ThenOneReceipt(); err != nil {
		return err
	}
	if got := s.receipts.Resources[0].Status; got != status {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected receipt status %q, got %q", status, got))
	}
	return nil
}

// ThenReceiptStatusNot asserts the observed receipt moved away from the given
// status.
func (s *Scenario) ThenReceiptStatusNot(status string) error {
	if err := s.ThenOneReceipt(); err != nil {
		return err
	}
	if got := s.receipts.Resources[0].Status; got == status {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected receipt status to move past %q", status))
	}
	return nil
}

// ThenReceiptHasAttachment asserts the observed receipt carries attachment
// metadata with a non-empty blob name.
func (s *Scenario) ThenReceiptHasAttachment() error {
	if err := s.ThenOneReceipt(); err != nil {
		return err
	}
	attach := s.receipts.Resources[0].MdAttach
	if attach == nil || attach.Name == "" {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected receipt %q to carry attachment metadata", s.receiptID))
	}
	return nil
}

// ThenReceiptBlobExists asserts the PDF named by the observed receipt's
// attachment metadata exists in the generated-PDF container.
func (s *Scenario) ThenReceiptBlobExists(ctx context.Context) error {
	if err := s.ThenReceiptHasAttachment(); err != nil {
		return err
	}
	return s.blobExists(ctx, s.receipts.Resources[0].MdAttach.Name)
}

// ThenOneErrorReceipt asserts exactly one quarantine record was observed.
func (s *Scenario) ThenOneErrorReceipt() error {
	if s.errorReceipts == nil || len(s.errorReceipts.Resources) != 1 {
		count := 0
		if s.errorReceipts != nil {
			count = len(s.errorReceipts.Resources)
		}
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected exactly one error receipt for %q, got %d", s.errorReceiptID, count))
	}
	return nil
}

// ThenNoErrorReceipt asserts no quarantine record was observed: first-attempt
// poison events go back to the main queue instead of being quarantined.
func (s *Scenario) ThenNoErrorReceipt() error {
	if s.errorReceipts != nil && len(s.errorReceipts.Resources) > 0 {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected no error receipt for %q, got %d", s.errorReceiptID, len(s.errorReceipts.Resources)))
	}
	return nil
}

// ThenErrorReceiptStatus asserts the observed quarantine record carries the
// given review status.
func (s *Scenario) ThenErrorReceiptStatus(status string) error {
	if err := s.ThenOneErrorReceipt(); err != nil {
		return err
	}
	if got := s.errorReceipts.Resources[0].Status; got != status {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected error receipt status %q, got %q", status, got))
	}
	return nil
}

// ThenOneCart asserts exactly one cart aggregate was observed.
func (s *Scenario) ThenOneCart() error {
	if s.carts == nil || len(s.carts.Resources) != 1 {
		count := 0
		if s.carts != nil {
			count = len(s.carts.Resources)
		}
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected exactly one cart for %q, got %d", s.cartEventID, count))
	}
	return nil
}

// ThenCartStatus asserts the observed cart carries the given status.
func (s *Scenario) ThenCartStatus(status string) error {
	if err := s.ThenOneCart(); err != nil {
		return err
	}
	if got := s.carts.Resources[0].Status; got != status {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected cart status %q, got %q", status, got))
	}
	return nil
}

// ThenCartStatusNot asserts the observed cart moved away from the given
// status.
func (s *Scenario) ThenCartStatusNot(status string) error {
	if err := s.ThenOneCart(); err != nil {
		return err
	}
	if got := s.carts.Resources[0].Status; got == status {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected cart status to move past %q", status))
	}
	return nil
}

// ThenCartHasAttachments asserts at least one cart line carries attachment
// metadata with a non-empty blob name.
func (s *Scenario) ThenCartHasAttachments() error {
	if err := s.ThenOneCart(); err != nil {
		return err
	}
	for _, item := range s.carts.Resources[0].Payload.Cart {
		if item.MdAttach != nil && item.MdAttach.Name != "" {
			return nil
		}
	}
	return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected cart %q to carry line attachment metadata", s.cartID))
}

// ThenCartBlobExists asserts the PDF named by the first line attachment
// exists in the generated-PDF container.
func (s *Scenario) ThenCartBlobExists(ctx context.Context) error {
	if err := s.ThenCartHasAttachments(); err != nil {
		return err
	}
	for _, item := range s.carts.Resources[0].Payload.Cart {
		if item.MdAttach != nil && item.MdAttach.Name != "" {
			return s.blobExists(ctx, item.MdAttach.Name)
		}
	}
	return nil
}

// ThenOneErrorCart asserts exactly one cart quarantine record was observed.
func (s *Scenario) ThenOneErrorCart() error {
	if s.errorCarts == nil || len(s.errorCarts.Resources) != 1 {
		count := 0
		if s.errorCarts != nil {
			count = len(s.errorCarts.Resources)
		}
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected exactly one error cart for %q, got %d", s.errorCartID, count))
	}
	return nil
}

// ThenErrorCartStatus asserts the observed cart quarantine record carries the
// given review status.
func (s *Scenario) ThenErrorCartStatus(status string) error {
	if err := s.ThenOneErrorCart(); err != nil {
		return err
	}
	if got := s.errorCarts.Resources[0].Status; got != status {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected error cart status %q, got %q", status, got))
	}
	return nil
}

// ThenResponseOK asserts the recorded helpdesk response has a 200-class
// status.
func (s *Scenario) ThenResponseOK() error {
	if s.response == nil || !s.response.OK() {
		code := 0
		if s.response != nil {
			code = s.response.StatusCode
		}
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected a 200-class helpdesk response, got %d", code))
	}
	return nil
}

// Cleanup deletes everything the scenario created and resets its state.
// Runs after every scenario, including failed ones; transport errors are
// logged and swallowed so a cleanup failure never masks the scenario result.
func (s *Scenario) Cleanup(ctx context.Context) {
	if s.receiptID != "" {
		if receipts, err := s.container.Receipts(ctx); err == nil {
			s.cleanupDelete(receipts.DeleteByKey(ctx, s.receiptID), "receipt", s.receiptID)
		}
	}
	if s.errorReceiptID != "" {
		if errorReceipts, err := s.container.ErrorReceipts(ctx); err == nil {
			s.cleanupDelete(errorReceipts.DeleteByKey(ctx, s.errorReceiptID), "error receipt", s.errorReceiptID)
			s.cleanupDelete(errorReceipts.DeleteAllByLookup(ctx, s.errorReceiptID), "error receipts by event", s.errorReceiptID)
		}
	}
	if s.cartEventID != "" || s.cartID != "" {
		if carts, err := s.container.Carts(ctx); err == nil {
			if s.cartEventID != "" {
				s.cleanupDelete(carts.DeleteByKey(ctx, s.cartEventID), "cart", s.cartEventID)
			}
			if s.cartID != "" {
				s.cleanupDelete(carts.DeleteAllByLookup(ctx, s.cartID), "carts by cart id", s.cartID)
			}
		}
	}
	if s.errorCartID != "" {
		if errorCarts, err := s.container.ErrorCarts(ctx); err == nil {
			s.cleanupDelete(errorCarts.DeleteByKey(ctx, s.errorCartID), "error cart", s.errorCartID)
			s.cleanupDelete(errorCarts.DeleteAllByLookup(ctx, s.errorCartID), "error carts by event", s.errorCartID)
		}
	}
	if s.bizEventID != "" {
		if bizEvents, err := s.container.BizEvents(ctx); err == nil {
			s.cleanupDelete(bizEvents.DeleteByKey(ctx, s.bizEventID), "biz event", s.bizEventID)
		}
	}

	s.receiptID = ""
	s.errorReceiptID = ""
	s.cartID = ""
	s.cartEventID = ""
	s.errorCartID = ""
	s.bizEventID = ""
	s.receipts = nil
	s.errorReceipts = nil
	s.carts = nil
	s.errorCarts = nil
	s.response = nil
}

func (s *Scenario) cleanupDelete(err error, kind, id string) {
	if err != nil {
		s.logger.Warn("cleanup delete failed",
			slog.String("kind", kind),
			slog.String("id", id),
			slog.Any("error", err),
		)
	}
}

// enqueue submits a single event as an object and siblings as a list,
// matching the payload shapes the pipeline consumes.
func (s *Scenario) enqueue(ctx context.Context, selector queue.Selector, events []fixture.BizEvent) error {
	q, err := s.container.Queue(ctx)
	if err != nil {
		return err
	}
	if len(events) == 1 {
		return q.Enqueue(ctx, selector, events[0])
	}
	return q.Enqueue(ctx, selector, events)
}

// wait suspends for the configured processing window. There is no push
// notification from the pipeline, so a bounded sleep is the convergence
// strategy.
func (s *Scenario) wait(ctx context.Context) error {
	timer := time.NewTimer(s.container.Config().ProcessTime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scenario) blobExists(ctx context.Context, name string) error {
	blob, err := s.container.Blob(ctx)
	if err != nil {
		return err
	}
	exists, err := blob.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.Wrap(apperrors.ErrAssertion, fmt.Sprintf("expected blob %q to exist", name))
	}
	return nil
}

func (s *Scenario) observedReceipts() int {
	if s.receipts == nil {
		return 0
	}
	return len(s.receipts.Resources)
}
