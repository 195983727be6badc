// Package integration runs the receipt pipeline scenarios end to end against
// the in-memory drivers, with an in-process stand-in consuming the queues and
// serving the helpdesk endpoints. The scenario layer under test is the same
// one used against real infrastructure URLs.
package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/config"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/scenario"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scenarioTestContext holds the shared clients and stand-ins for one test.
type scenarioTestContext struct {
	container *app.Container
	processor *testutil.Processor
	server    *httptest.Server
}

// setupScenarioTest wires a fully hermetic pipeline: unique in-memory URLs
// per test, the queue-consuming stand-in, and a helpdesk test server.
func setupScenarioTest(t *testing.T) *scenarioTestContext {
	t.Helper()
	ctx := context.Background()

	// Unique URLs per test: the in-memory broker registry is process-global.
	suffix := uuid.NewString()
	cfg := &config.Config{
		ReceiptsDocstoreURL:      fmt.Sprintf("mem://receipts-%s/id", suffix),
		ErrorReceiptsDocstoreURL: fmt.Sprintf("mem://receipts-message-errors-%s/id", suffix),
		CartsDocstoreURL:         fmt.Sprintf("mem://cart-receipts-%s/id", suffix),
		ErrorCartsDocstoreURL:    fmt.Sprintf("mem://cart-message-errors-%s/id", suffix),
		BizEventsDocstoreURL:     fmt.Sprintf("mem://biz-events-%s/id", suffix),
		ReceiptQueueURL:          fmt.Sprintf("mem://receipt-queue-%s", suffix),
		ReceiptPoisonQueueURL:    fmt.Sprintf("mem://receipt-poison-queue-%s", suffix),
		CartQueueURL:             fmt.Sprintf("mem://cart-queue-%s", suffix),
		CartPoisonQueueURL:       fmt.Sprintf("mem://cart-poison-queue-%s", suffix),
		BlobBucketURL:            "mem://",
		AESSecretKey:             "integration-test-secret",
		AESSalt:                  "integration-test-salt",
		HelpdeskSubKey:           "integration-test-subkey",
		ProcessTime:              500 * time.Millisecond,
		LogLevel:                 "error",
	}

	container := app.NewContainer(cfg)

	processor, err := testutil.StartProcessor(ctx, container)
	require.NoError(t, err, "failed to start pipeline stand-in")

	server := testutil.NewHelpdeskServer(container)
	cfg.HelpdeskURL = server.URL

	t.Cleanup(func() {
		server.Close()
		processor.Stop(context.Background())
		if err := container.Shutdown(context.Background()); err != nil {
			t.Logf("container shutdown: %v", err)
		}
	})

	return &scenarioTestContext{
		container: container,
		processor: processor,
		server:    server,
	}
}

// newScenario allocates a fresh scenario context with teardown guaranteed,
// even when an assertion fails.
func (c *scenarioTestContext) newScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	s := scenario.New(c.container)
	t.Cleanup(func() {
		s.Cleanup(context.Background())
	})
	return s
}

func TestScenario_ReceiptGeneration_HappyPath(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	eventID := "receipt-happy-" + uuid.NewString()

	require.NoError(t, s.GivenReceipt(ctx, fixture.ReceiptOptions{ID: eventID, Status: fixture.StatusInserted}))
	require.NoError(t, s.WhenEventEnqueued(ctx, fixture.EventOptions{ID: eventID}))
	require.NoError(t, s.AwaitReceipt(ctx))

	require.NoError(t, s.ThenOneReceipt())
	require.NoError(t, s.ThenReceiptStatusNot(fixture.StatusInserted))
	require.NoError(t, s.ThenReceiptHasAttachment())
	require.NoError(t, s.ThenReceiptBlobExists(ctx))
}

func TestScenario_PoisonQueue_FirstAttempt(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	eventID := "receipt-poison-first-" + uuid.NewString()

	require.NoError(t, s.GivenReceipt(ctx, fixture.ReceiptOptions{ID: eventID, Status: fixture.StatusInserted}))
	require.NoError(t, s.WhenPoisonEventEnqueued(ctx, fixture.EventOptions{ID: eventID}))
	require.NoError(t, s.AwaitErrorReceipt(ctx))

	// First attempts go back to the main queue; the receipt advances and no
	// quarantine record appears.
	require.NoError(t, s.ThenNoErrorReceipt())
	require.NoError(t, s.AwaitReceipt(ctx))
	require.NoError(t, s.ThenReceiptStatusNot(fixture.StatusInserted))
}

func TestScenario_PoisonQueue_RetryAttempted(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	eventID := "receipt-poison-retry-" + uuid.NewString()

	require.NoError(t, s.WhenPoisonEventEnqueued(ctx, fixture.EventOptions{ID: eventID, AttemptedPoisonRetry: true}))
	require.NoError(t, s.AwaitErrorReceipt(ctx))

	require.NoError(t, s.ThenOneErrorReceipt())
	require.NoError(t, s.ThenErrorReceiptStatus(fixture.ErrorStatusToReview))
}

func TestScenario_PoisonQueue_StaleQuarantinePurged(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	eventID := "receipt-poison-stale-" + uuid.NewString()

	// A leftover quarantine record from an earlier run must not satisfy the
	// exactly-one assertion; the record observed after the poison flow has to
	// be the fresh one.
	require.NoError(t, s.GivenErrorReceipt(ctx, fixture.EventOptions{ID: eventID}))

	require.NoError(t, s.WhenPoisonEventEnqueued(ctx, fixture.EventOptions{ID: eventID, AttemptedPoisonRetry: true}))
	require.NoError(t, s.AwaitErrorReceipt(ctx))

	require.NoError(t, s.ThenOneErrorReceipt())
	require.NoError(t, s.ThenErrorReceiptStatus(fixture.ErrorStatusToReview))
}

func TestScenario_ReviewedErrorReceipt_Retry(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	eventID := "receipt-reviewed-" + uuid.NewString()

	require.NoError(t, s.GivenErrorReceipt(ctx, fixture.EventOptions{ID: eventID}))
	require.NoError(t, s.GivenReceipt(ctx, fixture.ReceiptOptions{ID: eventID, Status: fixture.StatusInserted}))
	require.NoError(t, s.WhenEventEnqueued(ctx, fixture.EventOptions{ID: eventID}))
	require.NoError(t, s.AwaitReceipt(ctx))

	require.NoError(t, s.ThenReceiptStatusNot(fixture.StatusInserted))
	require.NoError(t, s.AwaitErrorReceipt(ctx))
	require.NoError(t, s.ThenErrorReceiptStatus(fixture.ErrorStatusReviewed))
}

func TestScenario_CartGeneration(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	base := "cart-happy-" + uuid.NewString()
	transactionID := "tx-" + base
	cartID := "cart-" + base

	require.NoError(t, s.GivenCart(ctx, fixture.CartOptions{
		ID:     transactionID,
		CartID: cartID,
		Status: fixture.StatusWaitingForBizEvnt,
	}))
	require.NoError(t, s.WhenCartEventsEnqueued(ctx, fixture.EventOptions{
		ID:            base,
		Count:         2,
		TransactionID: transactionID,
	}))
	require.NoError(t, s.AwaitCart(ctx))

	require.NoError(t, s.ThenOneCart())
	require.NoError(t, s.ThenCartStatusNot(fixture.StatusWaitingForBizEvnt))
	require.NoError(t, s.ThenCartHasAttachments())
	require.NoError(t, s.ThenCartBlobExists(ctx))
}

func TestScenario_CartPoison_FirstAttempt(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	base := "cart-poison-first-" + uuid.NewString()
	transactionID := "tx-" + base
	cartID := "cart-" + base

	require.NoError(t, s.GivenCart(ctx, fixture.CartOptions{
		ID:     transactionID,
		CartID: cartID,
		Status: fixture.StatusWaitingForBizEvnt,
	}))
	require.NoError(t, s.WhenCartPoisonEventsEnqueued(ctx, fixture.EventOptions{
		ID:            base,
		Count:         2,
		TransactionID: transactionID,
	}))
	require.NoError(t, s.AwaitCart(ctx))

	require.NoError(t, s.ThenCartStatusNot(fixture.StatusWaitingForBizEvnt))
	require.NoError(t, s.ThenCartHasAttachments())
}

func TestScenario_CartPoison_RetryAttempted(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	base := "cart-poison-retry-" + uuid.NewString()
	transactionID := "tx-" + base

	require.NoError(t, s.WhenCartPoisonEventsEnqueued(ctx, fixture.EventOptions{
		ID:                   base,
		Count:                2,
		TransactionID:        transactionID,
		AttemptedPoisonRetry: true,
	}))
	require.NoError(t, s.AwaitErrorCart(ctx))

	require.NoError(t, s.ThenOneErrorCart())
	require.NoError(t, s.ThenErrorCartStatus(fixture.ErrorStatusToReview))
}

func TestScenario_CartPoison_StaleQuarantinePurged(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	base := "cart-poison-stale-" + uuid.NewString()
	transactionID := "tx-" + base
	cartID := "cart-" + base

	require.NoError(t, s.GivenErrorCart(ctx, transactionID, cartID, transactionID))

	require.NoError(t, s.WhenCartPoisonEventsEnqueued(ctx, fixture.EventOptions{
		ID:                   base,
		Count:                2,
		TransactionID:        transactionID,
		AttemptedPoisonRetry: true,
	}))
	require.NoError(t, s.AwaitErrorCart(ctx))

	require.NoError(t, s.ThenOneErrorCart())
	require.NoError(t, s.ThenErrorCartStatus(fixture.ErrorStatusToReview))
}

func TestScenario_ReviewedErrorCart_Retry(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	base := "cart-reviewed-" + uuid.NewString()
	transactionID := "tx-" + base
	cartID := "cart-" + base

	require.NoError(t, s.GivenErrorCart(ctx, transactionID, cartID, transactionID))
	require.NoError(t, s.GivenCart(ctx, fixture.CartOptions{
		ID:     transactionID,
		CartID: cartID,
		Status: fixture.StatusWaitingForBizEvnt,
	}))
	require.NoError(t, s.WhenCartEventsEnqueued(ctx, fixture.EventOptions{
		ID:            base,
		Count:         2,
		TransactionID: transactionID,
	}))
	require.NoError(t, s.AwaitCart(ctx))

	require.NoError(t, s.ThenCartStatusNot(fixture.StatusWaitingForBizEvnt))
	require.NoError(t, s.AwaitErrorCart(ctx))
	require.NoError(t, s.ThenErrorCartStatus(fixture.ErrorStatusReviewed))
}

func TestScenario_RegenerateReceipt(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	eventID := "regenerate-receipt-" + uuid.NewString()

	require.NoError(t, s.GivenBizEvent(ctx, fixture.EventOptions{ID: eventID}))
	require.NoError(t, s.GivenReceipt(ctx, fixture.ReceiptOptions{ID: eventID, Status: fixture.StatusIONotified}))
	require.NoError(t, s.WhenReceiptRegenerated(ctx, eventID))

	require.NoError(t, s.ThenResponseOK())
	require.NoError(t, s.AwaitReceipt(ctx))
	require.NoError(t, s.ThenReceiptHasAttachment())
	require.NoError(t, s.ThenReceiptBlobExists(ctx))
}

func TestScenario_RegenerateCartReceipt(t *testing.T) {
	ctx := context.Background()
	tc := setupScenarioTest(t)
	s := tc.newScenario(t)
	base := "regenerate-cart-" + uuid.NewString()
	transactionID := "tx-" + base
	cartID := "cart-" + base

	require.NoError(t, s.GivenCart(ctx, fixture.CartOptions{
		ID:     transactionID,
		CartID: cartID,
		Status: fixture.StatusIONotified,
	}))
	require.NoError(t, s.WhenCartReceiptRegenerated(ctx, cartID))

	require.NoError(t, s.ThenResponseOK())
	require.NoError(t, s.AwaitCartByCartID(ctx))
	require.NoError(t, s.ThenCartHasAttachments())
	require.NoError(t, s.ThenCartBlobExists(ctx))
}
