package regenerate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/config"
	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
)

func testContainer(t *testing.T, helpdeskURL string) *app.Container {
	t.Helper()
	suffix := uuid.NewString()
	cfg := &config.Config{
		ReceiptsDocstoreURL: fmt.Sprintf("mem://receipts-%s/id", suffix),
		CartsDocstoreURL:    fmt.Sprintf("mem://cart-receipts-%s/id", suffix),
		HelpdeskURL:         helpdeskURL,
		HelpdeskSubKey:      "test-subkey",
		RegenerateThrottle:  time.Millisecond,
		RegenerateFrom:      "2026-01-01",
		RegenerateTo:        "2026-01-31",
		LogLevel:            "error",
	}
	container := app.NewContainer(cfg)
	t.Cleanup(func() {
		require.NoError(t, container.Shutdown(context.Background()))
	})
	return container
}

func seedReceipt(t *testing.T, container *app.Container, id, status, amount string, insertedAt int64) {
	t.Helper()
	ctx := context.Background()
	receipts, err := container.Receipts(ctx)
	require.NoError(t, err)
	receipt, err := fixture.NewReceipt(fixture.ReceiptOptions{
		ID:         id,
		Status:     status,
		Amount:     amount,
		InsertedAt: insertedAt,
	})
	require.NoError(t, err)
	_, err = receipts.Create(ctx, &receipt, id, id)
	require.NoError(t, err)
}

func TestReceipts(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /receipts/{id}/regenerate-receipt-pdf", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	container := testContainer(t, server.URL)
	inWindow := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	outOfWindow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

	seedReceipt(t, container, "broken-amount", fixture.StatusIONotified, "200", inWindow)
	seedReceipt(t, container, "good-amount", fixture.StatusIONotified, "200.50", inWindow)
	seedReceipt(t, container, "wrong-status", fixture.StatusInserted, "200", inWindow)
	seedReceipt(t, container, "outside-window", fixture.StatusIONotified, "200", outOfWindow)

	summary, err := New(container).Receipts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReceiptsCountsFailedRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	container := testContainer(t, server.URL)
	inWindow := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	seedReceipt(t, container, "broken-amount", fixture.StatusIONotified, "200", inWindow)

	summary, err := New(container).Receipts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
}

func TestCarts(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /cart-receipts/{id}/regenerate-receipt-pdf", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	container := testContainer(t, server.URL)
	ctx := context.Background()
	carts, err := container.Carts(ctx)
	require.NoError(t, err)

	inWindow := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC).UnixMilli()

	broken, err := fixture.NewCart(fixture.CartOptions{
		ID:         "tx-broken",
		CartID:     "cart-broken",
		Status:     fixture.StatusIONotified,
		InsertedAt: inWindow,
	})
	require.NoError(t, err)
	broken.Payload.Cart[0].Amount = "16"
	_, err = carts.Create(ctx, &broken, broken.ID, broken.CartID)
	require.NoError(t, err)

	// Default line amounts carry decimal points, so this one is skipped.
	good, err := fixture.NewCart(fixture.CartOptions{
		ID:         "tx-good",
		CartID:     "cart-good",
		Status:     fixture.StatusIONotified,
		InsertedAt: inWindow,
	})
	require.NoError(t, err)
	_, err = carts.Create(ctx, &good, good.ID, good.CartID)
	require.NoError(t, err)

	summary, err := New(container).Carts(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWindowValidation(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"missing from", "", "2026-01-31"},
		{"missing to", "2026-01-01", ""},
		{"malformed from", "01/01/2026", "2026-01-31"},
		{"malformed to", "2026-01-01", "yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := testContainer(t, "http://localhost")
			container.Config().RegenerateFrom = tt.from
			container.Config().RegenerateTo = tt.to

			_, err := New(container).Receipts(context.Background())
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}
