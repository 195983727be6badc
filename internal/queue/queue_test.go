package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/pubsub"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
)

// topicURL names a mem topic per test: mempubsub caches topics process-wide
// by name and a shutdown topic stays unusable, so tests must not share names.
func topicURL(t *testing.T, name string) string {
	return "mem://" + t.Name() + "-" + name
}

func openClient(t *testing.T) *Client {
	t.Helper()

	ctx := context.Background()
	client, err := Open(ctx, URLs{
		Receipt:       topicURL(t, "receipt"),
		ReceiptPoison: topicURL(t, "receipt-poison"),
		Cart:          topicURL(t, "cart"),
		CartPoison:    topicURL(t, "cart-poison"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := client.Shutdown(ctx); err != nil {
			t.Logf("failed to shutdown queue client: %v", err)
		}
	})
	return client
}

func subscribe(t *testing.T, url string) *pubsub.Subscription {
	t.Helper()

	ctx := context.Background()
	sub, err := pubsub.OpenSubscription(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := sub.Shutdown(ctx); err != nil {
			t.Logf("failed to shutdown subscription: %v", err)
		}
	})
	return sub
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	client := openClient(t)
	sub := subscribe(t, topicURL(t, "receipt"))

	events, err := fixture.NewEvents(fixture.EventOptions{ID: "R1"})
	require.NoError(t, err)
	require.NoError(t, client.Enqueue(ctx, ReceiptQueue, events[0]))

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := sub.Receive(recvCtx)
	require.NoError(t, err)
	msg.Ack()

	// The body is base64(JSON).
	raw, err := base64.StdEncoding.DecodeString(string(msg.Body))
	require.NoError(t, err)

	var received fixture.BizEvent
	require.NoError(t, json.Unmarshal(raw, &received))
	assert.Equal(t, "R1", received.ID)
	assert.Equal(t, "DONE", received.EventStatus)
}

func TestEnqueueEventList(t *testing.T) {
	ctx := context.Background()
	client := openClient(t)
	sub := subscribe(t, topicURL(t, "cart"))

	events, err := fixture.NewCartEvents(fixture.EventOptions{ID: "C1", Count: 2, TransactionID: "T1"})
	require.NoError(t, err)
	require.NoError(t, client.Enqueue(ctx, CartQueue, events))

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := sub.Receive(recvCtx)
	require.NoError(t, err)
	msg.Ack()

	raw, err := base64.StdEncoding.DecodeString(string(msg.Body))
	require.NoError(t, err)

	var received []fixture.BizEvent
	require.NoError(t, json.Unmarshal(raw, &received))
	require.Len(t, received, 2)
	assert.Equal(t, "bz1C1", received[0].ID)
	assert.Equal(t, "bz2C1", received[1].ID)
}

func TestEnqueueUnknownSelector(t *testing.T) {
	client := openClient(t)
	err := client.Enqueue(context.Background(), Selector("unknown"), "message")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
