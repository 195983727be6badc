// Package queue provides the enqueue façade over the four pipeline queues:
// main and poison, for the single-receipt and cart flows. Message bodies are
// JSON serialized then base64 encoded, because the underlying queue transport
// requires text-safe payloads.
//
// Topics are opened through gocloud.dev/pubsub URLs; delivery and ordering
// guarantees are properties of the transport, not of this client, and no
// retries happen here.
package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"gocloud.dev/pubsub"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"

	// Register pubsub drivers.
	_ "gocloud.dev/pubsub/azuresb"
	_ "gocloud.dev/pubsub/mempubsub"
	_ "gocloud.dev/pubsub/rabbitpubsub"
)

// Selector names one of the pipeline queues.
type Selector string

// The four pipeline queues.
const (
	ReceiptQueue       Selector = "receipt"
	ReceiptPoisonQueue Selector = "receipt-poison"
	CartQueue          Selector = "cart"
	CartPoisonQueue    Selector = "cart-poison"
)

// URLs holds the pubsub URL of each pipeline queue.
type URLs struct {
	Receipt       string
	ReceiptPoison string
	Cart          string
	CartPoison    string
}

// Client submits messages to the pipeline queues. It is a process-wide
// singleton holding no scenario state.
type Client struct {
	topics map[Selector]*pubsub.Topic
}

// Open opens all four topics. Callers must Shutdown the client when done.
func Open(ctx context.Context, urls URLs) (*Client, error) {
	topics := map[Selector]*pubsub.Topic{}
	for selector, url := range map[Selector]string{
		ReceiptQueue:       urls.Receipt,
		ReceiptPoisonQueue: urls.ReceiptPoison,
		CartQueue:          urls.Cart,
		CartPoisonQueue:    urls.CartPoison,
	} {
		topic, err := pubsub.OpenTopic(ctx, url)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to open topic "+string(selector))
		}
		topics[selector] = topic
	}
	return &Client{topics: topics}, nil
}

// Enqueue serializes message to JSON, base64-encodes it and submits it to the
// selected queue. No acknowledgment beyond the transport's accept/reject.
func (c *Client) Enqueue(ctx context.Context, selector Selector, message any) error {
	topic, ok := c.topics[selector]
	if !ok {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "unknown queue selector "+string(selector))
	}

	raw, err := json.Marshal(message)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal queue message")
	}

	body := base64.StdEncoding.EncodeToString(raw)
	if err := topic.Send(ctx, &pubsub.Message{Body: []byte(body)}); err != nil {
		return apperrors.Wrap(apperrors.ErrTransport, err.Error())
	}
	return nil
}

// Shutdown closes all topics, reporting the first failure.
func (c *Client) Shutdown(ctx context.Context) error {
	var firstErr error
	for selector, topic := range c.topics {
		if err := topic.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = apperrors.Wrap(err, "failed to shutdown topic "+string(selector))
		}
	}
	return firstErr
}
