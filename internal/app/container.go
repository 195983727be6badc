// Package app provides a dependency injection container for assembling the
// harness clients.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/blobstore"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/cipher"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/config"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/datastore"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/helpdesk"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/queue"
)

// Container holds all harness dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first
// access. Every caller sharing a container shares the same client instances,
// which also makes the in-memory drivers behave like one backing store across
// the seeding, stimulation and assertion code paths.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger   *slog.Logger
	cipher   *cipher.PayloadCipher
	queue    *queue.Client
	blob     *blobstore.Checker
	helpdesk *helpdesk.Client

	// Datastore clients, one per collection
	receipts      *datastore.Client[fixture.Receipt]
	errorReceipts *datastore.Client[fixture.ErrorReceipt]
	carts         *datastore.Client[fixture.Cart]
	errorCarts    *datastore.Client[fixture.ErrorCart]
	bizEvents     *datastore.Client[fixture.BizEvent]

	// Initialization flags and mutex for thread-safety
	mu                sync.Mutex
	loggerInit        sync.Once
	cipherInit        sync.Once
	queueInit         sync.Once
	blobInit          sync.Once
	helpdeskInit      sync.Once
	receiptsInit      sync.Once
	errorReceiptsInit sync.Once
	cartsInit         sync.Once
	errorCartsInit    sync.Once
	bizEventsInit     sync.Once
	initErrors        map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the harness configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// Cipher returns the payload cipher shared with the pipeline under test.
func (c *Container) Cipher() (*cipher.PayloadCipher, error) {
	var err error
	c.cipherInit.Do(func() {
		c.cipher, err = cipher.New(c.config.AESSecretKey, c.config.AESSalt)
		if err != nil {
			c.initErrors["cipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cipher"]; exists {
		return nil, storedErr
	}
	return c.cipher, nil
}

// Queue returns the pipeline queue client.
func (c *Container) Queue(ctx context.Context) (*queue.Client, error) {
	var err error
	c.queueInit.Do(func() {
		c.queue, err = queue.Open(ctx, queue.URLs{
			Receipt:       c.config.ReceiptQueueURL,
			ReceiptPoison: c.config.ReceiptPoisonQueueURL,
			Cart:          c.config.CartQueueURL,
			CartPoison:    c.config.CartPoisonQueueURL,
		})
		if err != nil {
			c.initErrors["queue"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queue"]; exists {
		return nil, storedErr
	}
	return c.queue, nil
}

// Blob returns the generated-PDF container checker.
func (c *Container) Blob(ctx context.Context) (*blobstore.Checker, error) {
	var err error
	c.blobInit.Do(func() {
		c.blob, err = blobstore.OpenBucket(ctx, c.config.BlobBucketURL)
		if err != nil {
			c.initErrors["blob"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["blob"]; exists {
		return nil, storedErr
	}
	return c.blob, nil
}

// Helpdesk returns the helpdesk API client.
func (c *Container) Helpdesk() *helpdesk.Client {
	c.helpdeskInit.Do(func() {
		c.helpdesk = helpdesk.New(c.config.HelpdeskURL, c.config.HelpdeskSubKey, c.config.Canary)
	})
	return c.helpdesk
}

// Receipts returns the datastore client for the receipts collection.
func (c *Container) Receipts(ctx context.Context) (*datastore.Client[fixture.Receipt], error) {
	var err error
	c.receiptsInit.Do(func() {
		c.receipts, err = datastore.Open[fixture.Receipt](ctx, c.config.ReceiptsDocstoreURL, datastore.Options{
			LookupField:    "eventId",
			WindowField:    "inserted_at",
			HealOnConflict: true,
		}, c.Logger())
		if err != nil {
			c.initErrors["receipts"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["receipts"]; exists {
		return nil, storedErr
	}
	return c.receipts, nil
}

// ErrorReceipts returns the datastore client for the receipt-message-errors
// collection.
func (c *Container) ErrorReceipts(ctx context.Context) (*datastore.Client[fixture.ErrorReceipt], error) {
	var err error
	c.errorReceiptsInit.Do(func() {
		c.errorReceipts, err = datastore.Open[fixture.ErrorReceipt](ctx, c.config.ErrorReceiptsDocstoreURL, datastore.Options{
			LookupField: "bizEventId",
		}, c.Logger())
		if err != nil {
			c.initErrors["errorReceipts"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["errorReceipts"]; exists {
		return nil, storedErr
	}
	return c.errorReceipts, nil
}

// Carts returns the datastore client for the cart receipts collection.
func (c *Container) Carts(ctx context.Context) (*datastore.Client[fixture.Cart], error) {
	var err error
	c.cartsInit.Do(func() {
		c.carts, err = datastore.Open[fixture.Cart](ctx, c.config.CartsDocstoreURL, datastore.Options{
			LookupField:    "cartId",
			WindowField:    "inserted_at",
			HealOnConflict: true,
		}, c.Logger())
		if err != nil {
			c.initErrors["carts"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["carts"]; exists {
		return nil, storedErr
	}
	return c.carts, nil
}

// ErrorCarts returns the datastore client for the cart-message-errors
// collection.
func (c *Container) ErrorCarts(ctx context.Context) (*datastore.Client[fixture.ErrorCart], error) {
	var err error
	c.errorCartsInit.Do(func() {
		c.errorCarts, err = datastore.Open[fixture.ErrorCart](ctx, c.config.ErrorCartsDocstoreURL, datastore.Options{
			LookupField: "bizEventId",
		}, c.Logger())
		if err != nil {
			c.initErrors["errorCarts"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["errorCarts"]; exists {
		return nil, storedErr
	}
	return c.errorCarts, nil
}

// BizEvents returns the datastore client for the biz-events collection.
func (c *Container) BizEvents(ctx context.Context) (*datastore.Client[fixture.BizEvent], error) {
	var err error
	c.bizEventsInit.Do(func() {
		c.bizEvents, err = datastore.Open[fixture.BizEvent](ctx, c.config.BizEventsDocstoreURL, datastore.Options{
			LookupField: "transactionDetails.transaction.transactionId",
			WindowField: "timestamp",
		}, c.Logger())
		if err != nil {
			c.initErrors["bizEvents"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bizEvents"]; exists {
		return nil, storedErr
	}
	return c.bizEvents, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the harness is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.queue != nil {
		if err := c.queue.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("queue shutdown: %w", err))
		}
	}

	if c.blob != nil {
		if err := c.blob.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("blob close: %w", err))
		}
	}

	if c.receipts != nil {
		if err := c.receipts.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("receipts close: %w", err))
		}
	}
	if c.errorReceipts != nil {
		if err := c.errorReceipts.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("error receipts close: %w", err))
		}
	}
	if c.carts != nil {
		if err := c.carts.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("carts close: %w", err))
		}
	}
	if c.errorCarts != nil {
		if err := c.errorCarts.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("error carts close: %w", err))
		}
	}
	if c.bizEvents != nil {
		if err := c.bizEvents.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("biz events close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
