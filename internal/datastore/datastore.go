// Package datastore provides the document-store façade used by the harness:
// one parameterized client per logical collection (receipts, message errors,
// carts, biz events) with idempotent delete-before-create semantics.
//
// Collections are opened through gocloud.dev/docstore URLs so the same client
// runs against the in-memory driver in tests and the Cosmos DB Mongo API in
// real environments.
package datastore

import (
	"context"
	"io"
	"log/slog"

	"gocloud.dev/docstore"
	"gocloud.dev/gcerrors"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"

	// Register docstore drivers.
	_ "gocloud.dev/docstore/memdocstore"
	_ "gocloud.dev/docstore/mongodocstore"
)

// keyField is the primary key of every harness collection.
const keyField = "id"

// Created-status signals mirroring the document API the harness asserts on.
const (
	StatusCreated  = 201
	StatusConflict = 409
)

// Options parameterizes a collection client: which secondary field lookups
// query on, which field bounds report windows, and whether insert conflicts
// self-heal by clearing prior documents for the same lookup value.
type Options struct {
	// LookupField is the secondary query field (default "eventId").
	LookupField string
	// WindowField is the epoch-millis field bounding report windows
	// (default "inserted_at"; biz events use "timestamp").
	WindowField string
	// HealOnConflict enables the delete-all-then-retry-once cycle on insert
	// conflicts, modeling "exactly one live fixture per event".
	HealOnConflict bool
}

func (o Options) withDefaults() Options {
	if o.LookupField == "" {
		o.LookupField = "eventId"
	}
	if o.WindowField == "" {
		o.WindowField = "inserted_at"
	}
	return o
}

// Client wraps one document collection with the harness CRUD contract.
// Instances are process-wide and hold no scenario state; per-key isolation is
// the scenario layer's responsibility.
type Client[T any] struct {
	coll   *docstore.Collection
	opts   Options
	logger *slog.Logger
}

// CreateResult carries the created-status signal of an insert.
type CreateResult struct {
	StatusCode int
}

// QueryResult is the list envelope returned by lookups. An empty Resources
// slice means not found; it is never an error.
type QueryResult[T any] struct {
	Resources []T
}

// Open opens the collection at the given docstore URL.
func Open[T any](ctx context.Context, url string, opts Options, logger *slog.Logger) (*Client[T], error) {
	coll, err := docstore.OpenCollection(ctx, url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open docstore collection")
	}
	return &Client[T]{coll: coll, opts: opts.withDefaults(), logger: logger}, nil
}

// Close releases the underlying collection.
func (c *Client[T]) Close() error {
	return c.coll.Close()
}

// Create inserts a document. On conflict, when the client is configured with
// HealOnConflict and the document's key is supplied, every prior document for
// the same key and lookup value is deleted and the insert retried exactly
// once. This models "exactly one live fixture per event".
func (c *Client[T]) Create(ctx context.Context, doc *T, key, lookup string) (*CreateResult, error) {
	err := c.coll.Create(ctx, doc)
	if err == nil {
		return &CreateResult{StatusCode: StatusCreated}, nil
	}
	if gcerrors.Code(err) != gcerrors.AlreadyExists {
		return nil, apperrors.Wrap(apperrors.ErrTransport, err.Error())
	}

	if !c.opts.HealOnConflict || key == "" {
		return &CreateResult{StatusCode: StatusConflict}, apperrors.Wrap(apperrors.ErrConflict, "document already exists")
	}

	// Exactly one cleanup-and-retry cycle.
	c.logger.Warn("insert conflict, clearing prior documents",
		slog.String("key", key),
		slog.String("lookup", lookup),
	)
	if err := c.DeleteByKey(ctx, key); err != nil {
		return nil, err
	}
	if lookup != "" {
		if err := c.DeleteAllByLookup(ctx, lookup); err != nil {
			return nil, err
		}
	}
	if err := c.coll.Create(ctx, doc); err != nil {
		if gcerrors.Code(err) == gcerrors.AlreadyExists {
			return &CreateResult{StatusCode: StatusConflict}, apperrors.Wrap(apperrors.ErrConflict, "document already exists after cleanup")
		}
		return nil, apperrors.Wrap(apperrors.ErrTransport, err.Error())
	}
	return &CreateResult{StatusCode: StatusCreated}, nil
}

// GetByKey queries the document with the given primary key. The interface
// always returns a list envelope: an empty list is not found, not an error.
func (c *Client[T]) GetByKey(ctx context.Context, key string) (*QueryResult[T], error) {
	return c.getByField(ctx, keyField, key)
}

// GetByLookup queries documents whose configured lookup field equals value.
// The harness invariant is one document per key; callers assert on the count.
func (c *Client[T]) GetByLookup(ctx context.Context, value string) (*QueryResult[T], error) {
	return c.getByField(ctx, c.opts.LookupField, value)
}

func (c *Client[T]) getByField(ctx context.Context, field, value string) (*QueryResult[T], error) {
	iter := c.coll.Query().Where(docstore.FieldPath(field), "=", value).Get(ctx)
	defer iter.Stop()

	result := &QueryResult[T]{Resources: []T{}}
	for {
		var doc T
		err := iter.Next(ctx, &doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrTransport, err.Error())
		}
		result.Resources = append(result.Resources, doc)
	}
	return result, nil
}

// Replace overwrites the stored document with the same primary key. The
// harness only seeds and deletes; derived-state writers use this.
func (c *Client[T]) Replace(ctx context.Context, doc *T) error {
	err := c.coll.Replace(ctx, doc)
	if err == nil {
		return nil
	}
	if gcerrors.Code(err) == gcerrors.NotFound {
		return apperrors.Wrap(apperrors.ErrNotFound, err.Error())
	}
	return apperrors.Wrap(apperrors.ErrTransport, err.Error())
}

// DeleteByKey deletes the document with the given primary key. A not-found
// result is success: cleanup paths call this repeatedly.
func (c *Client[T]) DeleteByKey(ctx context.Context, key string) error {
	err := c.coll.Delete(ctx, map[string]any{keyField: key})
	if err == nil || gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrTransport, err.Error())
}

// DeleteAllByLookup deletes every document matching the lookup value,
// resolving each primary key first. Used when the partition key is not known
// directly (e.g., error receipts addressed by the originating biz event id).
func (c *Client[T]) DeleteAllByLookup(ctx context.Context, value string) error {
	keys, err := c.keysByLookup(ctx, value)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.DeleteByKey(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// CountByStatus counts documents per status inside the [from, to] window of
// the configured window field. The grouping happens client-side: the
// underlying stores expose no aggregate queries through this interface.
func (c *Client[T]) CountByStatus(ctx context.Context, from, to int64) (map[string]int, error) {
	iter := c.coll.Query().
		Where(docstore.FieldPath(c.opts.WindowField), ">=", from).
		Where(docstore.FieldPath(c.opts.WindowField), "<=", to).
		Get(ctx, "status")
	defer iter.Stop()

	counts := map[string]int{}
	for {
		var doc struct {
			ID     string `docstore:"id"`
			Status string `docstore:"status"`
		}
		err := iter.Next(ctx, &doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrTransport, err.Error())
		}
		counts[doc.Status]++
	}
	return counts, nil
}

// CountInWindow counts all documents inside the [from, to] window of the
// configured window field.
func (c *Client[T]) CountInWindow(ctx context.Context, from, to int64) (int, error) {
	iter := c.coll.Query().
		Where(docstore.FieldPath(c.opts.WindowField), ">=", from).
		Where(docstore.FieldPath(c.opts.WindowField), "<=", to).
		Get(ctx, keyField)
	defer iter.Stop()

	count := 0
	for {
		var doc struct {
			ID string `docstore:"id"`
		}
		err := iter.Next(ctx, &doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, apperrors.Wrap(apperrors.ErrTransport, err.Error())
		}
		count++
	}
	return count, nil
}

// ListByStatusInWindow returns the full documents with the given status inside
// the [from, to] window. The regenerate tool post-filters these client-side.
func (c *Client[T]) ListByStatusInWindow(ctx context.Context, status string, from, to int64) ([]T, error) {
	iter := c.coll.Query().
		Where(docstore.FieldPath(c.opts.WindowField), ">=", from).
		Where(docstore.FieldPath(c.opts.WindowField), "<=", to).
		Where(docstore.FieldPath("status"), "=", status).
		Get(ctx)
	defer iter.Stop()

	var docs []T
	for {
		var doc T
		err := iter.Next(ctx, &doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrTransport, err.Error())
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *Client[T]) keysByLookup(ctx context.Context, value string) ([]string, error) {
	iter := c.coll.Query().Where(docstore.FieldPath(c.opts.LookupField), "=", value).Get(ctx, keyField)
	defer iter.Stop()

	var keys []string
	for {
		var doc struct {
			ID string `docstore:"id"`
		}
		err := iter.Next(ctx, &doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrTransport, err.Error())
		}
		keys = append(keys, doc.ID)
	}
	return keys, nil
}
