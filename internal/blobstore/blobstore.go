// Package blobstore checks for the existence of generated PDF artifacts.
// The caller only ever needs existence, not content.
package blobstore

import (
	"context"

	"gocloud.dev/blob"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"

	// Register blob drivers.
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// Checker looks up generated PDFs by blob name.
type Checker struct {
	bucket *blob.Bucket
}

// OpenBucket opens the bucket at the given blob URL and wraps it in a Checker.
func OpenBucket(ctx context.Context, url string) (*Checker, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open blob bucket")
	}
	return NewChecker(bucket), nil
}

// NewChecker wraps an already-open bucket. The caller retains ownership when
// constructing this way; Close is still safe to call once.
func NewChecker(bucket *blob.Bucket) *Checker {
	return &Checker{bucket: bucket}
}

// Exists reports whether a blob with the given name exists. Not-found is
// false with a nil error; only transport-level failures (authentication,
// network) surface as errors.
func (c *Checker) Exists(ctx context.Context, blobName string) (bool, error) {
	exists, err := c.bucket.Exists(ctx, blobName)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrTransport, err.Error())
	}
	return exists, nil
}

// Bucket exposes the underlying bucket for collaborators that seed artifacts.
func (c *Checker) Bucket() *blob.Bucket {
	return c.bucket
}

// Close releases the underlying bucket.
func (c *Checker) Close() error {
	return c.bucket.Close()
}
