// Package helpdesk is the HTTP client for the system under test's helpdesk
// API, used to trigger on-demand PDF regeneration.
package helpdesk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

const (
	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	canaryHeader          = "X-CANARY"
)

// Response is the raw outcome of a helpdesk call. Network failures are
// surfaced as a response-shaped value (StatusCode zero) together with a
// transport error, so callers can treat every outcome uniformly.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client calls the helpdesk API. Safe for concurrent use.
type Client struct {
	baseURL    string
	subKey     string
	canary     bool
	httpClient *http.Client
}

// New creates a helpdesk client for the given base URL. The subscription key
// is trimmed the way the APIM gateway expects it.
func New(baseURL, subKey string, canary bool) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		subKey:     strings.TrimSpace(subKey),
		canary:     canary,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RegenerateReceiptPdf requests regeneration of the single receipt for the
// given biz event id.
func (c *Client) RegenerateReceiptPdf(ctx context.Context, eventID string) (*Response, error) {
	return c.post(ctx, fmt.Sprintf("/receipts/%s/regenerate-receipt-pdf", eventID))
}

// RegenerateCartReceiptPdf requests regeneration of the multi-notice receipt
// for the given cart id.
func (c *Client) RegenerateCartReceiptPdf(ctx context.Context, cartID string) (*Response, error) {
	return c.post(ctx, fmt.Sprintf("/cart-receipts/%s/regenerate-receipt-pdf", cartID))
}

func (c *Client) post(ctx context.Context, path string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader("{}"))
	if err != nil {
		return &Response{}, apperrors.Wrap(err, "failed to create helpdesk request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(subscriptionKeyHeader, c.subKey)
	if c.canary {
		req.Header.Set(canaryHeader, "canary")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Response{}, apperrors.Wrap(apperrors.ErrTransport, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Response{StatusCode: resp.StatusCode}, apperrors.Wrap(apperrors.ErrTransport, err.Error())
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
