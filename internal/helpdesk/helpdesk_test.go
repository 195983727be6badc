package helpdesk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

func TestRegenerateReceiptPdf(t *testing.T) {
	var gotPath, gotSubKey, gotCanary string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSubKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotCanary = r.Header.Get("X-CANARY")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"outcome":"OK"}`))
	}))
	defer server.Close()

	client := New(server.URL, " sub-key ", true)
	resp, err := client.RegenerateReceiptPdf(context.Background(), "R1")
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/receipts/R1/regenerate-receipt-pdf", gotPath)
	assert.Equal(t, "sub-key", gotSubKey)
	assert.Equal(t, "canary", gotCanary)
	assert.JSONEq(t, `{"outcome":"OK"}`, string(resp.Body))
}

func TestRegenerateCartReceiptPdf(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart-receipts/C1/regenerate-receipt-pdf", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-CANARY"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL+"/", "sub-key", false)
	resp, err := client.RegenerateCartReceiptPdf(context.Background(), "C1")
	require.NoError(t, err)

	// A 4xx is a response, not a transport error.
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNetworkFailureIsResponseShaped(t *testing.T) {
	client := New("http://127.0.0.1:1", "sub-key", false)
	resp, err := client.RegenerateReceiptPdf(context.Background(), "R1")

	require.NotNil(t, resp)
	assert.Zero(t, resp.StatusCode)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}
