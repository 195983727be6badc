package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/app"
	"github.com/pagopa/pagopa-receipt-pdf-harness/internal/fixture"
)

// NewHelpdeskServer returns a test server implementing the two regenerate
// endpoints against the container's stores: regenerating rewrites the
// attachment metadata and the PDF blob the way the real helpdesk does.
// Callers own the server and must Close it.
func NewHelpdeskServer(container *app.Container) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /receipts/{id}/regenerate-receipt-pdf", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID := r.PathValue("id")

		bizEvents, err := container.BizEvents(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		stored, err := bizEvents.GetByKey(ctx, eventID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(stored.Resources) == 0 {
			http.Error(w, "biz event not found", http.StatusNotFound)
			return
		}

		receipts, err := container.Receipts(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		found, err := receipts.GetByLookup(ctx, eventID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(found.Resources) == 0 {
			http.Error(w, "receipt not found", http.StatusNotFound)
			return
		}

		receipt := found.Resources[0]
		receipt.Status = fixture.StatusGenerated
		receipt.MdAttach = writeAttachment(ctx, container, container.Logger(), fmt.Sprintf("pagopa-ricevuta-%s.pdf", eventID))
		if err := receipts.Replace(ctx, &receipt); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /cart-receipts/{id}/regenerate-receipt-pdf", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID := r.PathValue("id")

		carts, err := container.Carts(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		found, err := carts.GetByLookup(ctx, cartID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(found.Resources) == 0 {
			http.Error(w, "cart not found", http.StatusNotFound)
			return
		}

		cart := found.Resources[0]
		cart.Payload.MdAttachPayer = writeAttachment(ctx, container, container.Logger(), fmt.Sprintf("pagopa-ricevuta-%s-p.pdf", cartID))
		for i := range cart.Payload.Cart {
			cart.Payload.Cart[i].MdAttach = writeAttachment(ctx, container, container.Logger(), fmt.Sprintf("pagopa-ricevuta-%s-%d-d.pdf", cartID, i+1))
		}
		if err := carts.Replace(ctx, &cart); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux)
}
