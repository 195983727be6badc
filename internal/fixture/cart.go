package fixture

import (
	"fmt"

	validation "github.com/jellydator/validation"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

// Cart is the multi-notice aggregate keyed by id (the transaction id) and
// carrying a cartId, one line per sibling biz event, and payer-level
// attachment/message slots.
type Cart struct {
	CartID              string      `json:"cartId" docstore:"cartId"`
	ID                  string      `json:"id" docstore:"id"`
	Version             string      `json:"version" docstore:"version"`
	Payload             CartPayload `json:"payload" docstore:"payload"`
	Status              string      `json:"status" docstore:"status"`
	NumRetry            int         `json:"numRetry" docstore:"numRetry"`
	NotificationRetries int         `json:"notificationNumRetry" docstore:"notificationNumRetry"`
	ReasonErr           *string     `json:"reasonErr" docstore:"reasonErr"`
	InsertedAt          int64       `json:"inserted_at" docstore:"inserted_at"`
	GeneratedAt         int64       `json:"generated_at" docstore:"generated_at"`
	NotifiedAt          int64       `json:"notified_at" docstore:"notified_at"`
}

// CartPayload groups the payer-level data and the cart lines.
type CartPayload struct {
	PayerFiscalCode         string      `json:"payerFiscalCode" docstore:"payerFiscalCode"`
	TransactionCreationDate string      `json:"transactionCreationDate" docstore:"transactionCreationDate"`
	TotalNotice             string      `json:"totalNotice" docstore:"totalNotice"`
	TotalAmount             string      `json:"totalAmount" docstore:"totalAmount"`
	MdAttachPayer           *Attachment `json:"mdAttachPayer" docstore:"mdAttachPayer"`
	MessagePayer            *Message    `json:"messagePayer" docstore:"messagePayer"`
	Cart                    []CartItem  `json:"cart" docstore:"cart"`
	ReasonErrPayer          *string     `json:"reasonErrPayer" docstore:"reasonErrPayer"`
}

// CartItem is one notice of the aggregate, referencing its own biz event.
type CartItem struct {
	BizEventID       string      `json:"bizEventId" docstore:"bizEventId"`
	Subject          string      `json:"subject" docstore:"subject"`
	PayeeName        string      `json:"payeeName" docstore:"payeeName"`
	DebtorFiscalCode string      `json:"debtorFiscalCode" docstore:"debtorFiscalCode"`
	Amount           string      `json:"amount" docstore:"amount"`
	MdAttach         *Attachment `json:"mdAttach" docstore:"mdAttach"`
	MessageDebtor    *Message    `json:"messageDebtor" docstore:"messageDebtor"`
	ReasonErrDebtor  *string     `json:"reasonErrDebtor" docstore:"reasonErrDebtor"`
}

// Message is the courtesy message metadata sent alongside an attachment.
type Message struct {
	ID       string `json:"id" docstore:"id"`
	Subject  string `json:"subject" docstore:"subject"`
	Markdown string `json:"markdown" docstore:"markdown"`
}

// CartOptions configures cart construction.
type CartOptions struct {
	// ID is the transaction/event id partitioning the cart; required.
	ID string
	// CartID is the cart identifier; required.
	CartID string
	// Status is the lifecycle status (default "WAITING_FOR_BIZ_EVENT").
	Status string
	// InsertedAt stamps the document insertion time in epoch milliseconds.
	InsertedAt int64
	// WithAttachments populates attachment/message sub-objects for each line
	// and the payer slot. Attachments only exist once generation completed, so
	// they are populated only when Status is a notified terminal state.
	WithAttachments bool
}

// Validate checks option consistency.
func (o CartOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.ID, validation.Required),
		validation.Field(&o.CartID, validation.Required),
		validation.Field(&o.Status, validation.In(cartStatuses...)),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

// NewCart builds a seed cart document with two notice lines referencing the
// "bzN<id>" sibling event ids produced by NewCartEvents.
func NewCart(opts CartOptions) (Cart, error) {
	if err := opts.Validate(); err != nil {
		return Cart{}, err
	}
	if opts.Status == "" {
		opts.Status = StatusWaitingForBizEvnt
	}
	if opts.InsertedAt == 0 {
		opts.InsertedAt = 1762421981920
	}

	notified := opts.WithAttachments && opts.Status == StatusIONotified

	cart := Cart{
		CartID:  opts.CartID,
		ID:      opts.ID,
		Version: "1",
		Payload: CartPayload{
			PayerFiscalCode:         PayerFiscalCode,
			TransactionCreationDate: "2025-11-02T10:14:57.218496702Z",
			TotalNotice:             "2",
			TotalAmount:             "26,48",
			Cart: []CartItem{
				{
					BizEventID:       fmt.Sprintf("bz1%s", opts.ID),
					Subject:          "oggetto 1",
					PayeeName:        "Ministero delle infrastrutture e dei trasporti",
					DebtorFiscalCode: FiscalCode,
					Amount:           "16.0",
				},
				{
					BizEventID:       fmt.Sprintf("bz2%s", opts.ID),
					Subject:          "oggetto 2",
					PayeeName:        "Ministero delle infrastrutture e dei trasporti",
					DebtorFiscalCode: FiscalCode,
					Amount:           "10.2",
				},
			},
		},
		Status:     opts.Status,
		InsertedAt: opts.InsertedAt,
	}

	if notified {
		cart.Payload.MdAttachPayer = &Attachment{
			Name: fmt.Sprintf("pagopa-ricevuta-%s-p-c.pdf", opts.CartID),
			URL:  fmt.Sprintf("https://receipts.example.org/attachments/pagopa-ricevuta-%s-p-c.pdf", opts.CartID),
		}
		cart.Payload.MessagePayer = &Message{
			ID:       "01KBMCY97TG0TQJ70RQBE61GFK",
			Subject:  "Ricevuta di pagamento",
			Markdown: "Hai effettuato il pagamento di 2 avvisi. Ecco la ricevuta con i dettagli.",
		}
		for i := range cart.Payload.Cart {
			item := &cart.Payload.Cart[i]
			item.MdAttach = &Attachment{
				Name: fmt.Sprintf("pagopa-ricevuta-%s-%d-d-c.pdf", opts.CartID, i+1),
				URL:  fmt.Sprintf("https://receipts.example.org/attachments/pagopa-ricevuta-%s-%d-d-c.pdf", opts.CartID, i+1),
			}
			item.MessageDebtor = &Message{
				ID:       fmt.Sprintf("01KBMCY9HPXHQQHTDPBC1KF0A%d", i+1),
				Subject:  "Ricevuta del pagamento a Ministero delle infrastrutture e dei trasporti",
				Markdown: "È stato effettuato il pagamento di un avviso intestato a te. Ecco la ricevuta con i dettagli.",
			}
		}
	}

	return cart, nil
}
