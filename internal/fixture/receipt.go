package fixture

import (
	validation "github.com/jellydator/validation"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

// Receipt is the single-notice projection keyed by eventId. The harness seeds
// it; the system under test owns status transitions and attachment metadata.
type Receipt struct {
	ID         string      `json:"id" docstore:"id"`
	EventID    string      `json:"eventId" docstore:"eventId"`
	EventData  ReceiptData `json:"eventData" docstore:"eventData"`
	Status     string      `json:"status" docstore:"status"`
	NumRetry   int         `json:"numRetry" docstore:"numRetry"`
	MdAttach   *Attachment `json:"mdAttach,omitempty" docstore:"mdAttach,omitempty"`
	InsertedAt int64       `json:"inserted_at,omitempty" docstore:"inserted_at,omitempty"`
}

// ReceiptData carries the tokenized identifiers and payee line items.
type ReceiptData struct {
	PayerFiscalCode  string        `json:"payerFiscalCode" docstore:"payerFiscalCode"`
	DebtorFiscalCode string        `json:"debtorFiscalCode" docstore:"debtorFiscalCode"`
	Amount           string        `json:"amount" docstore:"amount"`
	Cart             []ReceiptItem `json:"cart" docstore:"cart"`
}

// ReceiptItem is a payee/subject line of a receipt.
type ReceiptItem struct {
	PayeeName string `json:"payeeName" docstore:"payeeName"`
	Subject   string `json:"subject" docstore:"subject"`
}

// Attachment is the generated PDF metadata attached once rendering completed.
type Attachment struct {
	Name string `json:"name" docstore:"name"`
	URL  string `json:"url" docstore:"url"`
}

// ReceiptOptions configures receipt construction.
type ReceiptOptions struct {
	// ID is the event identifier the receipt projects; required. The document
	// id equals the event id for seeded fixtures.
	ID string
	// Status is the lifecycle status (default "INSERTED").
	Status string
	// Amount overrides the eventData amount (default "200").
	Amount string
	// InsertedAt stamps the document insertion time in epoch milliseconds.
	InsertedAt int64
}

// Validate checks option consistency.
func (o ReceiptOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.ID, validation.Required),
		validation.Field(&o.Status, validation.In(receiptStatuses...)),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

// NewReceipt builds a seed receipt document with pre-tokenized fiscal codes,
// modeling tokenization having already occurred upstream.
func NewReceipt(opts ReceiptOptions) (Receipt, error) {
	if err := opts.Validate(); err != nil {
		return Receipt{}, err
	}
	if opts.Status == "" {
		opts.Status = StatusInserted
	}
	if opts.Amount == "" {
		opts.Amount = "200"
	}

	return Receipt{
		ID:      opts.ID,
		EventID: opts.ID,
		EventData: ReceiptData{
			PayerFiscalCode:  TokenizedFiscalCode,
			DebtorFiscalCode: TokenizedFiscalCode,
			Amount:           opts.Amount,
			Cart: []ReceiptItem{
				{PayeeName: "Comune di Milano", Subject: "ACI"},
			},
		},
		Status:     opts.Status,
		NumRetry:   0,
		InsertedAt: opts.InsertedAt,
	}, nil
}
