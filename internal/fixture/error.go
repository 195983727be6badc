package fixture

import (
	"encoding/json"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

// Encrypter produces the opaque payload strings stored in quarantine records.
// Implemented by cipher.PayloadCipher.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// ErrorReceipt is the quarantine record for a single-receipt message the
// system under test could not process.
type ErrorReceipt struct {
	ID             string `json:"id" docstore:"id"`
	BizEventID     string `json:"bizEventId" docstore:"bizEventId"`
	MessagePayload string `json:"messagePayload" docstore:"messagePayload"`
	Status         string `json:"status" docstore:"status"`
}

// ErrorCart is the quarantine record for a cart message, referencing both the
// cart id and the originating transaction/event id.
type ErrorCart struct {
	ID             string `json:"id" docstore:"id"`
	CartID         string `json:"cartId,omitempty" docstore:"cartId,omitempty"`
	BizEventID     string `json:"bizEventId" docstore:"bizEventId"`
	MessagePayload string `json:"messagePayload" docstore:"messagePayload"`
	MessageError   string `json:"messageError,omitempty" docstore:"messageError,omitempty"`
	Status         string `json:"status" docstore:"status"`
}

// NewErrorReceipt builds a reviewed quarantine record whose payload is the
// encrypted JSON of the sibling events for the base id. A cipher failure is
// fatal for the fixture: an empty payload would make later assertions pass
// vacuously.
func NewErrorReceipt(enc Encrypter, opts EventOptions) (ErrorReceipt, error) {
	if err := opts.Validate(); err != nil {
		return ErrorReceipt{}, err
	}

	payload, err := encryptEvents(enc, opts, NewEvents)
	if err != nil {
		return ErrorReceipt{}, err
	}

	return ErrorReceipt{
		ID:             opts.ID,
		BizEventID:     opts.ID,
		MessagePayload: payload,
		Status:         ErrorStatusReviewed,
	}, nil
}

// NewErrorCart builds a reviewed quarantine record for the cart flow with an
// encrypted two-event payload and an encrypted error message.
func NewErrorCart(enc Encrypter, id, cartID, eventID string) (ErrorCart, error) {
	opts := EventOptions{ID: id, Count: 2, TransactionID: eventID}

	payload, err := encryptEvents(enc, opts, NewCartEvents)
	if err != nil {
		return ErrorCart{}, err
	}

	messageError, err := enc.Encrypt("error message")
	if err != nil {
		return ErrorCart{}, apperrors.Wrap(err, "failed to encrypt error message")
	}

	return ErrorCart{
		ID:             id,
		CartID:         cartID,
		BizEventID:     eventID,
		MessagePayload: payload,
		MessageError:   messageError,
		Status:         ErrorStatusReviewed,
	}, nil
}

func encryptEvents(enc Encrypter, opts EventOptions, build func(EventOptions) ([]BizEvent, error)) (string, error) {
	events, err := build(opts)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(events)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal events")
	}

	payload, err := enc.Encrypt(string(raw))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encrypt message payload")
	}
	return payload, nil
}
