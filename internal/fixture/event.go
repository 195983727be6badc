// Package fixture builds canonical domain payloads for the receipt generation
// pipeline: biz events, receipts, carts and quarantine records. Builders are
// pure and deterministic given explicit options; omitted optional fields fall
// back to fixed defaults so scenarios not exercising a dimension stay stable.
package fixture

import (
	"fmt"

	validation "github.com/jellydator/validation"

	apperrors "github.com/pagopa/pagopa-receipt-pdf-harness/internal/errors"
)

// Placeholder identifiers shared with the system under test's test environment.
const (
	FiscalCode          = "AAAAAA00A00A000A"
	PayerFiscalCode     = "BBAAAA00A00A000A"
	TokenizedFiscalCode = "cd07268c-73e8-4df4-8305-a35085e32eff"

	StandardNoticeNumber = "310391366991197059"
	StandardIUV          = "10391366991197059"

	defaultTransactionID = "receipt-generator-int-test-transactionId"
	defaultTimestamp     = 1679067463501
)

// FiscalCodeMode selects the value stored in the debtor/payer identifier
// fields: the plain placeholder, or the pre-computed tokenized value that
// simulates upstream tokenization having already occurred.
type FiscalCodeMode string

// Supported fiscal-code modes.
const (
	FiscalCodePlain     FiscalCodeMode = "plain"
	FiscalCodeTokenized FiscalCodeMode = "tokenized"
)

// BizEvent is the inbound payment notification that seeds receipt generation.
type BizEvent struct {
	ID                        string             `json:"id" docstore:"id"`
	Version                   string             `json:"version" docstore:"version"`
	IDPaymentManager          string             `json:"idPaymentManager" docstore:"idPaymentManager"`
	Complete                  string             `json:"complete" docstore:"complete"`
	ReceiptID                 string             `json:"receiptId" docstore:"receiptId"`
	AttemptedPoisonRetry      bool               `json:"attemptedPoisonRetry" docstore:"attemptedPoisonRetry"`
	MissingInfo               []string           `json:"missingInfo" docstore:"missingInfo"`
	DebtorPosition            DebtorPosition     `json:"debtorPosition" docstore:"debtorPosition"`
	Creditor                  Creditor           `json:"creditor" docstore:"creditor"`
	Psp                       Psp                `json:"psp" docstore:"psp"`
	Debtor                    Subject            `json:"debtor" docstore:"debtor"`
	Payer                     Subject            `json:"payer" docstore:"payer"`
	PaymentInfo               PaymentInfo        `json:"paymentInfo" docstore:"paymentInfo"`
	TransferList              []Transfer         `json:"transferList" docstore:"transferList"`
	TransactionDetails        TransactionDetails `json:"transactionDetails" docstore:"transactionDetails"`
	Timestamp                 int64              `json:"timestamp" docstore:"timestamp"`
	Properties                map[string]string  `json:"properties" docstore:"properties"`
	EventStatus               string             `json:"eventStatus" docstore:"eventStatus"`
	EventRetryEnrichmentCount int                `json:"eventRetryEnrichmentCount" docstore:"eventRetryEnrichmentCount"`
}

// DebtorPosition identifies the paid notice.
type DebtorPosition struct {
	ModelType    string `json:"modelType" docstore:"modelType"`
	NoticeNumber string `json:"noticeNumber" docstore:"noticeNumber"`
	IUV          string `json:"iuv" docstore:"iuv"`
}

// Creditor is the public-administration block of a biz event.
type Creditor struct {
	IDPA        string `json:"idPA" docstore:"idPA"`
	IDBrokerPA  string `json:"idBrokerPA" docstore:"idBrokerPA"`
	IDStation   string `json:"idStation" docstore:"idStation"`
	CompanyName string `json:"companyName" docstore:"companyName"`
	OfficeName  string `json:"officeName,omitempty" docstore:"officeName,omitempty"`
}

// Psp is the payment-service-provider block of a biz event.
type Psp struct {
	IDPsp              string `json:"idPsp" docstore:"idPsp"`
	IDBrokerPsp        string `json:"idBrokerPsp" docstore:"idBrokerPsp"`
	IDChannel          string `json:"idChannel" docstore:"idChannel"`
	Psp                string `json:"psp" docstore:"psp"`
	PspFiscalCode      string `json:"pspFiscalCode,omitempty" docstore:"pspFiscalCode,omitempty"`
	ChannelDescription string `json:"channelDescription,omitempty" docstore:"channelDescription,omitempty"`
}

// Subject is a debtor or payer block.
type Subject struct {
	FullName                    string `json:"fullName" docstore:"fullName"`
	EntityUniqueIdentifierType  string `json:"entityUniqueIdentifierType" docstore:"entityUniqueIdentifierType"`
	EntityUniqueIdentifierValue string `json:"entityUniqueIdentifierValue" docstore:"entityUniqueIdentifierValue"`
	StreetName                  string `json:"streetName" docstore:"streetName"`
	CivicNumber                 string `json:"civicNumber" docstore:"civicNumber"`
	PostalCode                  string `json:"postalCode" docstore:"postalCode"`
	City                        string `json:"city" docstore:"city"`
	StateProvinceRegion         string `json:"stateProvinceRegion" docstore:"stateProvinceRegion"`
	Country                     string `json:"country" docstore:"country"`
	Email                       string `json:"eMail" docstore:"eMail"`
}

// PaymentInfo carries the payment details of a biz event.
type PaymentInfo struct {
	PaymentDateTime       string     `json:"paymentDateTime" docstore:"paymentDateTime"`
	ApplicationDate       string     `json:"applicationDate" docstore:"applicationDate"`
	TransferDate          string     `json:"transferDate" docstore:"transferDate"`
	DueDate               string     `json:"dueDate" docstore:"dueDate"`
	PaymentToken          string     `json:"paymentToken" docstore:"paymentToken"`
	Amount                string     `json:"amount" docstore:"amount"`
	Fee                   string     `json:"fee" docstore:"fee"`
	TotalNotice           string     `json:"totalNotice" docstore:"totalNotice"`
	PaymentMethod         string     `json:"paymentMethod" docstore:"paymentMethod"`
	Touchpoint            string     `json:"touchpoint" docstore:"touchpoint"`
	RemittanceInformation string     `json:"remittanceInformation" docstore:"remittanceInformation"`
	Description           string     `json:"description" docstore:"description"`
	Metadata              []Metadata `json:"metadata" docstore:"metadata"`
}

// Metadata is a key/value entry attached to payment info.
type Metadata struct {
	Key   string `json:"key" docstore:"key"`
	Value string `json:"value" docstore:"value"`
}

// Transfer is a single entry of the biz event transfer list.
type Transfer struct {
	IDTransfer            string `json:"idTransfer" docstore:"idTransfer"`
	FiscalCodePA          string `json:"fiscalCodePA" docstore:"fiscalCodePA"`
	CompanyName           string `json:"companyName" docstore:"companyName"`
	Amount                string `json:"amount" docstore:"amount"`
	TransferCategory      string `json:"transferCategory" docstore:"transferCategory"`
	RemittanceInformation string `json:"remittanceInformation" docstore:"remittanceInformation"`
}

// TransactionDetails nests the wallet user and payment-manager transaction.
type TransactionDetails struct {
	User        TransactionUser `json:"user" docstore:"user"`
	Transaction Transaction     `json:"transaction" docstore:"transaction"`
}

// TransactionUser identifies the wallet user that triggered the payment.
type TransactionUser struct {
	FullName              string `json:"fullName" docstore:"fullName"`
	Type                  string `json:"type" docstore:"type"`
	FiscalCode            string `json:"fiscalCode" docstore:"fiscalCode"`
	NotificationEmail     string `json:"notificationEmail" docstore:"notificationEmail"`
	UserID                string `json:"userId" docstore:"userId"`
	UserStatus            string `json:"userStatus" docstore:"userStatus"`
	UserStatusDescription string `json:"userStatusDescription" docstore:"userStatusDescription"`
}

// Transaction is the payment-manager transaction block. TransactionID is the
// aggregate key shared by every sibling event of a cart.
type Transaction struct {
	IDTransaction string `json:"idTransaction" docstore:"idTransaction"`
	TransactionID string `json:"transactionId" docstore:"transactionId"`
	GrandTotal    int64  `json:"grandTotal" docstore:"grandTotal"`
	Amount        int64  `json:"amount" docstore:"amount"`
	Fee           int64  `json:"fee" docstore:"fee"`
	Origin        string `json:"origin,omitempty" docstore:"origin,omitempty"`
}

// EventOptions configures biz event construction. Zero values select the
// documented defaults.
type EventOptions struct {
	// ID is the base event identifier; required.
	ID string
	// Count is the number of sibling events sharing one transaction id. Zero
	// means unset and builds a single event; there is no empty-list form.
	Count int
	// TransactionID overrides the shared transaction id.
	TransactionID string
	// NoticeNumber overrides the debtor-position notice number.
	NoticeNumber string
	// IUV overrides the debtor-position IUV.
	IUV string
	// Status overrides the event status (default "DONE").
	Status string
	// AttemptedPoisonRetry marks the event as having already been through the
	// poison retry path.
	AttemptedPoisonRetry bool
	// FiscalCodeMode selects plain or tokenized identifier values (default plain).
	FiscalCodeMode FiscalCodeMode
	// PayerFiscalCode overrides the payer identifier (cart flows use a distinct
	// payer placeholder).
	PayerFiscalCode string
}

// Validate checks option consistency; zero values are valid defaults.
func (o EventOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.ID, validation.Required),
		validation.Field(&o.Count, validation.Min(0)),
		validation.Field(&o.FiscalCodeMode, validation.In(FiscalCodePlain, FiscalCodeTokenized)),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

func (o EventOptions) withDefaults() EventOptions {
	if o.Count == 0 {
		o.Count = 1
	}
	if o.TransactionID == "" {
		o.TransactionID = defaultTransactionID
	}
	if o.NoticeNumber == "" {
		o.NoticeNumber = StandardNoticeNumber
	}
	if o.IUV == "" {
		o.IUV = StandardIUV
	}
	if o.Status == "" {
		o.Status = "DONE"
	}
	if o.FiscalCodeMode == "" {
		o.FiscalCodeMode = FiscalCodePlain
	}
	if o.PayerFiscalCode == "" {
		o.PayerFiscalCode = o.fiscalCode()
	}
	return o
}

func (o EventOptions) fiscalCode() string {
	if o.FiscalCodeMode == FiscalCodeTokenized {
		return TokenizedFiscalCode
	}
	return FiscalCode
}

// NewEvents builds Count sibling biz events for the single-receipt flow.
// Sibling ids follow the base id with the index appended ("id", "id1", "id2").
func NewEvents(opts EventOptions) ([]BizEvent, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	events := make([]BizEvent, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		id := opts.ID
		if i != 0 {
			id = fmt.Sprintf("%s%d", opts.ID, i)
		}
		events = append(events, newEvent(id, opts))
	}
	return events, nil
}

// NewCartEvents builds Count sibling biz events for the cart flow. Cart
// sibling ids are prefixed with the one-based index ("bz1<id>", "bz2<id>") to
// match the cart line bizEventId references.
func NewCartEvents(opts EventOptions) ([]BizEvent, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.PayerFiscalCode == "" {
		opts.PayerFiscalCode = PayerFiscalCode
	}
	opts = opts.withDefaults()

	events := make([]BizEvent, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		id := fmt.Sprintf("bz%d%s", i+1, opts.ID)
		events = append(events, newEvent(id, opts))
	}
	return events, nil
}

func newEvent(id string, opts EventOptions) BizEvent {
	return BizEvent{
		ID:                   id,
		Version:              "2",
		IDPaymentManager:     "54927408",
		Complete:             "false",
		ReceiptID:            "9851395f09544a04b288202299193ca6",
		AttemptedPoisonRetry: opts.AttemptedPoisonRetry,
		MissingInfo: []string{
			"psp.pspPartitaIVA",
			"paymentInfo.primaryCiIncurredFee",
			"paymentInfo.idBundle",
			"paymentInfo.idCiBundle",
		},
		DebtorPosition: DebtorPosition{
			ModelType:    "2",
			NoticeNumber: opts.NoticeNumber,
			IUV:          opts.IUV,
		},
		Creditor: Creditor{
			IDPA:        "66666666666",
			IDBrokerPA:  "66666666666",
			IDStation:   "66666666666_08",
			CompanyName: "PA paolo",
			OfficeName:  "office",
		},
		Psp: Psp{
			IDPsp:              "BNLIITRR",
			IDBrokerPsp:        "60000000001",
			IDChannel:          "60000000001_08",
			Psp:                "PSP Paolo",
			PspFiscalCode:      "CF60000000006",
			ChannelDescription: "app",
		},
		Debtor: Subject{
			FullName:                    "paGetPaymentName",
			EntityUniqueIdentifierType:  "G",
			EntityUniqueIdentifierValue: opts.fiscalCode(),
			StreetName:                  "paGetPaymentStreet",
			CivicNumber:                 "paGetPayment99",
			PostalCode:                  "20155",
			City:                        "paGetPaymentCity",
			StateProvinceRegion:         "paGetPaymentState",
			Country:                     "IT",
			Email:                       "paGetPayment@test.it",
		},
		Payer: Subject{
			FullName:                    "name",
			EntityUniqueIdentifierType:  "G",
			EntityUniqueIdentifierValue: opts.PayerFiscalCode,
			StreetName:                  "street",
			CivicNumber:                 "civic",
			PostalCode:                  "postal",
			City:                        "city",
			StateProvinceRegion:         "state",
			Country:                     "IT",
			Email:                       "prova@test.it",
		},
		PaymentInfo: PaymentInfo{
			PaymentDateTime:       "2023-03-17T16:37:36.955813",
			ApplicationDate:       "2021-12-12",
			TransferDate:          "2021-12-11",
			DueDate:               "2021-12-12",
			PaymentToken:          "9851395f09544a04b288202299193ca6",
			Amount:                "10.0",
			Fee:                   "2.0",
			TotalNotice:           "1",
			PaymentMethod:         "creditCard",
			Touchpoint:            "app",
			RemittanceInformation: "TARI 2021",
			Description:           "TARI 2021",
			Metadata:              []Metadata{{Key: "1", Value: "22"}},
		},
		TransferList: []Transfer{
			{
				IDTransfer:            "1",
				FiscalCodePA:          "66666666666",
				CompanyName:           "PA paolo",
				Amount:                "10.0",
				TransferCategory:      "paGetPaymentTest",
				RemittanceInformation: "/RFB/00202200000217527/5.00/TXT/",
			},
		},
		TransactionDetails: TransactionDetails{
			User: TransactionUser{
				FullName:              "John Doe",
				Type:                  "F",
				FiscalCode:            opts.PayerFiscalCode,
				NotificationEmail:     "john.doe@mail.it",
				UserID:                "1234",
				UserStatus:            "11",
				UserStatusDescription: "REGISTERED_SPID",
			},
			Transaction: Transaction{
				IDTransaction: "123456",
				TransactionID: opts.TransactionID,
			},
		},
		Timestamp: defaultTimestamp,
		Properties: map[string]string{
			"diagnostic-id":     "00-f70ef3167cffad76c6657a67a33ee0d2-61d794a75df0b43b-01",
			"serviceIdentifier": "NDP002SIT",
		},
		EventStatus: opts.Status,
	}
}
