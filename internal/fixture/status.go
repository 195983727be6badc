package fixture

// Receipt lifecycle statuses written by the system under test. The harness
// seeds INSERTED (or WAITING_FOR_BIZ_EVENT for carts) and asserts on the rest.
const (
	StatusInserted          = "INSERTED"
	StatusGenerated         = "GENERATED"
	StatusSigned            = "SIGNED"
	StatusRetry             = "RETRY"
	StatusFailed            = "FAILED"
	StatusNotQueueSent      = "NOT_QUEUE_SENT"
	StatusIONotifierRetry   = "IO_NOTIFIER_RETRY"
	StatusIONotified        = "IO_NOTIFIED"
	StatusIOErrorToNotify   = "IO_ERROR_TO_NOTIFY"
	StatusNotToNotify       = "NOT_TO_NOTIFY"
	StatusUnableToSend      = "UNABLE_TO_SEND"
	StatusToReview          = "TO_REVIEW"
	StatusWaitingForBizEvnt = "WAITING_FOR_BIZ_EVENT"
)

// Quarantine record review statuses.
const (
	ErrorStatusToReview = "TO_REVIEW"
	ErrorStatusReviewed = "REVIEWED"
)

// receiptStatuses is the set of valid receipt statuses, used for fixture
// validation.
var receiptStatuses = []any{
	StatusInserted,
	StatusGenerated,
	StatusSigned,
	StatusRetry,
	StatusFailed,
	StatusNotQueueSent,
	StatusIONotifierRetry,
	StatusIONotified,
	StatusIOErrorToNotify,
	StatusNotToNotify,
	StatusUnableToSend,
	StatusToReview,
}

// cartStatuses additionally allows the cart-only aggregation state.
var cartStatuses = append([]any{StatusWaitingForBizEvnt}, receiptStatuses...)
