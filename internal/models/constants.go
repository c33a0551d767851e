package models

// Order lifecycle statuses.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// Order payment statuses.
const (
	OrderPaymentPending  = "pending"
	OrderPaymentPaid     = "paid"
	OrderPaymentFailed   = "failed"
	OrderPaymentRefunded = "refunded"
)

// Booking payment statuses.
const (
	BookingPaymentPending   = "pending"
	BookingPaymentPartial   = "partial"
	BookingPaymentPaid      = "paid"
	BookingPaymentCancelled = "cancelled"
)

// Booking payment types.
const (
	PaymentTypeFull    = "full"
	PaymentTypePartial = "partial"
	PaymentTypeFree    = "free"
)

// Payment statuses.
const (
	PaymentPending  = "pending"
	PaymentSuccess  = "success"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Payment providers.
const (
	MethodStripe = "stripe"
	MethodPayPal = "paypal"
)

// Sync queue task statuses.
const (
	SyncTaskPending   = "pending"
	SyncTaskRetry     = "retry"
	SyncTaskCompleted = "completed"
	SyncTaskFailed    = "failed"
)

// Sync queue task types.
const (
	SyncTaskBookingUpsert = "booking_upsert"
	SyncTaskBookingDelete = "booking_delete"
)

// Payment history actions.
const (
	HistoryCreated   = "created"
	HistoryAttempted = "attempted"
	HistorySucceeded = "succeeded"
	HistoryFailed    = "failed"
	HistoryRefunded  = "refunded"
)

const (
	// DefaultPageLimit is applied when a list request carries no limit.
	DefaultPageLimit = 10

	// DefaultCurrency is used when a payment carries no currency.
	DefaultCurrency = "USD"

	// DefaultDepositRate is the partial-payment share of the total amount.
	DefaultDepositRate = 0.20

	// WebhookDedupTTL bounds how long processed provider event ids are remembered.
	WebhookDedupTTL = 24 * 60 * 60 // seconds

	// WorkerQueueSize is the in-memory buffer of the sheets sync worker.
	WorkerQueueSize = 1000
)
