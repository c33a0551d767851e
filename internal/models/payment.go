package models

import (
	"encoding/json"
	"time"
)

// ProviderPayload stores the gateway's raw response next to a discriminant
// so audits can tell which provider produced the bytes.
type ProviderPayload struct {
	Provider string          `json:"provider"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

type Payment struct {
	ID            int64            `json:"id"`
	OrderID       int64            `json:"order_id"`
	UserID        int64            `json:"user_id"`
	Amount        float64          `json:"amount"`
	Currency      string           `json:"currency"`
	PaymentMethod string           `json:"payment_method"` // stripe, paypal
	Status        string           `json:"status"`         // pending, success, failed, refunded
	TransactionID string           `json:"transaction_id,omitempty"`
	Details       *ProviderPayload `json:"payment_details,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// CheckoutURL is returned on creation for redirect flows; not persisted.
	CheckoutURL string `json:"checkout_url,omitempty"`

	Order *Order `json:"order,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// PaymentUpdate carries a partial update; nil fields are left untouched.
type PaymentUpdate struct {
	Status        *string          `json:"status,omitempty"`
	TransactionID *string          `json:"transaction_id,omitempty"`
	Details       *ProviderPayload `json:"payment_details,omitempty"`
}

// ChargeResult is a provider's view of a charge, normalized across gateways.
type ChargeResult struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"` // pending, success, failed
	CheckoutURL   string          `json:"checkout_url,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	PaymentID     int64           `json:"payment_id"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"` // success, failed
	Raw           json.RawMessage `json:"raw"`
}

// PaymentHistory is an append-only audit record of a payment state change.
// Rows are written once and never mutated.
type PaymentHistory struct {
	ID          int64     `json:"id"`
	PaymentID   int64     `json:"payment_id"`
	Action      string    `json:"action"` // created, attempted, succeeded, failed, refunded
	Amount      float64   `json:"amount,omitempty"`
	Status      string    `json:"status,omitempty"`
	Details     string    `json:"details,omitempty"`
	PerformedBy string    `json:"performed_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
