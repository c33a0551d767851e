package models

import "time"

// Package is a pre-defined rental offering: a route, one car and a validity
// window. Active packages for the same car must not overlap in time.
type Package struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	PickupLocationID int64     `json:"pickup_location_id"`
	DropLocationID   int64     `json:"drop_location_id"`
	CarID            int64     `json:"car_id"`
	BasePrice        float64   `json:"base_price"`
	DiscountedPrice  float64   `json:"discounted_price"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Available        bool      `json:"available"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	PickupLocation *Location `json:"pickup_location,omitempty"`
	DropLocation   *Location `json:"drop_location,omitempty"`
	Car            *Car      `json:"car,omitempty"`
}

// Order is a confirmed intent to rent a package, tracked separately from
// payment settlement. Status transitions go through the payment service.
type Order struct {
	ID               int64     `json:"id"`
	PackageID        int64     `json:"package_id"`
	UserID           int64     `json:"user_id"`
	CarID            int64     `json:"car_id"`
	PickupDate       time.Time `json:"pickup_date"`
	DropDate         time.Time `json:"drop_date"`
	TotalAmount      float64   `json:"total_amount"`
	DiscountedAmount float64   `json:"discounted_amount,omitempty"`
	Status           string    `json:"status"`         // pending, confirmed, completed, cancelled
	PaymentStatus    string    `json:"payment_status"` // pending, paid, failed, refunded
	PaymentMethod    string    `json:"payment_method,omitempty"`
	PaymentID        *int64    `json:"payment_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Package *Package `json:"package,omitempty"`
	User    *User    `json:"user,omitempty"`
	Car     *Car     `json:"car,omitempty"`
}

// OrderUpdate carries a partial update; nil fields are left untouched.
type OrderUpdate struct {
	PickupDate       *time.Time `json:"pickup_date,omitempty"`
	DropDate         *time.Time `json:"drop_date,omitempty"`
	DiscountedAmount *float64   `json:"discounted_amount,omitempty"`
	Status           *string    `json:"status,omitempty"`
}

// ChargeableAmount is what a payment against this order must settle:
// the discounted amount when one is set, the full amount otherwise.
func (o *Order) ChargeableAmount() float64 {
	if o.DiscountedAmount > 0 {
		return o.DiscountedAmount
	}
	return o.TotalAmount
}

// Terminal reports whether the order can no longer change state.
func (o *Order) Terminal() bool {
	return o.Status == OrderCompleted || o.Status == OrderCancelled
}
