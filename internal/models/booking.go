package models

import "time"

// Booking is a direct car rental bound to pickup/drop-off timestamps.
// The referenced car is exclusively reserved for the booking's lifetime.
type Booking struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	CarID            int64     `json:"car_id"`
	PickupLocationID int64     `json:"pickup_location_id"`
	DropLocationID   int64     `json:"drop_location_id"`
	PickUpTime       time.Time `json:"pick_up_time"`
	DropOffTime      time.Time `json:"drop_off_time"`
	TotalAmount      float64   `json:"total_amount"`
	AmountPaid       float64   `json:"amount_paid"`
	PaymentType      string    `json:"payment_type"`   // full, partial, free
	PaymentStatus    string    `json:"payment_status"` // pending, partial, paid, cancelled
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	User           *User     `json:"user,omitempty"`
	Car            *Car      `json:"car,omitempty"`
	PickupLocation *Location `json:"pickup_location,omitempty"`
	DropLocation   *Location `json:"drop_location,omitempty"`
}

// BookingUpdate carries a partial update; nil fields are left untouched.
type BookingUpdate struct {
	PickUpTime       *time.Time `json:"pick_up_time,omitempty"`
	DropOffTime      *time.Time `json:"drop_off_time,omitempty"`
	PickupLocationID *int64     `json:"pickup_location_id,omitempty"`
	DropLocationID   *int64     `json:"drop_location_id,omitempty"`
}
