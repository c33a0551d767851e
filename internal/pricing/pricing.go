// Package pricing converts rental intervals and a car's rate card into
// monetary amounts. All rounding is upward: a started hour or day is billed
// in full.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"carbooker/internal/models"
)

var (
	ErrInvalidInterval    = errors.New("drop-off must be after pickup")
	ErrUnknownPaymentType = errors.New("unknown payment type")
)

// Quote returns the total amount for renting between pickUp and dropOff.
// Durations of 24 hours or more are billed in whole days at dailyRate,
// shorter rentals in whole hours at hourlyRate.
func Quote(pickUp, dropOff time.Time, hourlyRate, dailyRate float64) (float64, error) {
	if !dropOff.After(pickUp) {
		return 0, ErrInvalidInterval
	}

	hours := dropOff.Sub(pickUp).Hours()
	if hours >= 24 {
		days := math.Ceil(hours / 24)
		return days * dailyRate, nil
	}
	return math.Ceil(hours) * hourlyRate, nil
}

// Split derives the amount due at creation and the initial payment status
// from a booking's payment type. depositRate is the partial-payment share;
// values outside (0,1] fall back to the default.
func Split(total float64, paymentType string, depositRate float64) (amountPaid float64, paymentStatus string, err error) {
	if depositRate <= 0 || depositRate > 1 {
		depositRate = models.DefaultDepositRate
	}

	switch paymentType {
	case models.PaymentTypeFull:
		return total, models.BookingPaymentPaid, nil
	case models.PaymentTypePartial:
		return total * depositRate, models.BookingPaymentPartial, nil
	case models.PaymentTypeFree:
		return 0, models.BookingPaymentPending, nil
	default:
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownPaymentType, paymentType)
	}
}
