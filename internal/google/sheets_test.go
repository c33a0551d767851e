package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"carbooker/internal/models"
)

func TestRowFromRange(t *testing.T) {
	row, ok := rowFromRange("Bookings!A42:J42")
	assert.True(t, ok)
	assert.Equal(t, 42, row)

	row, ok = rowFromRange("Bookings!A7")
	assert.True(t, ok)
	assert.Equal(t, 7, row)

	_, ok = rowFromRange("Bookings!A:J")
	assert.False(t, ok)
}

func TestBookingRow(t *testing.T) {
	booking := &models.Booking{
		ID:            17,
		PickUpTime:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		DropOffTime:   time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		TotalAmount:   50,
		AmountPaid:    10,
		PaymentType:   models.PaymentTypePartial,
		PaymentStatus: models.BookingPaymentPartial,
		User:          &models.User{Name: "Test User"},
		Car:           &models.Car{Name: "Sedan", Model: "Corolla"},
	}

	row := bookingRow(booking)
	assert.Equal(t, "17", row[0])
	assert.Equal(t, "Test User", row[1])
	assert.Equal(t, "Sedan Corolla", row[2])
	assert.Equal(t, "2026-03-10 09:00", row[3])
	assert.Equal(t, models.PaymentTypePartial, row[7])
}

func TestBookingRow_MissingRelations(t *testing.T) {
	row := bookingRow(&models.Booking{ID: 3})
	assert.Equal(t, "", row[1])
	assert.Equal(t, "", row[2])
}
