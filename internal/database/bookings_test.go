package database

import (
	"context"
	"testing"
	"time"

	"carbooker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBooking(user *models.User, car *models.Car, pickup, drop *models.Location) *models.Booking {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &models.Booking{
		UserID:           user.ID,
		CarID:            car.ID,
		PickupLocationID: pickup.ID,
		DropLocationID:   drop.ID,
		PickUpTime:       start,
		DropOffTime:      start.Add(5 * time.Hour),
		TotalAmount:      50,
		AmountPaid:       50,
		PaymentType:      models.PaymentTypeFull,
		PaymentStatus:    models.BookingPaymentPaid,
	}
}

func TestCreateBooking_ReservesCar(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db)
	car := seedCar(t, db)
	pickup := seedLocation(t, db, "Airport")
	drop := seedLocation(t, db, "Downtown")

	booking := newTestBooking(user, car, pickup, drop)
	require.NoError(t, db.CreateBooking(ctx, booking))
	assert.NotZero(t, booking.ID)

	got, err := db.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.False(t, got.Available, "creating a booking must reserve the car")
}

func TestCreateBooking_CarAlreadyHeld(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db)
	car := seedCar(t, db)
	pickup := seedLocation(t, db, "Airport")
	drop := seedLocation(t, db, "Downtown")

	first := newTestBooking(user, car, pickup, drop)
	require.NoError(t, db.CreateBooking(ctx, first))

	second := newTestBooking(user, car, pickup, drop)
	err := db.CreateBooking(ctx, second)
	assert.ErrorIs(t, err, ErrCarUnavailable)

	// The failed transaction must not leave a booking row behind.
	_, meta, err := db.ListBookings(ctx, models.PageParams{}, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Total)
}

func TestDeleteBooking_ReleasesCar(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db)
	car := seedCar(t, db)
	pickup := seedLocation(t, db, "Airport")
	drop := seedLocation(t, db, "Downtown")

	booking := newTestBooking(user, car, pickup, drop)
	require.NoError(t, db.CreateBooking(ctx, booking))

	require.NoError(t, db.DeleteBooking(ctx, booking.ID))

	_, err := db.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := db.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.True(t, got.Available, "deleting a booking must release the car")
}

func TestDeleteBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)

	err := db.DeleteBooking(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBooking_Repriced(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db)
	car := seedCar(t, db)
	pickup := seedLocation(t, db, "Airport")
	drop := seedLocation(t, db, "Downtown")

	booking := newTestBooking(user, car, pickup, drop)
	require.NoError(t, db.CreateBooking(ctx, booking))

	booking.DropOffTime = booking.PickUpTime.Add(30 * time.Hour)
	booking.TotalAmount = 200
	require.NoError(t, db.UpdateBooking(ctx, booking))

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.TotalAmount)
	assert.Equal(t, booking.DropOffTime.Unix(), got.DropOffTime.Unix())
}

func TestGetBookingDetailed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db)
	car := seedCar(t, db)
	pickup := seedLocation(t, db, "Airport")
	drop := seedLocation(t, db, "Downtown")

	booking := newTestBooking(user, car, pickup, drop)
	require.NoError(t, db.CreateBooking(ctx, booking))

	got, err := db.GetBookingDetailed(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	require.NotNil(t, got.Car)
	require.NotNil(t, got.PickupLocation)
	assert.Equal(t, user.Email, got.User.Email)
	assert.Equal(t, car.Name, got.Car.Name)
	assert.Equal(t, "Airport", got.PickupLocation.Name)
	assert.Equal(t, "Downtown", got.DropLocation.Name)
}

func TestListBookings_FilterByUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db)
	other := &models.User{Name: "Other", Email: "other@example.com"}
	require.NoError(t, db.CreateUser(ctx, other))
	pickup := seedLocation(t, db, "Airport")
	drop := seedLocation(t, db, "Downtown")

	for i, u := range []*models.User{user, user, other} {
		car := seedCar(t, db)
		b := newTestBooking(u, car, pickup, drop)
		b.PickUpTime = b.PickUpTime.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.CreateBooking(ctx, b))
	}

	bookings, meta, err := db.ListBookings(ctx, models.PageParams{}, user.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
	assert.Equal(t, int64(2), meta.Total)

	all, meta, err := db.ListBookings(ctx, models.PageParams{}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), meta.Total)
}
