package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carbooker/internal/database"
	"carbooker/internal/models"
)

func newTestRepo(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var fixtureSeq atomic.Int64

func seedUser(t *testing.T, db *database.DB) *models.User {
	t.Helper()
	n := fixtureSeq.Add(1)
	user := &models.User{Name: "Test User", Email: fmt.Sprintf("user-%d@example.com", n), Phone: "555-0100"}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func seedCar(t *testing.T, db *database.DB) *models.Car {
	t.Helper()
	car := &models.Car{Name: "Sedan", Model: "Corolla", Seats: 4, HourlyRate: 10, DailyRate: 100, Available: true}
	require.NoError(t, db.CreateCar(context.Background(), car))
	return car
}

func seedLocation(t *testing.T, db *database.DB) *models.Location {
	t.Helper()
	n := fixtureSeq.Add(1)
	loc := &models.Location{Name: fmt.Sprintf("location-%d", n), Address: "1 Main St", City: "Springfield"}
	require.NoError(t, db.CreateLocation(context.Background(), loc))
	return loc
}

func seedPackage(t *testing.T, db *database.DB, carID int64) *models.Package {
	t.Helper()
	pickup := seedLocation(t, db)
	drop := seedLocation(t, db)
	pkg := &models.Package{
		Name:             "Weekend Special",
		PickupLocationID: pickup.ID,
		DropLocationID:   drop.ID,
		CarID:            carID,
		BasePrice:        500,
		DiscountedPrice:  400,
		StartDate:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Available:        true,
	}
	require.NoError(t, db.CreatePackage(context.Background(), pkg))
	return pkg
}

func seedOrder(t *testing.T, db *database.DB, pkg *models.Package, userID int64) *models.Order {
	t.Helper()
	order := &models.Order{
		PackageID:        pkg.ID,
		UserID:           userID,
		CarID:            pkg.CarID,
		PickupDate:       pkg.StartDate,
		DropDate:         pkg.EndDate,
		TotalAmount:      pkg.BasePrice,
		DiscountedAmount: pkg.DiscountedPrice,
		Status:           models.OrderPending,
		PaymentStatus:    models.OrderPaymentPending,
	}
	require.NoError(t, db.CreateOrder(context.Background(), order))
	return order
}

type mockAdapter struct {
	mock.Mock
	name string
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) InitiateCharge(ctx context.Context, payment *models.Payment, order *models.Order) (*models.ChargeResult, error) {
	args := m.Called(ctx, payment, order)
	if res := args.Get(0); res != nil {
		return res.(*models.ChargeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAdapter) GetStatus(ctx context.Context, transactionID string) (*models.ChargeResult, error) {
	args := m.Called(ctx, transactionID)
	if res := args.Get(0); res != nil {
		return res.(*models.ChargeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAdapter) VerifyWebhook(payload []byte, signature string) (*models.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if res := args.Get(0); res != nil {
		return res.(*models.WebhookEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking) error {
	args := m.Called(ctx, taskType, bookingID, booking)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyPaymentSettled(payment *models.Payment, order *models.Order) {
	m.Called(payment, order)
}

func (m *mockNotifier) NotifyPaymentFailed(payment *models.Payment, reason string) {
	m.Called(payment, reason)
}
