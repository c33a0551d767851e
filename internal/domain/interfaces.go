package domain

import (
	"context"
	"time"

	"carbooker/internal/database"
	"carbooker/internal/models"
)

type Repository interface {
	CreateCar(ctx context.Context, car *models.Car) error
	UpsertCar(ctx context.Context, car *models.Car) error
	GetCar(ctx context.Context, id int64) (*models.Car, error)
	ReserveCar(ctx context.Context, carID int64) error
	ReleaseCar(ctx context.Context, carID int64) error
	ListCars(ctx context.Context, params models.PageParams) ([]*models.Car, *models.PageMeta, error)

	CreateLocation(ctx context.Context, loc *models.Location) error
	GetLocation(ctx context.Context, id int64) (*models.Location, error)
	ListLocations(ctx context.Context, params models.PageParams, searchTerm string) ([]*models.Location, *models.PageMeta, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, params models.PageParams) ([]*models.User, *models.PageMeta, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingDetailed(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context, params models.PageParams, userID int64) ([]*models.Booking, *models.PageMeta, error)

	CreatePackage(ctx context.Context, pkg *models.Package) error
	UpdatePackageDates(ctx context.Context, id int64, start, end time.Time) error
	GetPackage(ctx context.Context, id int64) (*models.Package, error)
	DeactivatePackage(ctx context.Context, id int64) error
	ListPackages(ctx context.Context, params models.PageParams, carID int64) ([]*models.Package, *models.PageMeta, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderDetailed(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, id int64, upd models.OrderUpdate) error
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
	ListOrders(ctx context.Context, params models.PageParams, userID int64, status string) ([]*models.Order, *models.PageMeta, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentDetailed(ctx context.Context, id int64) (*models.Payment, error)
	SetPaymentTransaction(ctx context.Context, id int64, transactionID string, payload *models.ProviderPayload) error
	MarkPaymentFailed(ctx context.Context, id int64, reason string) error
	SettlePayment(ctx context.Context, id int64, payload *models.ProviderPayload) (bool, error)
	UpdatePayment(ctx context.Context, id int64, upd models.PaymentUpdate) error
	ListPayments(ctx context.Context, params models.PageParams, filters database.PaymentFilters) ([]*models.Payment, *models.PageMeta, error)

	AppendPaymentHistory(ctx context.Context, entry *models.PaymentHistory) error
	ListPaymentHistory(ctx context.Context, params models.PageParams, filters database.HistoryFilters) ([]*models.PaymentHistory, *models.PageMeta, error)

	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// DedupStore remembers processed provider event ids so webhook replays are
// acknowledged without re-running their side effects.
type DedupStore interface {
	// MarkProcessed returns false when the event id was already recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// Forget releases a claimed event id so the provider's redelivery is
	// processed again after a failed attempt.
	Forget(ctx context.Context, eventID string) error
	Close() error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ProviderAdapter is the seam between the payment service and a gateway.
type ProviderAdapter interface {
	Name() string
	InitiateCharge(ctx context.Context, payment *models.Payment, order *models.Order) (*models.ChargeResult, error)
	GetStatus(ctx context.Context, transactionID string) (*models.ChargeResult, error)
	VerifyWebhook(payload []byte, signature string) (*models.WebhookEvent, error)
}

type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, bookingID int64) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking) error
}

// Notifier delivers out-of-band notices (settlements, failures) to staff.
type Notifier interface {
	NotifyPaymentSettled(payment *models.Payment, order *models.Order)
	NotifyPaymentFailed(payment *models.Payment, reason string)
}
