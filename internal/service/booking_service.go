package service

import (
	"context"

	"github.com/rs/zerolog"

	"carbooker/internal/domain"
	"carbooker/internal/events"
	"carbooker/internal/metrics"
	"carbooker/internal/models"
	"carbooker/internal/pricing"
)

// BookingService prices and books direct car rentals. Reservation of the car
// rides inside the repository's booking transaction, so a lost race surfaces
// here as database.ErrCarUnavailable and nothing is written.
type BookingService struct {
	repo        domain.Repository
	eventBus    domain.EventPublisher
	syncWorker  domain.SyncWorker
	depositRate float64
	logger      *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, depositRate float64, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:        repo,
		eventBus:    eventBus,
		syncWorker:  syncWorker,
		depositRate: depositRate,
		logger:      logger,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if _, err := s.repo.GetUser(ctx, booking.UserID); err != nil {
		return err
	}
	if _, err := s.repo.GetLocation(ctx, booking.PickupLocationID); err != nil {
		return err
	}
	if _, err := s.repo.GetLocation(ctx, booking.DropLocationID); err != nil {
		return err
	}

	car, err := s.repo.GetCar(ctx, booking.CarID)
	if err != nil {
		return err
	}

	total, err := pricing.Quote(booking.PickUpTime, booking.DropOffTime, car.HourlyRate, car.DailyRate)
	if err != nil {
		return err
	}

	amountPaid, paymentStatus, err := pricing.Split(total, booking.PaymentType, s.depositRate)
	if err != nil {
		return err
	}

	booking.TotalAmount = total
	booking.AmountPaid = amountPaid
	booking.PaymentStatus = paymentStatus

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		metrics.IncBooking("conflict")
		return err
	}
	metrics.IncBooking("created")

	s.publishEvent(events.EventBookingCreated, booking)
	s.enqueueSync(ctx, models.SyncTaskBookingUpsert, booking)

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("car_id", booking.CarID).
		Float64("total", total).
		Msg("booking created")
	return nil
}

// UpdateBooking applies a partial update and re-prices against the car's
// current rate card. Untouched fields keep their stored values.
func (s *BookingService) UpdateBooking(ctx context.Context, id int64, upd models.BookingUpdate) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.PickUpTime != nil {
		booking.PickUpTime = *upd.PickUpTime
	}
	if upd.DropOffTime != nil {
		booking.DropOffTime = *upd.DropOffTime
	}
	if upd.PickupLocationID != nil {
		if _, err := s.repo.GetLocation(ctx, *upd.PickupLocationID); err != nil {
			return nil, err
		}
		booking.PickupLocationID = *upd.PickupLocationID
	}
	if upd.DropLocationID != nil {
		if _, err := s.repo.GetLocation(ctx, *upd.DropLocationID); err != nil {
			return nil, err
		}
		booking.DropLocationID = *upd.DropLocationID
	}

	car, err := s.repo.GetCar(ctx, booking.CarID)
	if err != nil {
		return nil, err
	}

	total, err := pricing.Quote(booking.PickUpTime, booking.DropOffTime, car.HourlyRate, car.DailyRate)
	if err != nil {
		return nil, err
	}
	booking.TotalAmount = total

	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingUpdated, booking)
	s.enqueueSync(ctx, models.SyncTaskBookingUpsert, booking)
	return booking, nil
}

// DeleteBooking removes the booking; the car release is part of the
// repository transaction.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return err
	}
	metrics.IncBooking("cancelled")

	s.publishEvent(events.EventBookingCancelled, booking)
	s.enqueueSync(ctx, models.SyncTaskBookingDelete, booking)

	s.logger.Info().Int64("booking_id", id).Int64("car_id", booking.CarID).Msg("booking deleted")
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBookingDetailed(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, params models.PageParams, userID int64) ([]*models.Booking, *models.PageMeta, error) {
	return s.repo.ListBookings(ctx, params, userID)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		CarID:       booking.CarID,
		PickUpTime:  booking.PickUpTime,
		DropOffTime: booking.DropOffTime,
		TotalAmount: booking.TotalAmount,
		Status:      booking.PaymentStatus,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish booking event")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, taskType string, booking *models.Booking) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueTask(ctx, taskType, booking.ID, booking); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("failed to enqueue sheet sync")
	}
}
