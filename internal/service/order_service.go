package service

import (
	"context"

	"github.com/rs/zerolog"

	"carbooker/internal/domain"
	"carbooker/internal/events"
	"carbooker/internal/models"
	"carbooker/internal/pricing"
)

// OrderService drives the order lifecycle: pending → confirmed → completed,
// with cancellation allowed until completion. Confirmation itself happens in
// the payment settlement transaction, not here.
type OrderService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewOrderService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, order *models.Order) error {
	pkg, err := s.repo.GetPackage(ctx, order.PackageID)
	if err != nil {
		return err
	}
	if !pkg.Available {
		return validationErrorf("package %d is not available", pkg.ID)
	}

	if _, err := s.repo.GetUser(ctx, order.UserID); err != nil {
		return err
	}
	if _, err := s.repo.GetCar(ctx, pkg.CarID); err != nil {
		return err
	}

	if order.PickupDate.IsZero() {
		order.PickupDate = pkg.StartDate
	}
	if order.DropDate.IsZero() {
		order.DropDate = pkg.EndDate
	}
	if !order.PickupDate.Before(order.DropDate) {
		return pricing.ErrInvalidInterval
	}

	order.CarID = pkg.CarID
	order.TotalAmount = pkg.BasePrice
	order.DiscountedAmount = pkg.DiscountedPrice
	order.Status = models.OrderPending
	order.PaymentStatus = models.OrderPaymentPending

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return err
	}

	s.publishEvent(events.EventOrderCreated, order)
	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("package_id", order.PackageID).
		Float64("amount", order.ChargeableAmount()).
		Msg("order created")
	return nil
}

// UpdateOrder applies a partial update. Date changes are validated as an
// interval; status changes go through the state machine guard.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, upd models.OrderUpdate) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Terminal() {
		return nil, validationErrorf("order %d is %s and cannot change", id, order.Status)
	}

	pickup := order.PickupDate
	drop := order.DropDate
	if upd.PickupDate != nil {
		pickup = *upd.PickupDate
	}
	if upd.DropDate != nil {
		drop = *upd.DropDate
	}
	if !pickup.Before(drop) {
		return nil, pricing.ErrInvalidInterval
	}

	if upd.Status != nil {
		if err := validTransition(order.Status, *upd.Status); err != nil {
			return nil, err
		}
		// Confirmation is the settlement engine's transition; a generic
		// update may only confirm an order whose payment has landed.
		if *upd.Status == models.OrderConfirmed && order.PaymentStatus != models.OrderPaymentPaid {
			return nil, validationErrorf("order %d cannot be confirmed before payment", id)
		}
	}

	if err := s.repo.UpdateOrder(ctx, id, upd); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil && *upd.Status == models.OrderCancelled {
		s.publishEvent(events.EventOrderCancelled, updated)
	}
	return updated, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, id int64) error {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if err := validTransition(order.Status, models.OrderCancelled); err != nil {
		return err
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, models.OrderCancelled); err != nil {
		return err
	}
	order.Status = models.OrderCancelled
	s.publishEvent(events.EventOrderCancelled, order)
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.repo.GetOrderDetailed(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, params models.PageParams, userID int64, status string) ([]*models.Order, *models.PageMeta, error) {
	return s.repo.ListOrders(ctx, params, userID, status)
}

// validTransition enforces pending → confirmed → completed, with
// cancellation allowed from pending and confirmed.
func validTransition(from, to string) error {
	allowed := map[string][]string{
		models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
		models.OrderConfirmed: {models.OrderCompleted, models.OrderCancelled},
	}
	for _, candidate := range allowed[from] {
		if candidate == to {
			return nil
		}
	}
	return validationErrorf("invalid order transition %s -> %s", from, to)
}

func (s *OrderService) publishEvent(eventType string, order *models.Order) {
	if s.eventBus == nil {
		return
	}
	payload := struct {
		OrderID   int64   `json:"order_id"`
		PackageID int64   `json:"package_id"`
		UserID    int64   `json:"user_id"`
		Amount    float64 `json:"amount"`
		Status    string  `json:"status"`
	}{order.ID, order.PackageID, order.UserID, order.ChargeableAmount(), order.Status}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish order event")
	}
}
