package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"carbooker/internal/database"
	"carbooker/internal/domain"
	"carbooker/internal/events"
	"carbooker/internal/metrics"
	"carbooker/internal/models"
	"carbooker/internal/provider"
)

// PaymentService orchestrates payments across providers. Settlement is a
// compare-and-swap in the repository, so the webhook path and the verify
// path can race freely; whichever loses the swap becomes a no-op.
type PaymentService struct {
	repo      domain.Repository
	providers *provider.Registry
	dedup     domain.DedupStore
	eventBus  domain.EventPublisher
	notifier  domain.Notifier
	currency  string
	timeout   time.Duration
	dedupTTL  time.Duration
	logger    *zerolog.Logger
}

func NewPaymentService(
	repo domain.Repository,
	providers *provider.Registry,
	dedup domain.DedupStore,
	eventBus domain.EventPublisher,
	notifier domain.Notifier,
	currency string,
	timeout time.Duration,
	logger *zerolog.Logger,
) *PaymentService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &PaymentService{
		repo:      repo,
		providers: providers,
		dedup:     dedup,
		eventBus:  eventBus,
		notifier:  notifier,
		currency:  currency,
		timeout:   timeout,
		dedupTTL:  models.WebhookDedupTTL * time.Second,
		logger:    logger,
	}
}

// CreatePayment persists a pending payment for the order and initiates a
// charge with the matching provider. A provider failure marks the payment
// failed before the error is re-raised, so nothing stays pending by accident;
// the order itself is left untouched.
func (s *PaymentService) CreatePayment(ctx context.Context, orderID, userID int64, method string) (*models.Payment, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	adapter, err := s.providers.Get(method)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.OrderPaymentPaid {
		return nil, validationErrorf("order %d is already paid", orderID)
	}

	payment := &models.Payment{
		OrderID:       orderID,
		UserID:        userID,
		Amount:        order.ChargeableAmount(),
		Currency:      s.currency,
		PaymentMethod: method,
		Status:        models.PaymentPending,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	s.recordHistory(ctx, payment, models.HistoryCreated, "", "api")

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := adapter.InitiateCharge(callCtx, payment, order)
	if err != nil {
		s.markFailed(ctx, payment, err.Error())
		return nil, err
	}

	payload := &models.ProviderPayload{Provider: method, Raw: result.Raw}
	if err := s.repo.SetPaymentTransaction(ctx, payment.ID, result.TransactionID, payload); err != nil {
		return nil, err
	}
	payment.TransactionID = result.TransactionID
	payment.Details = payload
	payment.CheckoutURL = result.CheckoutURL

	s.recordHistory(ctx, payment, models.HistoryAttempted, "charge initiated with "+method, "api")
	metrics.IncPayment(method, models.PaymentPending)
	s.publishEvent(events.EventPaymentCreated, payment, "")

	s.logger.Info().
		Int64("payment_id", payment.ID).
		Int64("order_id", orderID).
		Str("method", method).
		Str("transaction_id", result.TransactionID).
		Msg("payment created")
	return payment, nil
}

// VerifyPayment polls the provider and settles the payment if the charge
// completed. Already-settled payments short-circuit without a provider call.
func (s *PaymentService) VerifyPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentSuccess {
		return s.repo.GetPaymentDetailed(ctx, paymentID)
	}
	if payment.TransactionID == "" {
		return nil, validationErrorf("payment %d has no provider reference", paymentID)
	}

	adapter, err := s.providers.Get(payment.PaymentMethod)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := adapter.GetStatus(callCtx, payment.TransactionID)
	if err != nil {
		s.markFailed(ctx, payment, err.Error())
		return nil, err
	}

	switch result.Status {
	case provider.StatusSuccess:
		if err := s.settle(ctx, payment, result.Raw, "verify"); err != nil {
			return nil, err
		}
		return s.repo.GetPaymentDetailed(ctx, paymentID)
	case provider.StatusFailed:
		s.markFailed(ctx, payment, "provider reported the charge as failed")
		return nil, fmt.Errorf("%w: provider reported failure", ErrPaymentNotCompleted)
	default:
		return nil, ErrPaymentNotCompleted
	}
}

// HandleWebhook verifies the provider signature, deduplicates the event id
// and settles the referenced payment. Replays and unrecognized event types
// are acknowledged without side effects.
func (s *PaymentService) HandleWebhook(ctx context.Context, method string, payload []byte, signature string) error {
	adapter, err := s.providers.Get(method)
	if err != nil {
		return err
	}

	event, err := adapter.VerifyWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookVerification, err)
	}

	// Cheap first gate; the settlement CAS below remains authoritative, so a
	// dedup-store failure degrades to an extra no-op settle attempt.
	dedupKey := method + ":" + event.ID
	claimed, err := s.dedup.MarkProcessed(ctx, dedupKey, s.dedupTTL)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("webhook dedup check failed")
	} else if !claimed {
		s.logger.Info().Str("event_id", event.ID).Msg("webhook replay acknowledged")
		return nil
	}

	if event.Status == provider.StatusPending {
		s.logger.Debug().Str("event_id", event.ID).Str("type", event.Type).Msg("webhook event ignored")
		return nil
	}
	if event.PaymentID == 0 {
		s.logger.Warn().Str("event_id", event.ID).Msg("webhook event carries no payment reference")
		return nil
	}

	payment, err := s.repo.GetPayment(ctx, event.PaymentID)
	if errors.Is(err, database.ErrNotFound) {
		s.logger.Warn().Int64("payment_id", event.PaymentID).Msg("webhook references unknown payment")
		return nil
	}
	if err != nil {
		s.releaseEvent(ctx, dedupKey, event.ID)
		return err
	}
	if payment.Status == models.PaymentSuccess {
		return nil
	}

	// An expired or failed session resolves the payment the same way the
	// polling path does.
	if event.Status == provider.StatusFailed {
		s.markFailed(ctx, payment, "provider reported "+event.Type)
		return nil
	}

	if err := s.settle(ctx, payment, event.Raw, "webhook"); err != nil {
		s.releaseEvent(ctx, dedupKey, event.ID)
		return err
	}
	return nil
}

// releaseEvent drops a claimed event id after a failed attempt so the
// provider's redelivery is not swallowed as a replay.
func (s *PaymentService) releaseEvent(ctx context.Context, dedupKey, eventID string) {
	if err := s.dedup.Forget(ctx, dedupKey); err != nil {
		s.logger.Warn().Err(err).Str("event_id", eventID).Msg("failed to release webhook event claim")
	}
}

// UpdatePayment applies an admin-side partial update. A success status rides
// the same settlement path as verification and webhooks.
func (s *PaymentService) UpdatePayment(ctx context.Context, id int64, upd models.PaymentUpdate) (*models.Payment, error) {
	payment, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && *upd.Status == models.PaymentSuccess {
		var raw json.RawMessage
		if upd.Details != nil {
			raw = upd.Details.Raw
		}
		if err := s.settle(ctx, payment, raw, "admin"); err != nil {
			return nil, err
		}
		upd.Status = nil
	}

	if upd.Status != nil || upd.TransactionID != nil || upd.Details != nil {
		if err := s.repo.UpdatePayment(ctx, id, upd); err != nil {
			return nil, err
		}
	}
	return s.repo.GetPaymentDetailed(ctx, id)
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.repo.GetPaymentDetailed(ctx, id)
}

func (s *PaymentService) ListPayments(ctx context.Context, params models.PageParams, filters database.PaymentFilters) ([]*models.Payment, *models.PageMeta, error) {
	return s.repo.ListPayments(ctx, params, filters)
}

func (s *PaymentService) ListPaymentHistory(ctx context.Context, params models.PageParams, filters database.HistoryFilters) ([]*models.PaymentHistory, *models.PageMeta, error) {
	return s.repo.ListPaymentHistory(ctx, params, filters)
}

// settle performs the success transition. Losing the compare-and-swap means
// another path already settled the payment; that is success, not an error.
func (s *PaymentService) settle(ctx context.Context, payment *models.Payment, raw json.RawMessage, source string) error {
	payload := &models.ProviderPayload{Provider: payment.PaymentMethod, Raw: raw}
	won, err := s.repo.SettlePayment(ctx, payment.ID, payload)
	if err != nil {
		return err
	}
	if !won {
		s.logger.Info().Int64("payment_id", payment.ID).Str("source", source).Msg("payment already settled")
		return nil
	}

	payment.Status = models.PaymentSuccess
	s.recordHistory(ctx, payment, models.HistorySucceeded, "settled via "+source, source)
	metrics.IncPayment(payment.PaymentMethod, models.PaymentSuccess)
	s.publishEvent(events.EventPaymentSettled, payment, "")

	if s.notifier != nil {
		if order, err := s.repo.GetOrder(ctx, payment.OrderID); err == nil {
			s.notifier.NotifyPaymentSettled(payment, order)
		}
	}

	s.logger.Info().
		Int64("payment_id", payment.ID).
		Int64("order_id", payment.OrderID).
		Str("source", source).
		Msg("payment settled")
	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment, reason string) {
	if err := s.repo.MarkPaymentFailed(ctx, payment.ID, reason); err != nil {
		s.logger.Error().Err(err).Int64("payment_id", payment.ID).Msg("failed to mark payment failed")
		return
	}
	payment.Status = models.PaymentFailed

	s.recordHistory(ctx, payment, models.HistoryFailed, reason, "api")
	metrics.IncPayment(payment.PaymentMethod, models.PaymentFailed)
	s.publishEvent(events.EventPaymentFailed, payment, reason)

	if s.notifier != nil {
		s.notifier.NotifyPaymentFailed(payment, reason)
	}
}

// recordHistory appends an audit record. Recorder failures are logged and
// never propagated; history must not block money movement.
func (s *PaymentService) recordHistory(ctx context.Context, payment *models.Payment, action, details, performedBy string) {
	entry := &models.PaymentHistory{
		PaymentID:   payment.ID,
		Action:      action,
		Amount:      payment.Amount,
		Status:      payment.Status,
		Details:     details,
		PerformedBy: performedBy,
	}
	if err := s.repo.AppendPaymentHistory(ctx, entry); err != nil {
		s.logger.Error().Err(err).Int64("payment_id", payment.ID).Str("action", action).Msg("failed to record payment history")
	}
}

func (s *PaymentService) publishEvent(eventType string, payment *models.Payment, reason string) {
	if s.eventBus == nil {
		return
	}
	payload := events.PaymentEventPayload{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		UserID:        payment.UserID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentMethod: payment.PaymentMethod,
		Status:        payment.Status,
		Reason:        reason,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish payment event")
	}
}
