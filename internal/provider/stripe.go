package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"carbooker/internal/config"
	"carbooker/internal/models"
)

// StripeAdapter speaks the checkout-session flow: a charge is initiated as a
// hosted checkout session and settles when the session's payment_status
// becomes "paid", reported either by polling or by a signed webhook.
type StripeAdapter struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	successURL    string
	cancelURL     string
	client        *http.Client
	log           zerolog.Logger
}

func NewStripeAdapter(cfg config.StripeConfig, timeout time.Duration, logger *zerolog.Logger) *StripeAdapter {
	return &StripeAdapter{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		client:        &http.Client{Timeout: timeout},
		log:           logger.With().Str("component", "stripe_adapter").Logger(),
	}
}

func (s *StripeAdapter) Name() string {
	return models.MethodStripe
}

type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
}

func (s *StripeAdapter) InitiateCharge(ctx context.Context, payment *models.Payment, order *models.Order) (*models.ChargeResult, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", s.successURL)
	form.Set("cancel_url", s.cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(payment.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(toMinorUnits(payment.Amount), 10))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Order #%d", order.ID))
	form.Set("metadata[payment_id]", strconv.FormatInt(payment.ID, 10))
	form.Set("metadata[order_id]", strconv.FormatInt(order.ID, 10))

	body, err := s.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, newError(s.Name(), "failed to decode checkout session", err)
	}

	s.log.Info().Str("session_id", session.ID).Int64("payment_id", payment.ID).Msg("checkout session created")
	return &models.ChargeResult{
		TransactionID: session.ID,
		Status:        sessionStatus(session),
		CheckoutURL:   session.URL,
		Raw:           body,
	}, nil
}

func (s *StripeAdapter) GetStatus(ctx context.Context, transactionID string) (*models.ChargeResult, error) {
	body, err := s.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return nil, err
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, newError(s.Name(), "failed to decode checkout session", err)
	}

	return &models.ChargeResult{
		TransactionID: session.ID,
		Status:        sessionStatus(session),
		CheckoutURL:   session.URL,
		Raw:           body,
	}, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentStatus string `json:"payment_status"`
			Metadata      struct {
				PaymentID string `json:"payment_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhook checks the Stripe-Signature header (t=<unix>,v1=<hmac>) by
// recomputing HMAC-SHA256 over "<t>.<payload>" with the webhook secret.
func (s *StripeAdapter) VerifyWebhook(payload []byte, signature string) (*models.WebhookEvent, error) {
	timestamp, expected, err := parseSignatureHeader(signature)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	computed := mac.Sum(nil)

	matched := false
	for _, candidate := range expected {
		sig, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(computed, sig) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("signature mismatch")
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	paymentID, _ := strconv.ParseInt(event.Data.Object.Metadata.PaymentID, 10, 64)
	status := StatusPending
	switch {
	case event.Type == EventCheckoutCompleted && event.Data.Object.PaymentStatus == "paid":
		status = StatusSuccess
	case event.Type == EventCheckoutExpired:
		status = StatusFailed
	}

	return &models.WebhookEvent{
		ID:            event.ID,
		Type:          event.Type,
		PaymentID:     paymentID,
		TransactionID: event.Data.Object.ID,
		Status:        status,
		Raw:           payload,
	}, nil
}

func (s *StripeAdapter) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, newError(s.Name(), "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, newError(s.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(s.Name(), "failed to read response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newError(s.Name(), fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, truncate(raw)), nil)
	}
	return raw, nil
}

func sessionStatus(session stripeSession) string {
	switch {
	case session.PaymentStatus == "paid":
		return StatusSuccess
	case session.Status == "expired":
		return StatusFailed
	default:
		return StatusPending
	}
}

// parseSignatureHeader splits "t=1700000000,v1=abc,v1=def" into the timestamp
// and the candidate signatures.
func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, fmt.Errorf("malformed signature header")
	}
	return timestamp, signatures, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func truncate(raw []byte) string {
	const max = 256
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
