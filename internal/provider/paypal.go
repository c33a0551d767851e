package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"

	"carbooker/internal/config"
	"carbooker/internal/models"
)

// PayPalAdapter speaks the order/capture flow: a charge is initiated as a
// gateway order with intent CAPTURE, the buyer approves it out of band, and
// GetStatus captures an approved order to settle it. Capture is idempotent on
// the gateway side, so repeated status polls are safe.
type PayPalAdapter struct {
	secret  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewPayPalAdapter(cfg config.PayPalConfig, timeout time.Duration, logger *zerolog.Logger) *PayPalAdapter {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.Secret,
		TokenURL:     base + "/v1/oauth2/token",
	}

	client := creds.Client(context.Background())
	client.Timeout = timeout

	return &PayPalAdapter{
		secret:  cfg.Secret,
		baseURL: base,
		client:  client,
		log:     logger.With().Str("component", "paypal_adapter").Logger(),
	}
}

func (p *PayPalAdapter) Name() string {
	return models.MethodPayPal
}

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (p *PayPalAdapter) InitiateCharge(ctx context.Context, payment *models.Payment, order *models.Order) (*models.ChargeResult, error) {
	request := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": strconv.FormatInt(payment.ID, 10),
			"custom_id":    strconv.FormatInt(order.ID, 10),
			"amount": map[string]string{
				"currency_code": strings.ToUpper(payment.Currency),
				"value":         strconv.FormatFloat(payment.Amount, 'f', 2, 64),
			},
		}},
	}

	body, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", request)
	if err != nil {
		return nil, err
	}

	var created paypalOrder
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, newError(p.Name(), "failed to decode order", err)
	}

	p.log.Info().Str("order_id", created.ID).Int64("payment_id", payment.ID).Msg("gateway order created")
	return &models.ChargeResult{
		TransactionID: created.ID,
		Status:        orderStatus(created.Status),
		CheckoutURL:   approveLink(created),
		Raw:           body,
	}, nil
}

// GetStatus resolves the order's current state, capturing it first when the
// buyer has approved but the funds are not yet taken.
func (p *PayPalAdapter) GetStatus(ctx context.Context, transactionID string) (*models.ChargeResult, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(transactionID)
	body, err := p.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var order paypalOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, newError(p.Name(), "failed to decode order", err)
	}

	if order.Status == "APPROVED" {
		body, err = p.do(ctx, http.MethodPost, path+"/capture", struct{}{})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &order); err != nil {
			return nil, newError(p.Name(), "failed to decode capture", err)
		}
	}

	return &models.ChargeResult{
		TransactionID: order.ID,
		Status:        orderStatus(order.Status),
		CheckoutURL:   approveLink(order),
		Raw:           body,
	}, nil
}

type paypalEvent struct {
	ID           string `json:"id"`
	EventType    string `json:"event_type"`
	ResourceType string `json:"resource_type"`
	Resource     struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		CustomID      string `json:"custom_id"`
		PurchaseUnits []struct {
			ReferenceID string `json:"reference_id"`
		} `json:"purchase_units"`
	} `json:"resource"`
}

// VerifyWebhook authenticates the payload with an HMAC-SHA256 shared-secret
// signature carried in the header as a hex digest.
func (p *PayPalAdapter) VerifyWebhook(payload []byte, signature string) (*models.WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write(payload)

	sig, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || !hmac.Equal(mac.Sum(nil), sig) {
		return nil, fmt.Errorf("signature mismatch")
	}

	var event paypalEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	var paymentID int64
	if len(event.Resource.PurchaseUnits) > 0 {
		paymentID, _ = strconv.ParseInt(event.Resource.PurchaseUnits[0].ReferenceID, 10, 64)
	}

	status := StatusPending
	if event.EventType == "CHECKOUT.ORDER.COMPLETED" || event.EventType == "PAYMENT.CAPTURE.COMPLETED" {
		status = StatusSuccess
	}

	return &models.WebhookEvent{
		ID:            event.ID,
		Type:          event.EventType,
		PaymentID:     paymentID,
		TransactionID: event.Resource.ID,
		Status:        status,
		Raw:           payload,
	}, nil
}

func (p *PayPalAdapter) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, newError(p.Name(), "failed to encode request", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, newError(p.Name(), "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, newError(p.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(p.Name(), "failed to read response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newError(p.Name(), fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, truncate(raw)), nil)
	}
	return raw, nil
}

func orderStatus(status string) string {
	switch status {
	case "COMPLETED":
		return StatusSuccess
	case "VOIDED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func approveLink(order paypalOrder) string {
	for _, link := range order.Links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}
