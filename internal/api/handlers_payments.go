package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"carbooker/internal/database"
	"carbooker/internal/models"
)

// maxWebhookBody bounds provider webhook payloads. Stripe events run a few
// KB; anything past 1 MB is junk.
const maxWebhookBody = 1 << 20

type paymentRequest struct {
	OrderID       int64  `json:"order_id"`
	UserID        int64  `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filters := database.PaymentFilters{
			UserID:    queryInt64(r, "user_id"),
			OrderID:   queryInt64(r, "order_id"),
			Status:    r.URL.Query().Get("status"),
			Method:    r.URL.Query().Get("method"),
			MinAmount: queryFloat(r, "min_amount"),
			MaxAmount: queryFloat(r, "max_amount"),
		}
		payments, meta, err := s.payments.ListPayments(r.Context(), pageParams(r), filters)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, payments, meta)
	case http.MethodPost:
		var req paymentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		payment, err := s.payments.CreatePayment(r.Context(), req.OrderID, req.UserID, req.PaymentMethod)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, payment)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePaymentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/payments/")

	// Providers post callbacks here; the signature on the raw body is the
	// authentication.
	if rest == "stripe-webhook" {
		s.serveWebhook(w, r, models.MethodStripe)
		return
	}

	// Both verb orders are accepted: verify/{id} and {id}/verify.
	if after, found := strings.CutPrefix(rest, "verify/"); found {
		id, _, ok := pathID("/"+after, "/")
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.serveVerify(w, r, id)
		return
	}

	id, action, ok := pathID(r.URL.Path, "/api/v1/payments/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if action == "verify" {
		s.serveVerify(w, r, id)
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		payment, err := s.payments.GetPayment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, payment)
	case http.MethodPut, http.MethodPatch:
		var upd models.PaymentUpdate
		if err := decodeJSON(r, &upd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		payment, err := s.payments.UpdatePayment(r.Context(), id, upd)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, payment)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) serveVerify(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payment, err := s.payments.VerifyPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, payment)
}

// handleWebhook receives provider callbacks. The body is read raw because
// signature schemes cover the exact bytes on the wire.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/v1/webhooks/")
	if method == "" || strings.Contains(method, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.serveWebhook(w, r, method)
}

func (s *Server) serveWebhook(w http.ResponseWriter, r *http.Request, method string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		signature = r.Header.Get("Paypal-Transmission-Sig")
	}

	if err := s.payments.HandleWebhook(r.Context(), method, payload, signature); err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "ok")
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filters := database.HistoryFilters{
		PaymentID: queryInt64(r, "payment_id"),
		Action:    r.URL.Query().Get("action"),
	}
	entries, meta, err := s.payments.ListPaymentHistory(r.Context(), pageParams(r), filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, entries, meta)
}

// handlePaymentHistoryExport renders the audit trail as an .xlsx download.
func (s *Server) handlePaymentHistoryExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filters := database.HistoryFilters{
		PaymentID: queryInt64(r, "payment_id"),
		Action:    r.URL.Query().Get("action"),
	}
	params := pageParams(r)
	if params.Limit == 0 {
		params.Limit = 1000
	}

	entries, _, err := s.payments.ListPaymentHistory(r.Context(), params, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	path, err := s.exporter.PaymentHistory(entries)
	if err != nil {
		s.logger.Error().Err(err).Msg("payment history export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}
