package api

import (
	"net/http"
	"time"

	"carbooker/internal/models"
)

type orderRequest struct {
	PackageID  int64     `json:"package_id"`
	UserID     int64     `json:"user_id"`
	PickupDate time.Time `json:"pickup_date,omitempty"`
	DropDate   time.Time `json:"drop_date,omitempty"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		orders, meta, err := s.orders.ListOrders(r.Context(), pageParams(r),
			queryInt64(r, "user_id"), r.URL.Query().Get("status"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, orders, meta)
	case http.MethodPost:
		var req orderRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		order := &models.Order{
			PackageID:  req.PackageID,
			UserID:     req.UserID,
			PickupDate: req.PickupDate,
			DropDate:   req.DropDate,
		}
		if err := s.orders.CreateOrder(r.Context(), order); err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, order)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathID(r.URL.Path, "/api/v1/orders/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if action == "cancel" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.orders.CancelOrder(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "order cancelled")
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		order, err := s.orders.GetOrder(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, order)
	case http.MethodPut, http.MethodPatch:
		var upd models.OrderUpdate
		if err := decodeJSON(r, &upd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		order, err := s.orders.UpdateOrder(r.Context(), id, upd)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, order)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
