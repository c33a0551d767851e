package api

import (
	"net/http"
	"time"

	"carbooker/internal/models"
)

type bookingRequest struct {
	UserID           int64     `json:"user_id"`
	CarID            int64     `json:"car_id"`
	PickupLocationID int64     `json:"pickup_location_id"`
	DropLocationID   int64     `json:"drop_location_id"`
	PickUpTime       time.Time `json:"pick_up_time"`
	DropOffTime      time.Time `json:"drop_off_time"`
	PaymentType      string    `json:"payment_type"`
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bookings, meta, err := s.bookings.ListBookings(r.Context(), pageParams(r), queryInt64(r, "user_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, bookings, meta)
	case http.MethodPost:
		var req bookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		booking := &models.Booking{
			UserID:           req.UserID,
			CarID:            req.CarID,
			PickupLocationID: req.PickupLocationID,
			DropLocationID:   req.DropLocationID,
			PickUpTime:       req.PickUpTime,
			DropOffTime:      req.DropOffTime,
			PaymentType:      req.PaymentType,
		}
		if err := s.bookings.CreateBooking(r.Context(), booking); err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, booking)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathID(r.URL.Path, "/api/v1/bookings/")
	if !ok || action != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, booking)
	case http.MethodPut, http.MethodPatch:
		var upd models.BookingUpdate
		if err := decodeJSON(r, &upd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		booking, err := s.bookings.UpdateBooking(r.Context(), id, upd)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, booking)
	case http.MethodDelete:
		if err := s.bookings.DeleteBooking(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "booking cancelled")
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
