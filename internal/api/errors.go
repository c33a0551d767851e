package api

import (
	"errors"
	"net/http"

	"carbooker/internal/database"
	"carbooker/internal/pricing"
	"carbooker/internal/provider"
	"carbooker/internal/service"
)

// writeServiceError maps domain errors onto HTTP statuses. Gateway failures
// become 502 so callers can tell our bugs from the provider's.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	var perr *provider.Error

	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, pricing.ErrInvalidInterval),
		errors.Is(err, pricing.ErrUnknownPaymentType),
		errors.Is(err, provider.ErrUnsupportedMethod),
		errors.Is(err, service.ErrWebhookVerification):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrCarUnavailable),
		errors.Is(err, database.ErrPackageOverlap),
		errors.Is(err, database.ErrDuplicateLocation),
		errors.Is(err, service.ErrPaymentNotCompleted):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &perr):
		writeError(w, http.StatusBadGateway, perr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
