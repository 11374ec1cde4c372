package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/cart"
	"github.com/dineflow/api/internal/orderflow"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/validate"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode JSON response", zap.Error(err))
	}
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

type fieldErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// isValidationError reports whether err is the caller's fault and should
// be answered with 400 and the error text.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyCart) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrDistanceUnknown) ||
		errors.Is(err, service.ErrOutsideDeliveryRadius) ||
		errors.Is(err, service.ErrItemUnavailable) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidVariant) ||
		errors.Is(err, service.ErrCustomerName) ||
		errors.Is(err, service.ErrInvalidRole) ||
		errors.Is(err, service.ErrOutletRequired) ||
		errors.Is(err, service.ErrWeakPassword) ||
		errors.Is(err, service.ErrEmailRequired) ||
		errors.Is(err, service.ErrNameRequired) ||
		errors.Is(err, service.ErrNotStaff) ||
		errors.Is(err, service.ErrInvalidRange) ||
		errors.Is(err, orderflow.ErrUnknownStatus) ||
		errors.Is(err, cart.ErrUnavailable) ||
		errors.Is(err, cart.ErrInvalidVariant) ||
		errors.Is(err, cart.ErrOutletMismatch)
}

// isConflictError reports whether err means the entity is not in a state
// that allows the request.
func isConflictError(err error) bool {
	return errors.Is(err, orderflow.ErrIllegalTransition) ||
		errors.Is(err, orderflow.ErrTerminal) ||
		errors.Is(err, store.ErrConflict) ||
		errors.Is(err, store.ErrDuplicate) ||
		errors.Is(err, service.ErrEmailTaken) ||
		errors.Is(err, service.ErrOutletUnavailable) ||
		errors.Is(err, service.ErrStockChanged)
}

// writeError maps a service or store error onto a status code. entity
// names what was being handled, e.g. "order". Anything unrecognised is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, entity string, err error) {
	var fields validate.FieldErrors
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, fieldErrorResponse{Error: "validation failed", Fields: fields})
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": entity + " not found"})
	case isConflictError(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	default:
		log.Error("request failed", zap.String("entity", entity), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
