package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/table-order/internal/auth"
	"github.com/vasiliy-maslov/table-order/internal/customer"
	"github.com/vasiliy-maslov/table-order/internal/db"
	"github.com/vasiliy-maslov/table-order/internal/menu"
	"github.com/vasiliy-maslov/table-order/internal/order"
	"github.com/vasiliy-maslov/table-order/internal/payment"
	"github.com/vasiliy-maslov/table-order/internal/validate"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type MissingFieldsResponse struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missingFields"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

type detailsKey struct{}

// withErrorDetails marks requests whose error responses may carry the
// underlying error text.
func withErrorDetails(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), detailsKey{}, enabled)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detailsEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(detailsKey{}).(bool)
	return enabled
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondWithServiceError maps a service error onto a status code and a
// client-safe message. fallback is used for unclassified failures.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var missing *validate.MissingFieldsError
	if errors.As(err, &missing) {
		respondWithJSON(w, http.StatusBadRequest, MissingFieldsResponse{
			Error:         "Missing required fields",
			MissingFields: missing.Fields,
		})
		return
	}

	status := mapErrorToStatusCode(err)
	logger := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg(fallback)
	} else {
		logger.Warn().Err(err).Int("status", status).Msg(fallback)
	}

	resp := ErrorResponse{Error: clientMessage(err, status, fallback)}
	if detailsEnabled(r.Context()) {
		resp.Details = err.Error()
	}
	respondWithJSON(w, status, resp)
}

func respondWithValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *validate.MissingFieldsError
	if errors.As(validate.AsMissingFields(err), &missing) {
		respondWithJSON(w, http.StatusBadRequest, MissingFieldsResponse{
			Error:         "Missing required fields",
			MissingFields: missing.Fields,
		})
		return
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		hlog.FromRequest(r).Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		return
	}

	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: formatValidationErrors(validationErrors),
	})
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "min":
			details[fe.Field()] = "must be at least " + fe.Param()
		case "oneof":
			details[fe.Field()] = "must be one of: " + fe.Param()
		default:
			details[fe.Field()] = "failed on " + fe.Tag()
		}
	}
	return details
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, menu.ErrInvalidID),
		errors.Is(err, menu.ErrInvalidPrice),
		errors.Is(err, order.ErrInvalidID),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrUnknownItem),
		errors.Is(err, order.ErrTotalTooLarge),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, payment.ErrMissingOrderID),
		errors.Is(err, db.ErrInvalidData):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactive),
		errors.Is(err, auth.ErrPasswordNotSet),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrUnknownSession):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, menu.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, customer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrDuplicateRequest),
		errors.Is(err, db.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, db.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage never echoes err itself: wrapped chains may carry driver
// text. The full error is only sent as details when enabled.
func clientMessage(err error, status int, fallback string) string {
	switch {
	case errors.Is(err, menu.ErrNotFound):
		return "Menu item not found"
	case errors.Is(err, menu.ErrInvalidID):
		return "Invalid menu item ID format"
	case errors.Is(err, menu.ErrInvalidPrice):
		return "Price must be a valid positive number"
	case errors.Is(err, order.ErrNotFound):
		return "Order not found"
	case errors.Is(err, order.ErrInvalidID):
		return "Invalid order ID format"
	case errors.Is(err, order.ErrInvalidStatus):
		return "Invalid status value"
	case errors.Is(err, order.ErrEmptyOrder):
		return "Order must contain at least one item"
	case errors.Is(err, order.ErrInvalidQuantity):
		return "Quantity must be at least 1"
	case errors.Is(err, order.ErrInvalidPaymentMethod):
		return "Invalid payment method"
	case errors.Is(err, order.ErrUnknownItem):
		return "Menu item not found or inactive"
	case errors.Is(err, order.ErrTotalTooLarge):
		return "Order total is too large"
	case errors.Is(err, order.ErrDuplicateRequest):
		return "Order with this idempotency key was already submitted"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, auth.ErrInactive):
		return "Account is inactive"
	case errors.Is(err, auth.ErrForbidden):
		return "Access denied. Admin or Manager role required"
	case errors.Is(err, auth.ErrPasswordNotSet):
		return "Password not set for this account. Please set a password first."
	case errors.Is(err, auth.ErrInvalidToken):
		return "Invalid or expired token"
	case errors.Is(err, auth.ErrUnknownSession):
		return "User not found or inactive"
	case errors.Is(err, auth.ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters long", auth.MinPasswordLength)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return fmt.Sprintf("Password must be at most %d bytes long", auth.MaxPasswordBytes)
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, customer.ErrNotFound):
		return "User not found"
	case errors.Is(err, payment.ErrMissingOrderID):
		return "Order ID is required"
	case errors.Is(err, db.ErrConflict):
		return "Resource already exists or is still referenced"
	case errors.Is(err, db.ErrInvalidData):
		return "Value rejected by database"
	}

	switch status {
	case http.StatusServiceUnavailable:
		return "Database unavailable"
	case http.StatusGatewayTimeout:
		return "Gateway Timeout"
	default:
		return fallback
	}
}
