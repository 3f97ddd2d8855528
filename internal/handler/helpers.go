package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// ============================================================
// Response envelope
// ============================================================

// Error type tags of the client contract.
const (
	errTypeValidation = "validation_error"
	errTypeAuth       = "auth_error"
	errTypeStripe     = "stripe_error"
	errTypeNetwork    = "network_error"
	errTypePayment    = "payment_error"
	errTypeDatabase   = "database_error"
	errTypeUnknown    = "unknown_error"
)

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// serviceResponse is the uniform envelope every business endpoint
// returns: {success, data?, error?, message?}.
type serviceResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Data: data, Message: message})
}

func writeFailure(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, serviceResponse{
		Success: false,
		Error:   &errorBody{Type: errType, Message: message},
	})
}

// handleServiceError maps domain errors to the tagged envelope.
// Nothing escapes as a raw error: unclassified failures surface as
// unknown_error.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var forbidden *domain.ErrForbidden
	var payment *domain.ErrPayment
	var stripeErr *domain.ErrStripe
	var network *domain.ErrNetwork
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var notFound *domain.ErrNotFound
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeFailure(w, http.StatusBadRequest, errTypeValidation, validation.Message)
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeFailure(w, http.StatusUnauthorized, errTypeAuth, unauthorized.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden", zap.String("error", err.Error()))
		writeFailure(w, http.StatusForbidden, errTypeAuth, err.Error())
	case errors.As(err, &payment):
		logger.Warn("payment error", zap.String("error", err.Error()))
		writeFailure(w, http.StatusUnprocessableEntity, errTypePayment, payment.Reason)
	case errors.As(err, &stripeErr):
		logger.Error("stripe error", zap.Error(err))
		writeFailure(w, http.StatusBadGateway, errTypeStripe, stripeErr.Message)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeFailure(w, http.StatusServiceUnavailable, errTypeNetwork, err.Error())
	case errors.As(err, &network):
		logger.Error("network error", zap.Error(err))
		writeFailure(w, http.StatusServiceUnavailable, errTypeNetwork, "Could not reach the payment processor")
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeFailure(w, http.StatusGatewayTimeout, errTypeNetwork, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeFailure(w, http.StatusNotFound, errTypeUnknown, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, errTypeDatabase, "A storage error occurred")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, errTypeUnknown, "internal server error")
	}
}

// decodeBody decodes a JSON request body into dst, rejecting bodies
// over 64 KiB.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, errTypeValidation, "Invalid request body")
		return false
	}
	return true
}
