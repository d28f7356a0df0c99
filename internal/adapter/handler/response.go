package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"marketdata/internal/concurrency/breaker"
	"marketdata/internal/domain/model"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// writeServiceError maps domain errors to their HTTP status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	WriteError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidSymbol):
		return http.StatusBadRequest, model.ErrInvalidSymbol.Error()
	case errors.Is(err, model.ErrUnknownMode):
		return http.StatusBadRequest, model.ErrUnknownMode.Error()
	case errors.Is(err, model.ErrQuoteNotFound):
		return http.StatusNotFound, model.ErrQuoteNotFound.Error()
	case errors.Is(err, model.ErrProviderUnavailable):
		return http.StatusBadGateway, model.ErrProviderUnavailable.Error()
	case errors.Is(err, model.ErrInvalidQuote):
		return http.StatusBadGateway, model.ErrInvalidQuote.Error()
	case errors.Is(err, model.ErrHistoryDisabled):
		return http.StatusServiceUnavailable, model.ErrHistoryDisabled.Error()
	case errors.Is(err, breaker.ErrOpen):
		return http.StatusServiceUnavailable, "cache_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
