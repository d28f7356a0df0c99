package model

import "errors"

// Sentinel errors. The handler layer maps these to HTTP status codes.
var (
	ErrInvalidSymbol       = errors.New("invalid_symbol")
	ErrQuoteNotFound       = errors.New("quote_not_found")
	ErrInvalidQuote        = errors.New("invalid_quote")
	ErrProviderUnavailable = errors.New("provider_unavailable")
	ErrUnknownMode         = errors.New("unknown_mode")
	ErrHistoryDisabled     = errors.New("history_disabled")
)
