package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"marketdata/internal/application/service"
	"marketdata/internal/application/usecase"

	"github.com/go-chi/chi/v5"
)

type MarketHandler struct {
	quotes *usecase.QuoteUseCase
	market *service.MarketService
	logger *slog.Logger
}

func NewMarketHandler(quotes *usecase.QuoteUseCase, market *service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		quotes: quotes,
		market: market,
		logger: logger,
	}
}

// GetQuote handles GET /api/market/{symbol}.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		h.logger.Warn("failed to get quote", "symbol", symbol, "error", err, "request_id", RequestIDFrom(r.Context()))
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}

// GetQuotes handles GET /api/market?symbols=AAPL,MSFT.
func (h *MarketHandler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if strings.TrimSpace(raw) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "query parameter symbols is required")
		return
	}

	results, err := h.quotes.GetQuotes(r.Context(), strings.Split(raw, ","))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

// EvictQuote handles DELETE /api/market/{symbol}/cache.
func (h *MarketHandler) EvictQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := h.market.Evict(r.Context(), symbol); err != nil {
		h.logger.Error("failed to evict quote", "symbol", symbol, "error", err)
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache handles DELETE /api/market/cache.
func (h *MarketHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.market.ClearCache(r.Context())
	if err != nil {
		h.logger.Error("failed to clear quote cache", "error", err)
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"evicted": n})
}

// History handles GET /api/market/{symbol}/history?limit=N.
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.quotes.History(r.Context(), symbol, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, records)
}
