package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"marketdata/internal/application/service"
	"marketdata/internal/application/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

func NewRouter(
	quotes *usecase.QuoteUseCase,
	market *service.MarketService,
	modes *service.ModeService,
	health *HealthHandler,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogging(logger))
	r.Use(middleware.Recoverer)

	marketH := NewMarketHandler(quotes, market, logger)
	modeH := NewModeHandler(modes, logger)

	r.Get("/health", health.Check)

	r.Route("/api/market", func(r chi.Router) {
		r.Get("/", marketH.GetQuotes)
		r.Delete("/cache", marketH.ClearCache)
		r.Get("/{symbol}", marketH.GetQuote)
		r.Delete("/{symbol}/cache", marketH.EvictQuote)
		r.Get("/{symbol}/history", marketH.History)
	})

	r.Get("/api/mode", modeH.GetMode)
	r.Post("/mode/placeholder", modeH.SwitchToPlaceholder)
	r.Post("/mode/upstream", modeH.SwitchToUpstream)

	return r
}

// requestID takes the caller's X-Request-ID or generates one, and echoes it back.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("request_id", RequestIDFrom(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter captures the status code for request logging.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
