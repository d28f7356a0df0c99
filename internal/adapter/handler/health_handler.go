package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler pings each named dependency. A nil dependency is reported as disabled.
type HealthHandler struct {
	checks map[string]Pinger
	logger *slog.Logger
}

func NewHealthHandler(checks map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: logger,
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	overallStatus := "healthy"
	results := make(map[string]string, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dep := h.checks[name]
		if dep == nil {
			results[name] = "disabled"
			continue
		}
		if err := dep.Ping(r.Context()); err != nil {
			results[name] = "unhealthy"
			overallStatus = "degraded"
			h.logger.Warn("health check failed", "check", name, "error", err)
			continue
		}
		results[name] = "healthy"
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, statusCode, map[string]any{
		"status": overallStatus,
		"checks": results,
	})
}
