package handler

import (
	"log/slog"
	"net/http"

	"marketdata/internal/application/service"
	"marketdata/internal/domain/model"
)

type ModeHandler struct {
	modeService *service.ModeService
	log         *slog.Logger
}

func NewModeHandler(ms *service.ModeService, log *slog.Logger) *ModeHandler {
	return &ModeHandler{
		modeService: ms,
		log:         log,
	}
}

func (h *ModeHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"mode": h.modeService.GetCurrentMode().String()})
}

func (h *ModeHandler) SwitchToPlaceholder(w http.ResponseWriter, r *http.Request) {
	h.log.Info("received request to switch to placeholder mode")
	h.switchMode(w, r, model.PlaceholderMode)
}

func (h *ModeHandler) SwitchToUpstream(w http.ResponseWriter, r *http.Request) {
	h.log.Info("received request to switch to upstream mode")
	h.switchMode(w, r, model.UpstreamMode)
}

func (h *ModeHandler) switchMode(w http.ResponseWriter, r *http.Request, mode model.SourceMode) {
	changed := h.modeService.SwitchMode(r.Context(), mode)
	if !changed {
		h.log.Info("already in requested mode", "mode", mode.String())
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"mode":    mode.String(),
		"changed": changed,
	})
}
