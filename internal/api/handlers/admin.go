package handlers

import (
	"net/http"

	"ransomguard/internal/domain/services"
	"ransomguard/pkg/logger"
)

// AdminHandler handles operational endpoints
type AdminHandler struct {
	scans  *services.ScanService
	logger *logger.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(scans *services.ScanService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		scans:  scans,
		logger: log.WithComponent("admin"),
	}
}

// ModelStatus handles GET /admin/model
func (h *AdminHandler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scans.ModelStatus())
}

// ReloadModel handles POST /admin/model/reload. A failed reload leaves the
// active model in place.
func (h *AdminHandler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	h.logger.Info().Msg("model reload requested")

	status, err := h.scans.ReloadModel(r.Context())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"model":   h.scans.ModelStatus(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"model":   status,
	})
}
