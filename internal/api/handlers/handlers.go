package handlers

import (
	"encoding/json"
	"net/http"

	"ransomguard/internal/domain/services"
	"ransomguard/internal/streaming"
	"ransomguard/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health    *HealthHandler
	Scans     *ScanHandler
	Pages     *PageHandler
	Admin     *AdminHandler
	Streaming *StreamingHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Scans    *services.ScanService
	Checks   map[string]Check
	WSHub    *streaming.WebSocketHub
	EventBus *streaming.EventBus
	Version  string
	Logger   *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Checks, deps.Version, deps.Logger),
		Scans:     NewScanHandler(deps.Scans, deps.Logger),
		Pages:     NewPageHandler(deps.Scans, deps.Logger),
		Admin:     NewAdminHandler(deps.Scans, deps.Logger),
		Streaming: NewStreamingHandler(deps.WSHub, deps.EventBus, deps.Logger),
	}
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Success: false, Error: message})
}
