package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/domain/services"
	"ransomguard/pkg/logger"
)

const maxBodyBytes = 1 << 20

// ScanHandler handles scan submission and the scan JSON API
type ScanHandler struct {
	scans  *services.ScanService
	logger *logger.Logger
}

// NewScanHandler creates a new ScanHandler
func NewScanHandler(scans *services.ScanService, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		scans:  scans,
		logger: log.WithComponent("scan-handler"),
	}
}

// AnalyzeResponse is returned for a scored submission
type AnalyzeResponse struct {
	Success bool `json:"success"`
	*services.AnalyzeResult
}

// QuickScanResponse is returned for a predefined profile scan
type QuickScanResponse struct {
	Success  bool   `json:"success"`
	TestName string `json:"test_name"`
	*services.QuickScanResult
}

// Analyze handles POST /analyze. Form posts are redirected to the result
// page; AJAX and JSON requests get a JSON body.
func (h *ScanHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	asJSON := wantsJSON(r)

	req, err := h.decodeAnalyzeRequest(w, r)
	if err != nil {
		h.fail(w, r, asJSON, err)
		return
	}

	res, err := h.scans.Analyze(r.Context(), req)
	if err != nil {
		h.fail(w, r, asJSON, err)
		return
	}

	if asJSON {
		respondJSON(w, http.StatusOK, AnalyzeResponse{Success: true, AnalyzeResult: res})
		return
	}
	http.Redirect(w, r, "/results/"+strconv.FormatInt(res.ScanID, 10), http.StatusSeeOther)
}

// Create handles POST /api/v1/scans
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeAnalyzeRequest(w, r)
	if err != nil {
		h.fail(w, r, true, err)
		return
	}

	res, err := h.scans.Analyze(r.Context(), req)
	if err != nil {
		h.fail(w, r, true, err)
		return
	}
	respondJSON(w, http.StatusCreated, AnalyzeResponse{Success: true, AnalyzeResult: res})
}

// QuickScan handles GET /quick-scan?type=benign|suspicious|malware
func (h *ScanHandler) QuickScan(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("type")
	if key == "" {
		key = services.DefaultProfile
	}

	res, err := h.scans.QuickScan(r.Context(), key)
	if err != nil {
		h.fail(w, r, true, err)
		return
	}

	respondJSON(w, http.StatusOK, QuickScanResponse{
		Success:         true,
		TestName:        res.Profile.Name,
		QuickScanResult: res,
	})
}

// List handles GET /api/v1/scans?limit=N
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	scans, err := h.scans.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list scans")
		respondError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"scans": scans,
		"count": len(scans),
	})
}

// Get handles GET /api/v1/scans/{id}
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	scan, err := h.scans.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrScanNotFound) {
			respondError(w, http.StatusNotFound, "scan not found")
			return
		}
		h.logger.Error().Err(err).Int64("scan_id", id).Msg("failed to get scan")
		respondError(w, http.StatusInternalServerError, "failed to get scan")
		return
	}

	respondJSON(w, http.StatusOK, scan)
}

// Stats handles GET /api/v1/stats
func (h *ScanHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scans.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get stats")
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"stats":        stats,
		"model_loaded": h.scans.ModelLoaded(),
		"service":      h.scans.GetStats(),
	})
}

func (h *ScanHandler) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (services.AnalyzeRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	reqID := middleware.GetReqID(r.Context())

	if isJSONBody(r) {
		var body map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return services.AnalyzeRequest{}, &requestError{msg: "invalid JSON body"}
		}
		counters, err := countersFromJSON(body)
		if err != nil {
			return services.AnalyzeRequest{}, err
		}
		name, _ := body[FieldFileName].(string)
		return services.AnalyzeRequest{FileName: strings.TrimSpace(name), Counters: counters, RequestID: reqID}, nil
	}

	if err := r.ParseForm(); err != nil {
		return services.AnalyzeRequest{}, &requestError{msg: "invalid form body"}
	}
	counters, err := countersFromForm(r.PostForm)
	if err != nil {
		return services.AnalyzeRequest{}, err
	}
	return services.AnalyzeRequest{
		FileName:  strings.TrimSpace(r.PostForm.Get(FieldFileName)),
		Counters:  counters,
		RequestID: reqID,
	}, nil
}

// fail reports err as JSON, or redirects a form post back to the dashboard
// with the message.
func (h *ScanHandler) fail(w http.ResponseWriter, r *http.Request, asJSON bool, err error) {
	status, message := errorStatus(err)
	log := h.logger.WithRequestID(middleware.GetReqID(r.Context()))
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("scan request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("scan request rejected")
	}

	if asJSON {
		respondError(w, status, message)
		return
	}
	http.Redirect(w, r, "/?error="+url.QueryEscape(message), http.StatusSeeOther)
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// errorStatus maps an error to an HTTP status and a client-facing message
func errorStatus(err error) (int, string) {
	var (
		counterErr *CounterError
		featureErr *scoring.InvalidFeatureError
		loadErr    *scoring.LoadError
		reqErr     *requestError
	)
	switch {
	case errors.Is(err, scoring.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "Model not loaded. Please check model files."
	case errors.As(err, &counterErr), errors.As(err, &featureErr), errors.As(err, &reqErr):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &loadErr):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" || isJSONBody(r)
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}
