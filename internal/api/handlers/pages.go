package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ransomguard/internal/domain/models"
	"ransomguard/internal/domain/services"
	"ransomguard/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"riskClass": func(r models.RiskLevel) string {
		return "risk-" + strings.ToLower(string(r))
	},
	"datetime": func(s *models.ScanResult) string { return s.Timestamp.Format("2006-01-02 15:04:05") },
}

// PageHandler renders the HTML pages
type PageHandler struct {
	scans  *services.ScanService
	pages  map[string]*template.Template
	logger *logger.Logger
}

// NewPageHandler creates a new PageHandler. It panics if the embedded
// templates do not parse.
func NewPageHandler(scans *services.ScanService, log *logger.Logger) *PageHandler {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"dashboard", "analyze", "result", "history", "not_found"} {
		pages[name] = template.Must(template.New("layout.html").Funcs(pageFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return &PageHandler{
		scans:  scans,
		pages:  pages,
		logger: log.WithComponent("pages"),
	}
}

type dashboardPage struct {
	Recent      []*models.ScanResult
	Stats       *models.ScanStats
	ModelLoaded bool
	Error       string
}

// Dashboard handles GET /
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	recent, err := h.scans.Recent(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	stats, err := h.scans.Stats(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.render(w, http.StatusOK, "dashboard", dashboardPage{
		Recent:      recent,
		Stats:       stats,
		ModelLoaded: h.scans.ModelLoaded(),
		Error:       r.URL.Query().Get("error"),
	})
}

type analyzePage struct {
	ModelLoaded bool
	Fields      []string
	Profiles    []models.ScanProfile
}

// AnalyzeForm handles GET /analyze
func (h *PageHandler) AnalyzeForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "analyze", analyzePage{
		ModelLoaded: h.scans.ModelLoaded(),
		Fields:      models.CounterNames,
		Profiles:    services.QuickScanProfiles(),
	})
}

// Result handles GET /results/{id}
func (h *PageHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.render(w, http.StatusNotFound, "not_found", nil)
		return
	}

	scan, err := h.scans.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrScanNotFound) {
			h.render(w, http.StatusNotFound, "not_found", nil)
			return
		}
		h.serverError(w, err)
		return
	}

	h.render(w, http.StatusOK, "result", scan)
}

// History handles GET /history
func (h *PageHandler) History(w http.ResponseWriter, r *http.Request) {
	scans, err := h.scans.List(r.Context(), 0)
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, http.StatusOK, "history", scans)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages[page].Execute(&buf, data); err != nil {
		h.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *PageHandler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("failed to render page")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
