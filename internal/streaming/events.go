package streaming

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"ransomguard/internal/domain/models"
)

// EventType represents the type of scan event
type EventType string

const (
	EventTypeScanCompleted EventType = "scan_completed"
	EventTypeQuickScan     EventType = "quick_scan"
	EventTypeModelReloaded EventType = "model_reloaded"
)

// ScanEvent represents a real-time scan result
type ScanEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Scan details, ScanID is 0 for scans that were not persisted
	ScanID             int64                 `json:"scan_id,omitempty"`
	FileName           string                `json:"file_name,omitempty"`
	Prediction         string                `json:"prediction"`
	Confidence         float64               `json:"confidence"`
	MalwareProbability float64               `json:"malware_probability"`
	RiskLevel          models.RiskLevel      `json:"risk_level"`
	Recommendation     models.Recommendation `json:"recommendation"`

	ModelVersion string `json:"model_version,omitempty"`
}

// NewScanEvent creates a scan completed event from a persisted scan
func NewScanEvent(scan *models.ScanResult, modelVersion string) *ScanEvent {
	return &ScanEvent{
		ID:                 uuid.New().String(),
		Type:               EventTypeScanCompleted,
		Timestamp:          time.Now().UTC(),
		ScanID:             scan.ID,
		FileName:           scan.FileName,
		Prediction:         scan.Prediction,
		Confidence:         scan.Confidence,
		MalwareProbability: scan.MalwareProbability,
		RiskLevel:          scan.RiskLevel,
		Recommendation:     scan.Recommendation,
		ModelVersion:       modelVersion,
	}
}

// NewQuickScanEvent creates an event for a predefined profile scan
func NewQuickScanEvent(profile string, v *models.Verdict, modelVersion string) *ScanEvent {
	return &ScanEvent{
		ID:                 uuid.New().String(),
		Type:               EventTypeQuickScan,
		Timestamp:          time.Now().UTC(),
		FileName:           profile,
		Prediction:         v.Prediction,
		Confidence:         v.Confidence,
		MalwareProbability: v.MalwareProbability,
		RiskLevel:          v.RiskLevel,
		Recommendation:     v.Recommendation,
		ModelVersion:       modelVersion,
	}
}

// ModelReloadEvent reports the outcome of a model reload
type ModelReloadEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Success  bool   `json:"success"`
	Version  string `json:"version,omitempty"`
	Features int    `json:"features,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Subscription represents a client's subscription preferences
type Subscription struct {
	// Filter by risk level (empty = all)
	MinRisk models.RiskLevel `json:"min_risk,omitempty"`

	// Filter by prediction label (empty = all)
	Predictions []string `json:"predictions,omitempty"`

	// Only events for scans that were persisted
	PersistedOnly bool `json:"persisted_only,omitempty"`
}

// Matches checks if an event matches the subscription filters
func (s *Subscription) Matches(event *ScanEvent) bool {
	// Check risk
	if s.MinRisk != "" {
		minRisk, ok := models.ParseRiskLevel(string(s.MinRisk))
		if ok && event.RiskLevel.Rank() < minRisk.Rank() {
			return false
		}
	}

	// Check predictions
	if len(s.Predictions) > 0 {
		found := false
		for _, p := range s.Predictions {
			if strings.EqualFold(p, event.Prediction) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.PersistedOnly && event.ScanID == 0 {
		return false
	}

	return true
}

// riskOrEmpty parses a risk level, returning "" (no filter) when invalid
func riskOrEmpty(s string) models.RiskLevel {
	r, ok := models.ParseRiskLevel(s)
	if !ok {
		return ""
	}
	return r
}
