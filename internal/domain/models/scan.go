package models

import (
	"strings"
	"time"
)

// RiskLevel is the risk tier derived from the malware probability
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// Rank orders risk levels, LOW=1 .. HIGH=3. Unknown levels rank 0.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLevelLow:
		return 1
	case RiskLevelMedium:
		return 2
	case RiskLevelHigh:
		return 3
	default:
		return 0
	}
}

// ParseRiskLevel parses a risk level case-insensitively
func ParseRiskLevel(s string) (RiskLevel, bool) {
	r := RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Rank() > 0
}

// Recommendation is the action suggested for a scanned sample
type Recommendation string

const (
	RecommendationAllow      Recommendation = "ALLOW"
	RecommendationQuarantine Recommendation = "BLOCK/QUARANTINE"
)

// Prediction labels stored for scans
const (
	LabelBenign  = "Benign"
	LabelMalware = "Malware"
)

// DefaultFileName is recorded when a scan is submitted without a name
const DefaultFileName = "Manual Entry"

// Verdict is the structured scoring result for one sample
type Verdict struct {
	Prediction         string         `json:"prediction"`
	Confidence         float64        `json:"confidence"`
	MalwareProbability float64        `json:"malware_probability"`
	BenignProbability  float64        `json:"benign_probability"`
	RiskLevel          RiskLevel      `json:"risk_level"`
	Recommendation     Recommendation `json:"recommendation"`
	Details            VerdictDetails `json:"details"`
}

// VerdictDetails are boolean hints taken straight from the raw counters
type VerdictDetails struct {
	HighRegistryActivity bool `json:"high_registry_activity"`
	SuspiciousNetwork    bool `json:"suspicious_network"`
	MaliciousProcesses   bool `json:"malicious_processes"`
	SuspiciousFiles      bool `json:"suspicious_files"`
}

// Feature names of the behavioral counters accepted on input.
// "total_procsses" is spelled the way the trained models expect it.
const (
	FeatureRegistryRead        = "registry_read"
	FeatureRegistryWrite       = "registry_write"
	FeatureRegistryDelete      = "registry_delete"
	FeatureRegistryTotal       = "registry_total"
	FeatureNetworkThreats      = "network_threats"
	FeatureNetworkDNS          = "network_dns"
	FeatureNetworkHTTP         = "network_http"
	FeatureNetworkConnections  = "network_connections"
	FeatureProcessesMalicious  = "processes_malicious"
	FeatureProcessesSuspicious = "processes_suspicious"
	FeatureProcessesMonitored  = "processes_monitored"
	FeatureTotalProcesses      = "total_procsses"
	FeatureFilesMalicious      = "files_malicious"
	FeatureFilesSuspicious     = "files_suspicious"
	FeatureFilesText           = "files_text"
	FeatureFilesUnknown        = "files_unknown"
	FeatureDLLCalls            = "dlls_calls"
	FeatureAPIs                = "apis"
)

// CounterNames lists the 18 counters in form order
var CounterNames = []string{
	FeatureRegistryRead, FeatureRegistryWrite, FeatureRegistryDelete, FeatureRegistryTotal,
	FeatureNetworkThreats, FeatureNetworkDNS, FeatureNetworkHTTP, FeatureNetworkConnections,
	FeatureProcessesMalicious, FeatureProcessesSuspicious, FeatureProcessesMonitored, FeatureTotalProcesses,
	FeatureFilesMalicious, FeatureFilesSuspicious, FeatureFilesText, FeatureFilesUnknown,
	FeatureDLLCalls, FeatureAPIs,
}

// Counters is the typed behavioral summary for one sample
type Counters struct {
	RegistryRead        int64 `json:"registry_read"`
	RegistryWrite       int64 `json:"registry_write"`
	RegistryDelete      int64 `json:"registry_delete"`
	RegistryTotal       int64 `json:"registry_total"`
	NetworkThreats      int64 `json:"network_threats"`
	NetworkDNS          int64 `json:"network_dns"`
	NetworkHTTP         int64 `json:"network_http"`
	NetworkConnections  int64 `json:"network_connections"`
	ProcessesMalicious  int64 `json:"processes_malicious"`
	ProcessesSuspicious int64 `json:"processes_suspicious"`
	ProcessesMonitored  int64 `json:"processes_monitored"`
	TotalProcesses      int64 `json:"total_procsses"`
	FilesMalicious      int64 `json:"files_malicious"`
	FilesSuspicious     int64 `json:"files_suspicious"`
	FilesText           int64 `json:"files_text"`
	FilesUnknown        int64 `json:"files_unknown"`
	DLLCalls            int64 `json:"dlls_calls"`
	APIs                int64 `json:"apis"`
}

// fields returns pointers to every counter keyed by feature name
func (c *Counters) fields() map[string]*int64 {
	return map[string]*int64{
		FeatureRegistryRead:        &c.RegistryRead,
		FeatureRegistryWrite:       &c.RegistryWrite,
		FeatureRegistryDelete:      &c.RegistryDelete,
		FeatureRegistryTotal:       &c.RegistryTotal,
		FeatureNetworkThreats:      &c.NetworkThreats,
		FeatureNetworkDNS:          &c.NetworkDNS,
		FeatureNetworkHTTP:         &c.NetworkHTTP,
		FeatureNetworkConnections:  &c.NetworkConnections,
		FeatureProcessesMalicious:  &c.ProcessesMalicious,
		FeatureProcessesSuspicious: &c.ProcessesSuspicious,
		FeatureProcessesMonitored:  &c.ProcessesMonitored,
		FeatureTotalProcesses:      &c.TotalProcesses,
		FeatureFilesMalicious:      &c.FilesMalicious,
		FeatureFilesSuspicious:     &c.FilesSuspicious,
		FeatureFilesText:           &c.FilesText,
		FeatureFilesUnknown:        &c.FilesUnknown,
		FeatureDLLCalls:            &c.DLLCalls,
		FeatureAPIs:                &c.APIs,
	}
}

// Set assigns a counter by feature name. Unknown names return false.
func (c *Counters) Set(name string, v int64) bool {
	p, ok := c.fields()[name]
	if !ok {
		return false
	}
	*p = v
	return true
}

// Features converts the counters to the raw name → value mapping scored by the engine
func (c Counters) Features() map[string]any {
	out := make(map[string]any, len(CounterNames))
	for name, p := range c.fields() {
		out[name] = *p
	}
	return out
}

// ScanResult is a persisted, insert-only scan record
type ScanResult struct {
	ID                 int64          `json:"id" db:"id"`
	Timestamp          time.Time      `json:"timestamp" db:"timestamp"`
	FileName           string         `json:"file_name,omitempty" db:"file_name"`
	Prediction         string         `json:"prediction" db:"prediction"`
	Confidence         float64        `json:"confidence" db:"confidence"`
	MalwareProbability float64        `json:"malware_probability" db:"malware_probability"`
	RiskLevel          RiskLevel      `json:"risk_level" db:"risk_level"`
	Recommendation     Recommendation `json:"recommendation" db:"recommendation"`

	RegistryRead       int64 `json:"registry_read" db:"registry_read"`
	RegistryWrite      int64 `json:"registry_write" db:"registry_write"`
	RegistryDelete     int64 `json:"registry_delete" db:"registry_delete"`
	NetworkThreats     int64 `json:"network_threats" db:"network_threats"`
	ProcessesMalicious int64 `json:"processes_malicious" db:"processes_malicious"`
	FilesMalicious     int64 `json:"files_malicious" db:"files_malicious"`
}

// NewScanResult builds the record persisted for a scored sample
func NewScanResult(fileName string, c Counters, v *Verdict) *ScanResult {
	if strings.TrimSpace(fileName) == "" {
		fileName = DefaultFileName
	}
	return &ScanResult{
		Timestamp:          time.Now().UTC(),
		FileName:           fileName,
		Prediction:         v.Prediction,
		Confidence:         v.Confidence,
		MalwareProbability: v.MalwareProbability,
		RiskLevel:          v.RiskLevel,
		Recommendation:     v.Recommendation,
		RegistryRead:       c.RegistryRead,
		RegistryWrite:      c.RegistryWrite,
		RegistryDelete:     c.RegistryDelete,
		NetworkThreats:     c.NetworkThreats,
		ProcessesMalicious: c.ProcessesMalicious,
		FilesMalicious:     c.FilesMalicious,
	}
}

// Summary renders a one-line description, e.g. "Malware - HIGH (2025-01-02 15:04)"
func (s *ScanResult) Summary() string {
	return s.Prediction + " - " + string(s.RiskLevel) + " (" + s.Timestamp.Format("2006-01-02 15:04") + ")"
}

// ScanStats are the dashboard counters over all persisted scans
type ScanStats struct {
	TotalScans      int64     `json:"total_scans"`
	MalwareDetected int64     `json:"malware_detected"`
	HighRisk        int64     `json:"high_risk"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// ScanProfile is a predefined counter set used by quick scans and model evaluation
type ScanProfile struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Expected string   `json:"expected,omitempty"`
	Counters Counters `json:"data"`
}
