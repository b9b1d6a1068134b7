package services

import (
	"ransomguard/internal/domain/models"
)

// Quick scan profile keys
const (
	ProfileBenign     = "benign"
	ProfileSuspicious = "suspicious"
	ProfileMalware    = "malware"
)

// DefaultProfile is used for unknown quick scan types
const DefaultProfile = ProfileBenign

var benignProfile = models.ScanProfile{
	Key:      ProfileBenign,
	Name:     "Benign File",
	Expected: models.LabelBenign,
	Counters: models.Counters{
		RegistryRead: 2, RegistryWrite: 1, RegistryDelete: 0, RegistryTotal: 3,
		NetworkThreats: 0, NetworkDNS: 1, NetworkHTTP: 1, NetworkConnections: 2,
		ProcessesMalicious: 0, ProcessesSuspicious: 0, ProcessesMonitored: 3, TotalProcesses: 3,
		FilesMalicious: 0, FilesSuspicious: 0, FilesText: 15, FilesUnknown: 1,
		DLLCalls: 20, APIs: 50,
	},
}

var suspiciousProfile = models.ScanProfile{
	Key:      ProfileSuspicious,
	Name:     "Suspicious File",
	Expected: models.LabelMalware,
	Counters: models.Counters{
		RegistryRead: 8, RegistryWrite: 4, RegistryDelete: 1, RegistryTotal: 13,
		NetworkThreats: 1, NetworkDNS: 3, NetworkHTTP: 2, NetworkConnections: 5,
		ProcessesMalicious: 0, ProcessesSuspicious: 2, ProcessesMonitored: 6, TotalProcesses: 8,
		FilesMalicious: 1, FilesSuspicious: 2, FilesText: 8, FilesUnknown: 3,
		DLLCalls: 60, APIs: 120,
	},
}

// quick scan variant of the malware sample
var malwareProfile = models.ScanProfile{
	Key:      ProfileMalware,
	Name:     "Malware File",
	Expected: models.LabelMalware,
	Counters: models.Counters{
		RegistryRead: 15, RegistryWrite: 8, RegistryDelete: 3, RegistryTotal: 26,
		NetworkThreats: 3, NetworkDNS: 5, NetworkHTTP: 4, NetworkConnections: 8,
		ProcessesMalicious: 2, ProcessesSuspicious: 3, ProcessesMonitored: 10, TotalProcesses: 15,
		FilesMalicious: 4, FilesSuspicious: 3, FilesText: 5, FilesUnknown: 6,
		DLLCalls: 150, APIs: 300,
	},
}

// heavier malware sample used by model evaluation
var evaluationMalwareProfile = models.ScanProfile{
	Key:      ProfileMalware,
	Name:     "Malware File",
	Expected: models.LabelMalware,
	Counters: models.Counters{
		RegistryRead: 25, RegistryWrite: 15, RegistryDelete: 8, RegistryTotal: 48,
		NetworkThreats: 8, NetworkDNS: 12, NetworkHTTP: 10, NetworkConnections: 18,
		ProcessesMalicious: 5, ProcessesSuspicious: 7, ProcessesMonitored: 20, TotalProcesses: 32,
		FilesMalicious: 10, FilesSuspicious: 8, FilesText: 3, FilesUnknown: 15,
		DLLCalls: 250, APIs: 500,
	},
}

// QuickScanProfiles returns the profiles offered by quick scans, in display order
func QuickScanProfiles() []models.ScanProfile {
	return []models.ScanProfile{benignProfile, suspiciousProfile, malwareProfile}
}

// EvaluationProfiles returns the labelled cases used to evaluate a model
func EvaluationProfiles() []models.ScanProfile {
	return []models.ScanProfile{benignProfile, suspiciousProfile, evaluationMalwareProfile}
}

// QuickScanProfile looks up a quick scan profile. Unknown keys fall back to
// the benign profile and report false.
func QuickScanProfile(key string) (models.ScanProfile, bool) {
	for _, p := range QuickScanProfiles() {
		if p.Key == key {
			return p, true
		}
	}
	return benignProfile, false
}
