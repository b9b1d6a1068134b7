package services

import (
	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/domain/models"
)

// EvaluationCase is the outcome of scoring one labelled profile
type EvaluationCase struct {
	Profile models.ScanProfile `json:"profile"`
	Verdict *models.Verdict    `json:"verdict,omitempty"`
	Passed  bool               `json:"passed"`
	Error   string             `json:"error,omitempty"`
}

// EvaluationReport summarizes a model evaluation run
type EvaluationReport struct {
	ModelVersion string           `json:"model_version"`
	Cases        []EvaluationCase `json:"cases"`
	Passed       int              `json:"passed"`
	Failed       int              `json:"failed"`
}

// AllPassed reports whether every case produced its expected label
func (r *EvaluationReport) AllPassed() bool {
	return r.Failed == 0
}

// Accuracy is the share of passed cases as a percentage
func (r *EvaluationReport) Accuracy() float64 {
	total := r.Passed + r.Failed
	if total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(total) * 100
}

// Evaluate scores each profile against the bundle and compares the
// prediction with the expected label. Scoring errors count as failures.
func Evaluate(bundle *scoring.Bundle, profiles []models.ScanProfile) *EvaluationReport {
	report := &EvaluationReport{Cases: make([]EvaluationCase, 0, len(profiles))}
	if bundle != nil {
		report.ModelVersion = bundle.Version
	}

	for _, p := range profiles {
		c := EvaluationCase{Profile: p}
		verdict, err := scoring.Score(p.Counters.Features(), bundle)
		if err != nil {
			c.Error = err.Error()
		} else {
			c.Verdict = verdict
			c.Passed = p.Expected == "" || verdict.Prediction == p.Expected
		}
		if c.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Cases = append(report.Cases, c)
	}
	return report
}
