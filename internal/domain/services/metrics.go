package services

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ransomguard/internal/detection/scoring"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomguard_scans_total",
		Help: "Total scored samples by prediction, risk level and whether they were persisted.",
	}, []string{"prediction", "risk_level", "persisted"})

	scoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ransomguard_scoring_duration_seconds",
		Help:    "Time spent scoring one sample.",
		Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
	})

	scoringErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomguard_scoring_errors_total",
		Help: "Total rejected scoring requests by reason.",
	}, []string{"reason"})

	modelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ransomguard_model_loaded",
		Help: "1 when a model bundle is loaded, 0 otherwise.",
	})

	modelReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ransomguard_model_reloads_total",
		Help: "Total model reload attempts by result.",
	}, []string{"result"})
)

func recordScan(prediction, riskLevel string, persisted bool) {
	scansTotal.WithLabelValues(prediction, riskLevel, strconv.FormatBool(persisted)).Inc()
}

func recordScoringError(err error) {
	reason := "other"
	var ife *scoring.InvalidFeatureError
	switch {
	case errors.Is(err, scoring.ErrModelUnavailable):
		reason = "model_unavailable"
	case errors.As(err, &ife):
		reason = "invalid_feature"
	}
	scoringErrorsTotal.WithLabelValues(reason).Inc()
}

func setModelLoaded(loaded bool) {
	if loaded {
		modelLoaded.Set(1)
	} else {
		modelLoaded.Set(0)
	}
}

func recordModelReload(success bool) {
	if success {
		modelReloadsTotal.WithLabelValues("success").Inc()
	} else {
		modelReloadsTotal.WithLabelValues("failure").Inc()
	}
}
