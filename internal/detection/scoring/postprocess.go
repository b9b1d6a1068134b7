package scoring

import (
	"ransomguard/internal/domain/models"
)

// Risk tier thresholds on the malware probability. Both are strict lower
// bounds: a probability equal to a threshold falls into the tier below.
const (
	HighRiskThreshold   = 0.7
	MediumRiskThreshold = 0.4
)

// Details thresholds on the raw counters
const (
	registryActivityThreshold = 5
)

// RiskLevelFor maps the malware probability (0-1) to a risk tier
func RiskLevelFor(malwareProb float64) models.RiskLevel {
	switch {
	case malwareProb > HighRiskThreshold:
		return models.RiskLevelHigh
	case malwareProb > MediumRiskThreshold:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// ResolveLabel turns the predicted class index into a label. Without a decoder,
// index 1 is "Benign" and anything else is "Malware". That mapping is the
// reverse of the recommendation and risk rules, which treat index 1 as malware;
// stored history depends on it, so it is kept as is.
func ResolveLabel(predicted int, decoder LabelDecoder) (string, error) {
	if decoder != nil {
		label, err := decoder.InverseTransform(predicted)
		if err != nil {
			return "", &InvalidFeatureError{Reason: "predicted class cannot be decoded: " + err.Error()}
		}
		return label, nil
	}
	if predicted == 1 {
		return models.LabelBenign, nil
	}
	return models.LabelMalware, nil
}

// RecommendationFor allows class 0 and quarantines everything else
func RecommendationFor(predicted int) models.Recommendation {
	if predicted == 0 {
		return models.RecommendationAllow
	}
	return models.RecommendationQuarantine
}

// DetailsFor derives the detail flags from the raw, unaligned counters
func DetailsFor(raw FeatureVector) (models.VerdictDetails, error) {
	var d models.VerdictDetails

	registryTotal, err := raw.Value(models.FeatureRegistryTotal)
	if err != nil {
		return d, err
	}
	networkThreats, err := raw.Value(models.FeatureNetworkThreats)
	if err != nil {
		return d, err
	}
	processesMalicious, err := raw.Value(models.FeatureProcessesMalicious)
	if err != nil {
		return d, err
	}
	filesMalicious, err := raw.Value(models.FeatureFilesMalicious)
	if err != nil {
		return d, err
	}

	d.HighRegistryActivity = registryTotal > registryActivityThreshold
	d.SuspiciousNetwork = networkThreats > 0
	d.MaliciousProcesses = processesMalicious > 0
	d.SuspiciousFiles = filesMalicious > 0
	return d, nil
}

// PostProcess builds the verdict from the classifier output.
// proba must hold exactly [P(class 0), P(class 1)].
func PostProcess(predicted int, proba []float64, raw FeatureVector, decoder LabelDecoder) (*models.Verdict, error) {
	if len(proba) != 2 {
		return nil, &InvalidFeatureError{Reason: "classifier returned a non-binary probability vector"}
	}
	benignProb, malwareProb := proba[0], proba[1]

	label, err := ResolveLabel(predicted, decoder)
	if err != nil {
		return nil, err
	}

	details, err := DetailsFor(raw)
	if err != nil {
		return nil, err
	}

	return &models.Verdict{
		Prediction:         label,
		Confidence:         max(benignProb, malwareProb) * 100,
		MalwareProbability: malwareProb * 100,
		BenignProbability:  benignProb * 100,
		RiskLevel:          RiskLevelFor(malwareProb),
		Recommendation:     RecommendationFor(predicted),
		Details:            details,
	}, nil
}
