// Package scoring turns behavioral counters into a ransomware risk verdict
// using a pre-trained classifier and scaler loaded from artifact files.
package scoring

import (
	"sync/atomic"

	"ransomguard/internal/domain/models"
	"ransomguard/pkg/logger"
)

// Score runs one feature vector through the bundle. It keeps no state and
// performs no I/O.
func Score(features FeatureVector, bundle *Bundle) (*models.Verdict, error) {
	if bundle == nil {
		return nil, &unavailable{}
	}

	row, err := Align(features, bundle.Features)
	if err != nil {
		return nil, err
	}

	scaled, err := bundle.Scaler.Transform(row)
	if err != nil {
		return nil, &InvalidFeatureError{Reason: "scaler rejected the row: " + err.Error()}
	}
	if len(scaled) != len(bundle.Features) {
		return nil, &InvalidFeatureError{Reason: "scaled row does not match the feature schema"}
	}

	predicted, err := bundle.Classifier.Predict(scaled)
	if err != nil {
		return nil, &InvalidFeatureError{Reason: "classifier rejected the row: " + err.Error()}
	}
	proba, err := bundle.Classifier.PredictProba(scaled)
	if err != nil {
		return nil, &InvalidFeatureError{Reason: "classifier rejected the row: " + err.Error()}
	}

	return PostProcess(predicted, proba, features, bundle.TargetEncoder)
}

// Engine holds the active bundle, or the load failure that left it without one
type Engine struct {
	state  atomic.Pointer[engineState]
	logger *logger.Logger
}

type engineState struct {
	bundle  *Bundle
	loadErr error
}

// NewEngine creates an engine around an already loaded bundle
func NewEngine(bundle *Bundle, log *logger.Logger) *Engine {
	e := &Engine{logger: log.WithComponent("scoring-engine")}
	e.state.Store(&engineState{bundle: bundle})
	return e
}

// LoadEngine loads the artifacts from dir. A failed load does not fail the
// engine: it stays up in "model unavailable" mode and rejects every score.
func LoadEngine(dir string, log *logger.Logger) *Engine {
	e := &Engine{logger: log.WithComponent("scoring-engine")}

	bundle, err := LoadArtifacts(dir)
	if err != nil {
		e.logger.Error().Stack().Err(err).Str("dir", dir).Msg("failed to load model artifacts, scoring disabled")
		e.state.Store(&engineState{loadErr: err})
		return e
	}

	e.logger.Info().Str("dir", bundle.Dir).Str("bundle", bundle.Describe()).Msg("model artifacts loaded")
	e.state.Store(&engineState{bundle: bundle})
	return e
}

// Available reports whether a bundle is loaded
func (e *Engine) Available() bool {
	return e.state.Load().bundle != nil
}

// Bundle returns the active bundle, or nil
func (e *Engine) Bundle() *Bundle {
	return e.state.Load().bundle
}

// LoadErr returns the error that prevented the last load, if the engine is unavailable
func (e *Engine) LoadErr() error {
	return e.state.Load().loadErr
}

// Score scores against the active bundle. Without one it returns an error
// matching ErrModelUnavailable.
func (e *Engine) Score(features FeatureVector) (*models.Verdict, error) {
	st := e.state.Load()
	if st.bundle == nil {
		return nil, &unavailable{cause: st.loadErr}
	}
	return Score(features, st.bundle)
}

// Reload loads a fresh bundle from dir and swaps it in. On failure the
// current bundle, if any, stays active.
func (e *Engine) Reload(dir string) (*Bundle, error) {
	bundle, err := LoadArtifacts(dir)
	if err != nil {
		e.logger.Error().Stack().Err(err).Str("dir", dir).Msg("model reload failed")
		if !e.Available() {
			e.state.Store(&engineState{loadErr: err})
		}
		return nil, err
	}

	e.state.Store(&engineState{bundle: bundle})
	e.logger.Info().Str("dir", bundle.Dir).Str("bundle", bundle.Describe()).Msg("model artifacts reloaded")
	return bundle, nil
}
