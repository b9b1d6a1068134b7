package scoring

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrModelUnavailable is returned by scoring calls made while no artifact
// bundle is loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// LoadError reports an artifact that could not be read, decoded or validated
type LoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to load %s artifact: %v", e.Artifact, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InvalidFeatureError reports a feature vector that cannot be scored
type InvalidFeatureError struct {
	Feature string
	Value   any
	Reason  string
}

func (e *InvalidFeatureError) Error() string {
	if e.Feature == "" {
		return "invalid feature vector: " + e.Reason
	}
	return fmt.Sprintf("invalid value %v for feature %q: %s", e.Value, e.Feature, e.Reason)
}

// unavailable wraps the load failure that left the engine without a bundle
type unavailable struct {
	cause error
}

func (u *unavailable) Error() string {
	if u.cause == nil {
		return ErrModelUnavailable.Error()
	}
	return ErrModelUnavailable.Error() + ": " + u.cause.Error()
}

func (u *unavailable) Is(target error) bool { return target == ErrModelUnavailable }

func (u *unavailable) Unwrap() error { return u.cause }
