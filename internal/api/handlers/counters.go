package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"ransomguard/internal/domain/models"
)

// FieldFileName is the optional sample name submitted with the counters
const FieldFileName = "file_name"

// CounterError reports a submitted counter that is not a non-negative integer
type CounterError struct {
	Field  string
	Value  any
	Reason string
}

func (e *CounterError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %s", e.Value, e.Field, e.Reason)
}

// countersFromForm reads the counters from form values. Absent or empty
// fields count as zero.
func countersFromForm(form url.Values) (models.Counters, error) {
	var c models.Counters
	for _, name := range models.CounterNames {
		raw := strings.TrimSpace(form.Get(name))
		if raw == "" {
			continue
		}
		v, err := parseCounterString(name, raw)
		if err != nil {
			return c, err
		}
		c.Set(name, v)
	}
	return c, nil
}

// countersFromJSON reads the counters from a decoded JSON object. Keys that
// are not counters are ignored.
func countersFromJSON(body map[string]any) (models.Counters, error) {
	var c models.Counters
	for _, name := range models.CounterNames {
		raw, ok := body[name]
		if !ok || raw == nil {
			continue
		}
		v, err := parseCounterValue(name, raw)
		if err != nil {
			return c, err
		}
		c.Set(name, v)
	}
	return c, nil
}

func parseCounterValue(name string, raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return checkNonNegative(name, raw, n)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, &CounterError{Field: name, Value: raw, Reason: "not a number"}
		}
		return parseCounterFloat(name, raw, f)
	case float64:
		return parseCounterFloat(name, raw, v)
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return parseCounterString(name, v)
	default:
		return 0, &CounterError{Field: name, Value: raw, Reason: "not a number"}
	}
}

func parseCounterFloat(name string, raw any, f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, &CounterError{Field: name, Value: raw, Reason: "must be an integer"}
	}
	return checkNonNegative(name, raw, int64(f))
}

func parseCounterString(name, raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &CounterError{Field: name, Value: raw, Reason: "must be an integer"}
	}
	return checkNonNegative(name, raw, n)
}

func checkNonNegative(name string, raw any, n int64) (int64, error) {
	if n < 0 {
		return 0, &CounterError{Field: name, Value: raw, Reason: "must not be negative"}
	}
	return n, nil
}
