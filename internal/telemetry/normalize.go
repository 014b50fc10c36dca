package telemetry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Normalize converts a raw record into a well-typed Reading. The
// timestamp comes from the record's own timestamp field when it is
// numeric, otherwise from the record key (push keys are epoch-ms
// strings). Every measurement that is missing, non-numeric, or
// non-finite becomes 0. Never returns an error.
func Normalize(raw RawRecord) Reading {
	r := Reading{ID: raw.Key}

	if ts, ok := toNumber(raw.Fields["timestamp"]); ok {
		r.Timestamp = int64(ts)
	} else if ts, err := strconv.ParseInt(strings.TrimSpace(raw.Key), 10, 64); err == nil {
		r.Timestamp = ts
	}

	r.Moisture = measurement(raw.Fields, "moisture")
	r.Temperature = measurement(raw.Fields, "temperature")
	r.EC = measurement(raw.Fields, "ec")
	r.PH = measurement(raw.Fields, "ph")
	r.Nitrogen = measurement(raw.Fields, "nitrogen")
	r.Phosphorus = measurement(raw.Fields, "phosphorus")
	r.Potassium = measurement(raw.Fields, "potassium")
	return r
}

func measurement(fields map[string]any, name string) float64 {
	v, ok := toNumber(fields[name])
	if !ok {
		return 0
	}
	return v
}

// toNumber coerces the JSON-ish value types a source record can carry.
// NaN and infinities are rejected so readings stay finite.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
