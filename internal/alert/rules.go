// Package alert derives alert conditions from readings against a fixed
// threshold rule table and tracks the currently active set with
// dwell-based auto-expiry.
package alert

import "github.com/luki/soilmon/internal/telemetry"

// Kind identifies a threshold rule.
type Kind int

const (
	LowMoisture Kind = iota
	PHOutOfRange
	HighTemperature
)

// Condition is a single rule violation derived from one reading.
type Condition struct {
	Kind    Kind
	Message string
}

// Threshold bounds for the rule table.
const (
	MoistureLow = 20.0
	PHMin       = 6.0
	PHMax       = 8.5
	TempHigh    = 60.0
)

// ruleTable lists every threshold rule in evaluation order. Rules are
// independent: all of them are checked for every reading.
var ruleTable = []struct {
	kind    Kind
	message string
	fires   func(telemetry.Reading) bool
}{
	{LowMoisture, "Low soil moisture", func(r telemetry.Reading) bool {
		return r.Moisture < MoistureLow
	}},
	{PHOutOfRange, "pH out of range", func(r telemetry.Reading) bool {
		return r.PH < PHMin || r.PH > PHMax
	}},
	{HighTemperature, "High temperature", func(r telemetry.Reading) bool {
		return r.Temperature > TempHigh
	}},
}

// Evaluate checks the reading against every rule and returns the
// conditions that fire, in rule-table order. Nil when none fire.
func Evaluate(r telemetry.Reading) []Condition {
	var out []Condition
	for _, rule := range ruleTable {
		if rule.fires(r) {
			out = append(out, Condition{Kind: rule.kind, Message: rule.message})
		}
	}
	return out
}
