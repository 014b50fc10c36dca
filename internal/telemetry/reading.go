// Package telemetry defines the soil sensor reading value type and the
// normalizer that coerces loosely-typed source records into it.
// Malformed input never blocks ingestion: anything missing or
// non-numeric degrades to zero.
package telemetry

// Reading is a single timestamped soil sensor sample.
type Reading struct {
	ID          string // opaque source-provided record key
	Timestamp   int64  // epoch milliseconds
	Moisture    float64
	Temperature float64
	EC          float64
	PH          float64
	Nitrogen    float64
	Phosphorus  float64
	Potassium   float64
}

// RawRecord is one loosely-typed record as delivered by the data
// source. Field values may be numbers, numeric strings, or absent.
type RawRecord struct {
	Key    string
	Fields map[string]any
}

// Snapshot is a sequence of raw records in source insertion order.
// The last element is the newest reading.
type Snapshot []RawRecord
