// Package export renders readings as delimited text for download.
// The column schema is fixed and every cell is a number or a date
// string, so the output never needs quoting.
package export

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/luki/soilmon/internal/telemetry"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	fileLayout = "2006-01-02"
)

var header = []string{
	"Time",
	"Moisture (%)",
	"Temperature (°C)",
	"EC (µS/cm)",
	"pH",
	"Nitrogen",
	"Phosphorus",
	"Potassium",
}

// Format renders the readings as CSV: one header line, then one line
// per reading. Moisture and temperature carry 1 decimal, pH 2, and
// EC/N/P/K none; timestamps render in local time.
func Format(readings []telemetry.Reading) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write(header)
	for _, r := range readings {
		w.Write([]string{
			time.UnixMilli(r.Timestamp).Local().Format(timeLayout),
			fmt.Sprintf("%.1f", r.Moisture),
			fmt.Sprintf("%.1f", r.Temperature),
			fmt.Sprintf("%.0f", r.EC),
			fmt.Sprintf("%.2f", r.PH),
			fmt.Sprintf("%.0f", r.Nitrogen),
			fmt.Sprintf("%.0f", r.Phosphorus),
			fmt.Sprintf("%.0f", r.Potassium),
		})
	}
	w.Flush()

	return sb.String()
}

// Filename returns the download name for an export taken at t,
// e.g. "soil_data_2026-08-31.csv".
func Filename(base string, t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", base, t.Format(fileLayout))
}
