package export

import (
	"strings"
	"testing"
	"time"

	"github.com/luki/soilmon/internal/telemetry"
)

func TestFormat(t *testing.T) {
	r := telemetry.Reading{
		Timestamp:   1700000000000,
		Moisture:    45.67,
		Temperature: 22.1,
		EC:          1200,
		PH:          6.5,
		Nitrogen:    10,
		Phosphorus:  5,
		Potassium:   8,
	}

	out := Format([]telemetry.Reading{r})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 data line, got %d lines", len(lines))
	}

	if !strings.HasPrefix(lines[0], "Time,Moisture") {
		t.Errorf("unexpected header: %q", lines[0])
	}

	cells := strings.Split(lines[1], ",")
	if len(cells) != 8 {
		t.Fatalf("expected 8 cells, got %d: %q", len(cells), lines[1])
	}

	want := map[int]string{
		1: "45.7", // moisture, 1 decimal, rounded
		2: "22.1",
		3: "1200", // EC, no decimals
		4: "6.50", // pH, 2 decimals
		5: "10",
		6: "5",
		7: "8",
	}
	for idx, w := range want {
		if cells[idx] != w {
			t.Errorf("cell %d: got %q, want %q", idx, cells[idx], w)
		}
	}
}

func TestFormatEmpty(t *testing.T) {
	out := Format(nil)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1 {
		t.Errorf("expected header only, got %d lines", len(lines))
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 8, 31, 14, 30, 0, 0, time.Local)
	got := Filename("soil_data", at)
	if got != "soil_data_2026-08-31.csv" {
		t.Errorf("Filename: got %q", got)
	}
}
