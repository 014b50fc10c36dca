package window

import (
	"fmt"
	"testing"

	"github.com/luki/soilmon/internal/telemetry"
)

func reading(id int, ts int64) telemetry.Reading {
	return telemetry.Reading{ID: fmt.Sprintf("r%d", id), Timestamp: ts}
}

func TestAppendBound(t *testing.T) {
	s := New(5)

	for i := 0; i < 7; i++ {
		s.Append(reading(i, int64(1000+i)))
		if s.Len() > 5 {
			t.Fatalf("window exceeded capacity after append %d: len %d", i, s.Len())
		}
	}

	got := s.Filter(nil)
	if len(got) != 5 {
		t.Fatalf("expected 5 retained readings, got %d", len(got))
	}
	for i, r := range got {
		want := fmt.Sprintf("r%d", i+2)
		if r.ID != want {
			t.Errorf("retained[%d]: got %s, want %s", i, r.ID, want)
		}
	}
}

func TestLoadHistoricalSorts(t *testing.T) {
	s := New(10)
	s.LoadHistorical([]telemetry.Reading{
		reading(0, 3000),
		reading(1, 1000),
		reading(2, 5000),
		reading(3, 2000),
	})

	got := s.Filter(nil)
	if len(got) != 4 {
		t.Fatalf("expected 4 readings, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Errorf("readings out of order at %d: %d after %d", i, got[i].Timestamp, got[i-1].Timestamp)
		}
	}
}

func TestLoadHistoricalTruncates(t *testing.T) {
	s := New(3)
	var in []telemetry.Reading
	for i := 0; i < 8; i++ {
		in = append(in, reading(i, int64(1000+i)))
	}
	s.LoadHistorical(in)

	got := s.Filter(nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 readings after truncation, got %d", len(got))
	}
	if got[0].ID != "r5" || got[2].ID != "r7" {
		t.Errorf("truncation kept wrong readings: %s..%s, want r5..r7", got[0].ID, got[2].ID)
	}
}

func TestFilter(t *testing.T) {
	s := New(10)
	for i := 0; i < 5; i++ {
		s.Append(reading(i, int64(1000+i*100)))
	}

	got := s.Filter(&Range{Start: 1100, End: 1300})
	if len(got) != 3 {
		t.Fatalf("expected 3 readings in [1100,1300], got %d", len(got))
	}
	if got[0].Timestamp != 1100 || got[2].Timestamp != 1300 {
		t.Errorf("filter bounds not inclusive: got %d..%d", got[0].Timestamp, got[2].Timestamp)
	}

	if got := s.Filter(&Range{Start: 9000, End: 9999}); len(got) != 0 {
		t.Errorf("expected empty result outside window, got %d", len(got))
	}

	// Inverted range degrades to the full window.
	if got := s.Filter(&Range{Start: 1300, End: 1100}); len(got) != 5 {
		t.Errorf("inverted range: expected full window (5), got %d", len(got))
	}
}

func TestLatest(t *testing.T) {
	s := New(10)
	if _, ok := s.Latest(); ok {
		t.Error("Latest on empty store should report not ok")
	}

	s.Append(reading(0, 1000))
	s.Append(reading(1, 1001))
	r, ok := s.Latest()
	if !ok || r.ID != "r1" {
		t.Errorf("Latest: got %v (ok=%v), want r1", r.ID, ok)
	}
}

func TestHistoricalFullyEvicted(t *testing.T) {
	s := New(100)
	s.LoadHistorical([]telemetry.Reading{
		reading(0, 1000),
		reading(1, 2000),
		reading(2, 3000),
	})

	for i := 0; i < 150; i++ {
		s.Append(reading(1000+i, int64(4000+i)))
	}

	got := s.Filter(nil)
	if len(got) != 100 {
		t.Fatalf("expected exactly 100 readings, got %d", len(got))
	}
	if got[0].ID != "r1050" {
		t.Errorf("oldest retained: got %s, want r1050 (last 100 appends)", got[0].ID)
	}
	if got[99].ID != "r1149" {
		t.Errorf("newest retained: got %s, want r1149", got[99].ID)
	}
}
