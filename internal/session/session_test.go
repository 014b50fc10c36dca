package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/luki/soilmon/internal/config"
	"github.com/luki/soilmon/internal/source"
	"github.com/luki/soilmon/internal/telemetry"
	"github.com/luki/soilmon/internal/window"
)

// fakeSource drives a session from a test without a broker.
type fakeSource struct {
	history  telemetry.Snapshot
	histErr  error
	onUpdate func(telemetry.Snapshot)
	onError  func(error)
	unsubbed bool
}

func (f *fakeSource) History(ctx context.Context, lookback time.Duration) (telemetry.Snapshot, error) {
	return f.history, f.histErr
}

func (f *fakeSource) Subscribe(onUpdate func(telemetry.Snapshot), onError func(error)) (source.Unsubscribe, error) {
	f.onUpdate = onUpdate
	f.onError = onError
	return func() { f.unsubbed = true }, nil
}

func record(key string, fields map[string]any) telemetry.RawRecord {
	return telemetry.RawRecord{Key: key, Fields: fields}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AlertDwellMS = 50
	return cfg
}

func newSession(t *testing.T, src source.Source) *Session {
	t.Helper()
	s, err := New(context.Background(), testConfig(), src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestHistoricalLoad(t *testing.T) {
	f := &fakeSource{history: telemetry.Snapshot{
		record("1000", map[string]any{"moisture": 40.0}),
		record("3000", map[string]any{"moisture": 42.0}),
		record("2000", map[string]any{"moisture": 41.0}),
	}}
	s := newSession(t, f)

	if s.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", s.Len())
	}
	r, ok := s.Latest()
	if !ok || r.ID != "3000" {
		t.Errorf("Latest after sorted load: got %v (ok=%v), want id 3000", r.ID, ok)
	}
}

func TestHistoricalFailureProceedsLiveOnly(t *testing.T) {
	f := &fakeSource{histErr: errors.New("query timed out")}
	s := newSession(t, f)

	if s.Len() != 0 {
		t.Fatalf("window should start empty, got %d", s.Len())
	}

	f.onUpdate(telemetry.Snapshot{record("1000", map[string]any{"moisture": 30.0})})
	if s.Len() != 1 {
		t.Errorf("live data should still flow: got %d readings", s.Len())
	}
	if s.Err() != nil {
		t.Errorf("historical failure must not be terminal: %v", s.Err())
	}
}

func TestSnapshotTailOnly(t *testing.T) {
	f := &fakeSource{}
	s := newSession(t, f)

	// Full-snapshot redelivery: only the last record may be ingested.
	f.onUpdate(telemetry.Snapshot{
		record("1000", map[string]any{"moisture": 40.0}),
		record("2000", map[string]any{"moisture": 41.0}),
		record("3000", map[string]any{"moisture": 42.0}),
	})

	if s.Len() != 1 {
		t.Fatalf("expected 1 reading, got %d", s.Len())
	}
	r, _ := s.Latest()
	if r.ID != "3000" {
		t.Errorf("Latest: got %s, want the snapshot tail", r.ID)
	}
}

func TestAlertPipeline(t *testing.T) {
	f := &fakeSource{}
	s := newSession(t, f)

	f.onUpdate(telemetry.Snapshot{
		record("1000", map[string]any{"moisture": 10.0, "ph": 7.0, "temperature": 25.0}),
	})

	alerts := s.ActiveAlerts()
	if len(alerts) != 1 || alerts[0] != "Low soil moisture" {
		t.Fatalf("ActiveAlerts: got %v", alerts)
	}

	// Dwell expiry clears the set (test config uses 50ms).
	time.Sleep(120 * time.Millisecond)
	if got := s.ActiveAlerts(); len(got) != 0 {
		t.Errorf("alerts should expire: got %v", got)
	}
}

func TestNominalReadingLeavesAlertsAlone(t *testing.T) {
	f := &fakeSource{}
	s := newSession(t, f)

	f.onUpdate(telemetry.Snapshot{
		record("1000", map[string]any{"moisture": 10.0, "ph": 7.0, "temperature": 25.0}),
	})
	f.onUpdate(telemetry.Snapshot{
		record("2000", map[string]any{"moisture": 50.0, "ph": 7.0, "temperature": 25.0}),
	})

	if got := s.ActiveAlerts(); len(got) != 1 {
		t.Errorf("a no-alert reading must not clear active alerts: got %v", got)
	}
}

func TestCloseStopsIngestion(t *testing.T) {
	f := &fakeSource{}
	s := newSession(t, f)

	f.onUpdate(telemetry.Snapshot{record("1000", map[string]any{"moisture": 40.0})})
	s.Close()

	if !f.unsubbed {
		t.Error("Close must release the subscription")
	}

	// A dangling callback after teardown is a no-op.
	f.onUpdate(telemetry.Snapshot{record("2000", map[string]any{"moisture": 41.0})})
	if s.Len() != 1 {
		t.Errorf("no appends after Close: got %d readings", s.Len())
	}
}

func TestSubscriptionFailureIsTerminal(t *testing.T) {
	f := &fakeSource{}
	s := newSession(t, f)

	f.onError(errors.New("broker gone"))

	if s.Err() == nil {
		t.Fatal("Err should report the subscription failure")
	}
	if !f.unsubbed {
		t.Error("failure should release the subscription")
	}
	f.onUpdate(telemetry.Snapshot{record("1000", map[string]any{"moisture": 40.0})})
	if s.Len() != 0 {
		t.Errorf("no ingestion after terminal failure: got %d", s.Len())
	}
}

func TestExport(t *testing.T) {
	f := &fakeSource{history: telemetry.Snapshot{
		record("1000", map[string]any{"moisture": 45.67, "ph": 6.5}),
		record("2000", map[string]any{"moisture": 50.0, "ph": 7.0}),
	}}
	s := newSession(t, f)

	out := s.Export(nil)
	if !strings.HasPrefix(out, "Time,") {
		t.Errorf("export missing header: %q", out)
	}
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Errorf("expected header + 2 rows, got %d lines", lines)
	}

	filtered := s.Export(&window.Range{Start: 1500, End: 2500})
	if lines := strings.Count(filtered, "\n"); lines != 2 {
		t.Errorf("filtered export: expected header + 1 row, got %d lines", lines)
	}
}
