// Package session implements the ingestion pipeline for one dashboard
// session: a historical load at startup, serialized live-update
// handling, and the read API consumed by the presentation layer.
//
// Each session owns its window store, alert manager, and live
// subscription; nothing is shared across sessions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/luki/soilmon/internal/alert"
	"github.com/luki/soilmon/internal/config"
	"github.com/luki/soilmon/internal/export"
	"github.com/luki/soilmon/internal/source"
	"github.com/luki/soilmon/internal/telemetry"
	"github.com/luki/soilmon/internal/window"
)

// Session owns the telemetry pipeline for one dashboard.
type Session struct {
	mu     sync.Mutex
	store  *window.Store
	alerts *alert.Manager
	unsub  source.Unsubscribe
	log    *slog.Logger
	closed bool
	err    error
}

// New loads the lookback history into the window, subscribes to the
// live feed, and returns the running session. A failed historical load
// is logged and leaves the window empty; live data still flows. A
// failed subscription is fatal.
func New(ctx context.Context, cfg config.Config, src source.Source, log *slog.Logger) (*Session, error) {
	s := &Session{
		store:  window.New(cfg.WindowCapacity),
		alerts: alert.NewManager(cfg.AlertDwell()),
		log: log.With(
			slog.String("component", "session"),
			slog.String("session_id", uuid.NewString()),
		),
	}

	snap, err := src.History(ctx, cfg.Lookback())
	if err != nil {
		s.log.Warn("historical load failed, continuing live-only", "error", err)
	} else {
		readings := make([]telemetry.Reading, 0, len(snap))
		for _, raw := range snap {
			readings = append(readings, telemetry.Normalize(raw))
		}
		s.store.LoadHistorical(readings)
		s.log.Info("historical load complete",
			"received", len(readings), "retained", s.store.Len())
	}

	unsub, err := src.Subscribe(s.onUpdate, s.onError)
	if err != nil {
		s.alerts.Close()
		return nil, fmt.Errorf("live subscription: %w", err)
	}
	s.unsub = unsub

	return s, nil
}

// onUpdate handles one live snapshot to completion before the next is
// processed. The source may redeliver the full current snapshot on
// every update, so only the newest record is consumed.
func (s *Session) onUpdate(snap telemetry.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(snap) == 0 {
		return
	}

	r := telemetry.Normalize(snap[len(snap)-1])
	s.store.Append(r)
	s.alerts.OnConditions(alert.Evaluate(r))
}

// onError records a terminal subscription failure and tears the
// pipeline down. The error stays visible through Err.
func (s *Session) onError(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	unsub := s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.alerts.Close()
	s.log.Error("live subscription failed", "error", err)
}

// Readings returns the retained readings, optionally filtered to an
// inclusive timestamp range.
func (s *Session) Readings(rng *window.Range) []telemetry.Reading {
	return s.store.Filter(rng)
}

// Latest returns the most recent reading.
func (s *Session) Latest() (telemetry.Reading, bool) {
	return s.store.Latest()
}

// Len returns the number of retained readings.
func (s *Session) Len() int {
	return s.store.Len()
}

// ActiveAlerts returns the active alert messages in rule-table order.
func (s *Session) ActiveAlerts() []string {
	return s.alerts.Active()
}

// Export renders the (optionally filtered) window as CSV text.
func (s *Session) Export(rng *window.Range) string {
	return export.Format(s.store.Filter(rng))
}

// Err reports a terminal subscription failure, or nil while live.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the live subscription and stops the alert expiry
// timer. No callback mutates the window after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.alerts.Close()
	s.log.Info("session closed")
}
