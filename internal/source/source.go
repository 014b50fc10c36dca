// Package source defines the contracts to the remote sensor database
// (a bulk historical query and a live snapshot subscription) and the
// HTTP+MQTT implementation of them.
package source

import (
	"context"
	"time"

	"github.com/luki/soilmon/internal/telemetry"
)

// Unsubscribe releases a live subscription. Safe to call more than once.
type Unsubscribe func()

// Source is the remote sensor database as consumed by a session.
type Source interface {
	// History returns every raw record within the lookback span, in
	// insertion order (oldest first).
	History(ctx context.Context, lookback time.Duration) (telemetry.Snapshot, error)

	// Subscribe delivers the current snapshot to onUpdate on every
	// change until the returned handle is called. The last record of
	// each snapshot is the newest reading. A terminal channel failure
	// is reported once through onError; no updates follow it.
	Subscribe(onUpdate func(telemetry.Snapshot), onError func(error)) (Unsubscribe, error)
}
