package alert

import (
	"sync"
	"time"
)

// DefaultDwell is how long a batch of alerts stays active before
// auto-expiry, absent supersession by a newer batch.
const DefaultDwell = 5 * time.Second

// Manager tracks the currently active alert set for one session. Each
// non-empty batch of conditions replaces the set wholesale and restarts
// the dwell timer. Every batch carries a generation number; an expiry
// firing for a superseded generation is a no-op, so a late timer can
// never clear a newer batch.
type Manager struct {
	mu     sync.Mutex
	dwell  time.Duration
	active []Condition
	gen    uint64
	timer  *time.Timer
}

// NewManager creates a manager with the given dwell time
// (DefaultDwell if <= 0).
func NewManager(dwell time.Duration) *Manager {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Manager{dwell: dwell}
}

// OnConditions activates a new batch. An empty batch leaves the
// current set untouched; only expiry or a later non-empty batch
// clears it.
func (m *Manager) OnConditions(conds []Condition) {
	if len(conds) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = append(m.active[:0:0], conds...)
	m.gen++
	gen := m.gen

	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.dwell, func() { m.expire(gen) })
}

// expire clears the active set if gen still names the current batch.
func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return // superseded
	}
	m.active = nil
}

// Active returns the active alert messages in rule-table order.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.active))
	for i, c := range m.active {
		out[i] = c.Message
	}
	return out
}

// Close stops the pending expiry timer and invalidates any expiry
// already in flight. No mutation happens after Close returns.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}
