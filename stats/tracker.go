// Package stats tracks classification and transport counters for display in
// the dashboard and periodic console output.
package stats

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Tracker tracks asset and event statistics
type Tracker struct {
	// counters live in sync.Map + atomic.Uint64 so per-event increments don't fight over a mutex
	statusCounts sync.Map // string -> *atomic.Uint64
	eventCounts  sync.Map // string -> *atomic.Uint64
	start        atomic.Int64
	polls        atomic.Uint64
	pushAccepted atomic.Uint64
}

// NewTracker creates a new stats tracker
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// SetStatusCounts replaces the per-status totals with the result of the latest
// classification pass. Status counts describe the current snapshot, not a
// running tally, so each poll overwrites the previous distribution.
func (t *Tracker) SetStatusCounts(counts map[string]int) {
	t.statusCounts.Range(func(key, _ any) bool {
		t.statusCounts.Delete(key)
		return true
	})
	for status, n := range counts {
		counter := &atomic.Uint64{}
		counter.Store(uint64(n))
		t.statusCounts.Store(status, counter)
	}
}

// IncrementEvent increases the count for a push event type.
func (t *Tracker) IncrementEvent(eventType string) {
	incrementCounter(&t.eventCounts, eventType)
}

// IncrementPolls increments the number of completed poll attempts.
func (t *Tracker) IncrementPolls() {
	t.polls.Add(1)
}

// IncrementPushAccepted increments the number of accepted push events.
func (t *Tracker) IncrementPushAccepted() {
	t.pushAccepted.Add(1)
}

// GetStatusCounts returns a copy of the per-status totals
func (t *Tracker) GetStatusCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	t.statusCounts.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}

// GetEventCounts returns a copy of the per-type event totals
func (t *Tracker) GetEventCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	t.eventCounts.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}

// GetTotalEvents returns the total event count across all types
func (t *Tracker) GetTotalEvents() uint64 {
	var total uint64
	t.eventCounts.Range(func(_, value any) bool {
		total += value.(*atomic.Uint64).Load()
		return true
	})
	return total
}

// Polls returns the cumulative number of poll attempts.
func (t *Tracker) Polls() uint64 {
	return t.polls.Load()
}

// PushAccepted returns the cumulative number of accepted push events.
func (t *Tracker) PushAccepted() uint64 {
	return t.pushAccepted.Load()
}

// GetUptime returns how long the tracker has been running
func (t *Tracker) GetUptime() time.Duration {
	start := t.start.Load()
	return time.Since(time.Unix(0, start))
}

// Reset resets all counters
func (t *Tracker) Reset() {
	t.statusCounts.Range(func(key, _ any) bool {
		t.statusCounts.Delete(key)
		return true
	})
	t.eventCounts.Range(func(key, _ any) bool {
		t.eventCounts.Delete(key)
		return true
	})
	t.polls.Store(0)
	t.pushAccepted.Store(0)
	t.start.Store(time.Now().UnixNano())
}

// SnapshotLines returns human-readable stats ready for console display.
func (t *Tracker) SnapshotLines() []string {
	lines := make([]string, 0, 3)
	lines = append(lines, formatMapCounts("Assets by status", &t.statusCounts))
	lines = append(lines, formatMapCounts("Events by type", &t.eventCounts))
	lines = append(lines, fmt.Sprintf("Polls: %d, Push accepted: %d",
		t.polls.Load(), t.pushAccepted.Load()))
	return lines
}

func formatMapCounts(label string, counts *sync.Map) string {
	var builder strings.Builder
	builder.WriteString(label)
	builder.WriteString(": ")
	first := true
	counts.Range(func(key, value any) bool {
		if !first {
			builder.WriteString(", ")
		}
		fmt.Fprintf(&builder, "%s=%d", key.(string), value.(*atomic.Uint64).Load())
		first = false
		return true
	})
	if first {
		builder.WriteString("(none)")
	}
	return builder.String()
}

func incrementCounter(m *sync.Map, key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	if value, ok := m.Load(key); ok {
		value.(*atomic.Uint64).Add(1)
		return
	}
	counter := &atomic.Uint64{}
	actual, loaded := m.LoadOrStore(key, counter)
	if loaded {
		actual.(*atomic.Uint64).Add(1)
		return
	}
	counter.Add(1)
}
