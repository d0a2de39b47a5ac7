package push

import (
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

const dedupeCleanupInterval = 60 * time.Second

// Deduper suppresses broker redeliveries of the same event within a window.
// Events are keyed by an xxh3 hash of (asset key, event type, run id) so the
// window costs eight bytes per entry instead of the joined string.
type Deduper struct {
	window   time.Duration
	mu       sync.Mutex
	seen     map[uint64]time.Time
	accepted uint64
	dropped  uint64
	shutdown chan struct{}
}

// NewDeduper builds a deduper. A non-positive window disables suppression
// (ShouldAccept always returns true).
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{
		window:   window,
		seen:     make(map[uint64]time.Time),
		shutdown: make(chan struct{}),
	}
}

// Start launches a periodic cleanup loop to bound memory.
func (d *Deduper) Start() {
	if d == nil || d.window <= 0 {
		return
	}
	go d.cleanupLoop()
}

// Stop terminates the cleanup loop.
func (d *Deduper) Stop() {
	if d == nil {
		return
	}
	close(d.shutdown)
}

// ShouldAccept reports whether the event is first-seen within the window.
func (d *Deduper) ShouldAccept(e Event, now time.Time) bool {
	if d == nil || d.window <= 0 {
		return true
	}
	hash := eventHash(e)
	d.mu.Lock()
	defer d.mu.Unlock()
	if when, ok := d.seen[hash]; ok && now.Sub(when) < d.window {
		d.dropped++
		return false
	}
	d.seen[hash] = now
	d.accepted++
	return true
}

// Counts returns accepted and dropped totals.
func (d *Deduper) Counts() (accepted, dropped uint64) {
	if d == nil {
		return 0, 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted, d.dropped
}

func (d *Deduper) cleanupLoop() {
	ticker := time.NewTicker(dedupeCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.shutdown:
			return
		case now := <-ticker.C:
			d.mu.Lock()
			for hash, when := range d.seen {
				if now.Sub(when) >= d.window {
					delete(d.seen, hash)
				}
			}
			d.mu.Unlock()
		}
	}
}

func eventHash(e Event) uint64 {
	h := xxh3.New()
	for _, segment := range e.Key {
		_, _ = h.WriteString(segment)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.WriteString(string(e.Type))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(e.RunID)
	return h.Sum64()
}
