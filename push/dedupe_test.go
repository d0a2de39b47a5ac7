package push

import (
	"testing"
	"time"

	"assetwatch/asset"
)

func TestDeduperSuppressesWithinWindow(t *testing.T) {
	d := NewDeduper(30 * time.Second)
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	e := Event{Key: asset.Key{"raw", "events"}, Type: EventMaterialization, RunID: "run-1"}

	if !d.ShouldAccept(e, now) {
		t.Fatalf("first delivery must be accepted")
	}
	if d.ShouldAccept(e, now.Add(5*time.Second)) {
		t.Fatalf("redelivery within the window must be suppressed")
	}
	if !d.ShouldAccept(e, now.Add(31*time.Second)) {
		t.Fatalf("delivery after the window must be accepted")
	}

	accepted, dropped := d.Counts()
	if accepted != 2 || dropped != 1 {
		t.Fatalf("expected accepted=2 dropped=1, got %d/%d", accepted, dropped)
	}
}

func TestDeduperDistinguishesEvents(t *testing.T) {
	d := NewDeduper(time.Minute)
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	base := Event{Key: asset.Key{"a"}, Type: EventMaterialization, RunID: "run-1"}

	if !d.ShouldAccept(base, now) {
		t.Fatalf("first event must be accepted")
	}
	other := base
	other.RunID = "run-2"
	if !d.ShouldAccept(other, now) {
		t.Fatalf("a different run id is a different event")
	}
	typed := base
	typed.Type = EventRunFailure
	if !d.ShouldAccept(typed, now) {
		t.Fatalf("a different event type is a different event")
	}
	keyed := base
	keyed.Key = asset.Key{"a", "b"}
	if !d.ShouldAccept(keyed, now) {
		t.Fatalf("a different asset key is a different event")
	}
}

func TestDeduperDisabledWindow(t *testing.T) {
	d := NewDeduper(0)
	now := time.Now().UTC()
	e := Event{Key: asset.Key{"a"}, Type: EventObservation, RunID: "run-1"}
	if !d.ShouldAccept(e, now) || !d.ShouldAccept(e, now) {
		t.Fatalf("disabled deduper must accept everything")
	}
}

func TestEventHashKeySegmentBoundaries(t *testing.T) {
	// ["ab","c"] and ["a","bc"] must hash differently despite equal joins.
	a := Event{Key: asset.Key{"ab", "c"}, Type: EventMaterialization, RunID: "r"}
	b := Event{Key: asset.Key{"a", "bc"}, Type: EventMaterialization, RunID: "r"}
	if eventHash(a) == eventHash(b) {
		t.Fatalf("segment boundaries must be part of the hash")
	}
}

func TestClientDecode(t *testing.T) {
	c := NewClient(configForTest())
	event, ok := c.decode([]byte(`{"k":["raw","events"],"t":"RUN_FAILURE","r":"run-9","ts":1673301346}`))
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if event.Key.String() != "raw/events" || event.Type != EventRunFailure || event.RunID != "run-9" {
		t.Fatalf("decode mismatch: %+v", event)
	}
	if event.Time.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	if _, ok := c.decode([]byte(`{"t":"RUN_FAILURE"}`)); ok {
		t.Fatalf("keyless events must be rejected")
	}
	if _, ok := c.decode([]byte(`not json`)); ok {
		t.Fatalf("malformed payloads must be rejected")
	}
	if got := c.Health().ParseErrors; got != 2 {
		t.Fatalf("expected 2 parse errors, got %d", got)
	}
}
