package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"assetwatch/asset"
	"assetwatch/config"
	"assetwatch/push"
)

func testConfig(t *testing.T) config.ArchiveConfig {
	t.Helper()
	return config.ArchiveConfig{
		Enabled:            true,
		DBPath:             filepath.Join(t.TempDir(), "events.db"),
		QueueSize:          100,
		BatchSize:          10,
		BatchIntervalMS:    50,
		BusyTimeoutMS:      1000,
		RetentionDays:      30,
		PreflightTimeoutMS: 2000,
	}
}

func event(key string, typ push.EventType, runID string, at time.Time) push.Event {
	return push.Event{
		Key:   asset.Key{key},
		Type:  typ,
		RunID: runID,
		Time:  at,
	}
}

func TestWriterFlushAndRecent(t *testing.T) {
	cfg := testConfig(t)
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	defer func() { _ = w.db.Close() }()

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	w.flush([]push.Event{
		event("alpha", push.EventMaterialization, "run-1", base),
		event("beta", push.EventRunFailure, "run-2", base.Add(time.Minute)),
		event("alpha", push.EventObservation, "run-3", base.Add(2*time.Minute)),
	})

	recent, err := w.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].RunID != "run-3" {
		t.Fatalf("expected newest-first ordering, got %q", recent[0].RunID)
	}

	filtered, err := w.Recent("alpha", 10)
	if err != nil {
		t.Fatalf("Recent(alpha) error: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 alpha events, got %d", len(filtered))
	}
	for _, e := range filtered {
		if e.Key.String() != "alpha" {
			t.Fatalf("filter leaked key %q", e.Key)
		}
	}
}

func TestWriterCleanup(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetentionDays = 7
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	defer func() { _ = w.db.Close() }()

	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	w.flush([]push.Event{
		event("old", push.EventMaterialization, "run-1", now.AddDate(0, 0, -10)),
		event("fresh", push.EventMaterialization, "run-2", now.Add(-time.Hour)),
	})
	w.cleanupOnce(now)

	recent, err := w.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(recent) != 1 || recent[0].Key.String() != "fresh" {
		t.Fatalf("expected only the fresh event to survive, got %+v", recent)
	}
}

func TestWriterEnqueueDropsOnFullQueue(t *testing.T) {
	cfg := testConfig(t)
	cfg.QueueSize = 1
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}
	defer func() { _ = w.db.Close() }()

	// No insert loop running: the second enqueue must drop, not block.
	now := time.Now().UTC()
	w.Enqueue(event("a", push.EventMaterialization, "run-1", now))
	w.Enqueue(event("a", push.EventMaterialization, "run-2", now))
	if got := w.Drops(); got != 1 {
		t.Fatalf("expected 1 drop, got %d", got)
	}
}

func TestPreflightQuarantinesCorruptDB(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite database at all"), 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	var logged bool
	preflight(path, 2*time.Second, func(format string, args ...any) { logged = true })

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt database must be quarantined away from %s", path)
	}
	if !logged {
		t.Fatalf("quarantine must be logged")
	}

	// A fresh writer must now initialize cleanly at the same path.
	cfg := testConfig(t)
	cfg.DBPath = path
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatalf("NewWriter() after quarantine: %v", err)
	}
	_ = w.db.Close()
}
