package statecache

import (
	"path/filepath"
	"testing"
	"time"

	"assetwatch/asset"
	"assetwatch/config"
	"assetwatch/feed"
)

func testConfig(t *testing.T) config.StateCacheConfig {
	t.Helper()
	return config.StateCacheConfig{
		Enabled: true,
		Dir:     filepath.Join(t.TempDir(), "statecache"),
		CacheMB: 4,
	}
}

func snapshot(keys ...string) feed.Snapshot {
	snap := feed.Snapshot{GeneratedAt: time.Unix(1673301346, 0).UTC()}
	for _, k := range keys {
		snap.Entries = append(snap.Entries, feed.Entry{
			Definition: asset.Definition{Key: asset.Key{k}},
			Live: &asset.LiveState{
				LastMaterialization: &asset.RunRecord{RunID: "run-" + k, Timestamp: "1673301346"},
			},
		})
	}
	return snap
}

func TestCacheDisabled(t *testing.T) {
	c, err := Open(config.StateCacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if c != nil {
		t.Fatalf("disabled cache must be nil")
	}
	// Nil receivers are no-ops.
	if err := c.Save(snapshot("a")); err != nil {
		t.Fatalf("nil Save() error: %v", err)
	}
	if _, ok := c.Load(); ok {
		t.Fatalf("nil Load() must report empty")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	c, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := c.Save(snapshot("alpha", "beta")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	snap, ok := reopened.Load()
	if !ok {
		t.Fatalf("expected cached entries after reopen")
	}
	if snap.GeneratedAt.Unix() != 1673301346 {
		t.Fatalf("generated_at lost: %v", snap.GeneratedAt)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Entries))
	}
	seen := map[string]bool{}
	for _, e := range snap.Entries {
		seen[e.Definition.Key.String()] = true
		if e.Live == nil || e.Live.LastMaterialization == nil {
			t.Fatalf("live state lost for %s", e.Definition.Key)
		}
	}
	if !seen["alpha"] || !seen["beta"] {
		t.Fatalf("keys lost: %v", seen)
	}

	if at, ok := reopened.SavedAt(); !ok || at.IsZero() {
		t.Fatalf("SavedAt() must report the write time")
	}
}

func TestCacheSaveReplacesRemovedAssets(t *testing.T) {
	c, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer c.Close()

	if err := c.Save(snapshot("alpha", "beta")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := c.Save(snapshot("beta")); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}
	snap, ok := c.Load()
	if !ok || len(snap.Entries) != 1 {
		t.Fatalf("expected exactly the latest snapshot, got %+v", snap.Entries)
	}
	if snap.Entries[0].Definition.Key.String() != "beta" {
		t.Fatalf("removed asset resurrected: %s", snap.Entries[0].Definition.Key)
	}
}

func TestCacheEmptyLoad(t *testing.T) {
	c, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer c.Close()
	if _, ok := c.Load(); ok {
		t.Fatalf("fresh cache must report no entries")
	}
}
