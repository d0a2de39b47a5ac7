package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"assetwatch/asset"
	"assetwatch/config"
)

func TestStoreReplaceAndLookup(t *testing.T) {
	store := NewStore()
	if store.Latest() != nil {
		t.Fatalf("fresh store must have no snapshot")
	}
	if _, ok := store.Entry(asset.Key{"a"}); ok {
		t.Fatalf("lookup on empty store must miss")
	}

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store.Replace(&Snapshot{Entries: []Entry{
		{Definition: asset.Definition{Key: asset.Key{"a"}}},
		{Definition: asset.Definition{Key: asset.Key{"b", "c"}}, Live: &asset.LiveState{StaleStatus: asset.StaleStatusFresh}},
	}}, now)

	if store.Generation() != 1 {
		t.Fatalf("expected generation 1, got %d", store.Generation())
	}
	if got := store.UpdatedAt(); !got.Equal(now) {
		t.Fatalf("expected updatedAt %v, got %v", now, got)
	}
	entry, ok := store.Entry(asset.Key{"b", "c"})
	if !ok || entry.Live == nil || entry.Live.StaleStatus != asset.StaleStatusFresh {
		t.Fatalf("lookup mismatch: %+v ok=%v", entry, ok)
	}
	entry, ok = store.Entry(asset.Key{"a"})
	if !ok || entry.Live != nil {
		t.Fatalf("present asset without live must return nil live, got %+v", entry)
	}
}

func TestPollerFetchesAndReplaces(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"generated_at": 1673301346, "assets": [{"key": ["a"]}]}`))
	}))
	defer server.Close()

	store := NewStore()
	seen := make(chan *Snapshot, 1)
	poller := NewPoller(config.FeedConfig{URL: server.URL, PollSeconds: 60, TimeoutSeconds: 5}, store, func(s *Snapshot) {
		select {
		case seen <- s:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	select {
	case snap := <-seen:
		if len(snap.Entries) != 1 {
			t.Fatalf("expected one entry, got %d", len(snap.Entries))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for first poll")
	}
	if store.Latest() == nil {
		t.Fatalf("store must hold the snapshot after the first poll")
	}
	if hits.Load() < 1 {
		t.Fatalf("expected at least one fetch")
	}
}

func TestPollerNotModifiedKeepsSnapshot(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"assets": [{"key": ["a"]}]}`))
	}))
	defer server.Close()

	store := NewStore()
	poller := NewPoller(config.FeedConfig{URL: server.URL, PollSeconds: 60, TimeoutSeconds: 5}, store, nil)
	ctx := context.Background()

	poller.pollOnce(ctx)
	poller.pollOnce(ctx)

	health := poller.Health()
	if health.Polls != 2 || health.NotModified != 1 || health.Failures != 0 {
		t.Fatalf("unexpected health counters: %+v", health)
	}
	if store.Generation() != 1 {
		t.Fatalf("304 must not replace the snapshot, generation=%d", store.Generation())
	}
}

func TestPollerCountsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewStore()
	poller := NewPoller(config.FeedConfig{URL: server.URL, PollSeconds: 60, TimeoutSeconds: 5}, store, nil)
	poller.pollOnce(context.Background())

	health := poller.Health()
	if health.Failures != 1 {
		t.Fatalf("expected one failure, got %+v", health)
	}
	if store.Latest() != nil {
		t.Fatalf("failed poll must not install a snapshot")
	}
}

func TestPollerSetInterval(t *testing.T) {
	store := NewStore()
	poller := NewPoller(config.FeedConfig{URL: "http://localhost:0", PollSeconds: 15, TimeoutSeconds: 1}, store, nil)
	if got := poller.Interval(); got != 15*time.Second {
		t.Fatalf("expected 15s initial interval, got %v", got)
	}
	poller.SetInterval(5 * time.Second)
	if got := poller.Interval(); got != 5*time.Second {
		t.Fatalf("expected retuned 5s interval, got %v", got)
	}
	poller.SetInterval(0)
	if got := poller.Interval(); got != 5*time.Second {
		t.Fatalf("non-positive interval must be ignored, got %v", got)
	}
}
