package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestPaneWriterBounds(t *testing.T) {
	writer := &paneWriter{dash: &Dashboard{}}
	input := bytes.Repeat([]byte("a"), paneWriterMaxBytes*2)
	n, err := writer.Write(input)
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if n != len(input) {
		t.Fatalf("expected write %d bytes, got %d", len(input), n)
	}
	if len(writer.buf) != paneWriterMaxBytes {
		t.Fatalf("expected buffer size %d, got %d", paneWriterMaxBytes, len(writer.buf))
	}
	if writer.droppedBytes == 0 {
		t.Fatalf("expected dropped bytes to be tracked")
	}
}

func TestFormatAssetRowOverdueMarker(t *testing.T) {
	row := AssetRow{
		Key:     "analytics/orders_daily",
		Status:  "Materialized",
		Updated: "Jan 9",
		Overdue: true,
		Detail:  "Overdue by 30 minutes",
	}
	line := formatAssetRow(row)
	if !strings.Contains(line, "Materialized !") {
		t.Fatalf("expected overdue marker next to status, got %q", line)
	}
	if !strings.Contains(line, "Jan 9") {
		t.Fatalf("expected updated day, got %q", line)
	}
}

func TestAssetPageFilterCounts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page := newAssetPage(ctx, nil)
	page.setRows([]AssetRow{
		{Key: "raw/events", Status: "Materialized"},
		{Key: "staging/orders", Status: "Stale"},
		{Key: "analytics/orders_daily", Status: "Failed", Overdue: true},
	})

	if got := page.footer.GetText(true); !strings.Contains(got, "Showing: 3/3") {
		t.Fatalf("unexpected footer: %q", got)
	}

	page.searchFilter.mu.Lock()
	page.searchFilter.activeQuery = "orders"
	page.searchFilter.mu.Unlock()
	page.refresh()

	if got := page.footer.GetText(true); !strings.Contains(got, "Showing: 2/3") {
		t.Fatalf("expected filtered footer, got %q", got)
	}
	if got := page.list.SnapshotText(); strings.Contains(got, "raw/events") {
		t.Fatalf("filtered row leaked into list: %q", got)
	}
}

func TestEventFilterMapping(t *testing.T) {
	cases := []struct {
		filter int
		kind   EventKind
		want   bool
	}{
		{0, EventMaterialize, true},
		{1, EventMaterialize, true},
		{1, EventObserve, false},
		{2, EventObserve, true},
		{3, EventRunStart, true},
		{4, EventRunFail, true},
		{4, EventRunStart, false},
		{5, EventSystem, true},
	}
	for _, tc := range cases {
		if got := matchFilter(tc.filter, tc.kind); got != tc.want {
			t.Fatalf("matchFilter(%d, %v) = %v, want %v", tc.filter, tc.kind, got, tc.want)
		}
	}
}

func TestMetricsLine(t *testing.T) {
	d := &Dashboard{metrics: NewMetrics()}
	if got := d.metricsLine(); got != "" {
		t.Fatalf("expected empty line before first frame, got %q", got)
	}

	d.metrics.ObserveRender(2 * time.Millisecond)
	d.metrics.ObserveRender(4 * time.Millisecond)
	d.metrics.PageSwitch()
	line := d.metricsLine()
	if !strings.Contains(line, "render p50=") {
		t.Fatalf("expected render percentiles, got %q", line)
	}
	if !strings.Contains(line, "page switches=1") {
		t.Fatalf("expected page switch count, got %q", line)
	}
}
