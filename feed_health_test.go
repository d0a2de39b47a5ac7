package main

import (
	"strings"
	"testing"
	"time"
)

func TestFeedIsIdle(t *testing.T) {
	now := time.Date(2026, 1, 22, 12, 0, 0, 0, time.UTC)
	if !feedIsIdle(feedHealthSnapshot{}, now) {
		t.Error("zero LastSuccessAt should be idle")
	}
	recent := feedHealthSnapshot{LastSuccessAt: now.Add(-30 * time.Second)}
	if feedIsIdle(recent, now) {
		t.Error("30s old success should be active")
	}
	stale := feedHealthSnapshot{LastSuccessAt: now.Add(-5 * time.Minute)}
	if !feedIsIdle(stale, now) {
		t.Error("5m old success should be idle")
	}
}

func TestFormatFeedHealthLine(t *testing.T) {
	now := time.Date(2026, 1, 22, 12, 0, 0, 0, time.UTC)
	snap := feedHealthSnapshot{
		Connected:     true,
		LastSuccessAt: now.Add(-10 * time.Second),
		Polls:         42,
		NotModified:   30,
		Failures:      2,
		QueueLen:      3,
		QueueCap:      1000,
	}
	line := formatFeedHealthLine("feed", snap, false, now)
	for _, want := range []string{"feed connected active", "last_ok=10s", "polls=42", "cached=30", "event_q=3/1000", "drops=poll=2"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}

	down := formatFeedHealthLine("push", feedHealthSnapshot{}, true, now)
	if !strings.HasPrefix(down, "push disconnected idle") {
		t.Errorf("line = %q", down)
	}
}

func TestAgeString(t *testing.T) {
	now := time.Date(2026, 1, 22, 12, 0, 0, 0, time.UTC)
	if got := ageString(now, time.Time{}); got != "never" {
		t.Errorf("zero time = %q", got)
	}
	if got := ageString(now, now.Add(-90*time.Second)); got != "1m30s" {
		t.Errorf("90s = %q", got)
	}
	if got := ageString(now, now.Add(time.Second)); got != "0s" {
		t.Errorf("future = %q", got)
	}
}
