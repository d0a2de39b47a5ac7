package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"assetwatch/feed"
	"assetwatch/push"
)

const (
	feedHealthInterval  = 30 * time.Second
	feedIdleThreshold   = 2 * time.Minute
	feedHealthLogPrefix = "Feed Health: "
)

type feedHealthSnapshot struct {
	Connected     bool
	LastSuccessAt time.Time
	LastErrorAt   time.Time
	QueueLen      int
	QueueCap      int
	Polls         uint64
	NotModified   uint64
	Failures      uint64
	ParseErrors   uint64
	Drops         uint64
}

type feedHealthSource struct {
	name     string
	snapshot func() feedHealthSnapshot
}

type feedHealthState struct {
	connected   bool
	idle        bool
	initialized bool
}

// Purpose: Periodically log feed/push health transitions with low noise.
// Key aspects: Reports only on connected/idle state changes.
// Upstream: main startup after the poller and push client are created.
// Downstream: log.Printf.
func startFeedHealthMonitor(ctx context.Context, sources []feedHealthSource) {
	if len(sources) == 0 {
		return
	}
	ticker := time.NewTicker(feedHealthInterval)
	go func() {
		defer ticker.Stop()
		states := make(map[string]feedHealthState, len(sources))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UTC()
				for _, source := range sources {
					if source.snapshot == nil {
						continue
					}
					snap := source.snapshot()
					idle := feedIsIdle(snap, now)
					state := states[source.name]
					if !state.initialized || state.connected != snap.Connected || state.idle != idle {
						log.Printf("%s%s", feedHealthLogPrefix, formatFeedHealthLine(source.name, snap, idle, now))
						states[source.name] = feedHealthState{
							connected:   snap.Connected,
							idle:        idle,
							initialized: true,
						}
					}
				}
			}
		}
	}()
}

func feedIsIdle(snap feedHealthSnapshot, now time.Time) bool {
	if snap.LastSuccessAt.IsZero() {
		return true
	}
	return now.Sub(snap.LastSuccessAt) > feedIdleThreshold
}

func formatFeedHealthLine(name string, snap feedHealthSnapshot, idle bool, now time.Time) string {
	status := "connected"
	if !snap.Connected {
		status = "disconnected"
	}
	state := "active"
	if idle {
		state = "idle"
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" ")
	b.WriteString(status)
	b.WriteString(" ")
	b.WriteString(state)
	if !snap.LastSuccessAt.IsZero() {
		b.WriteString(" last_ok=")
		b.WriteString(ageString(now, snap.LastSuccessAt))
	}
	if snap.Polls > 0 {
		b.WriteString(fmt.Sprintf(" polls=%d", snap.Polls))
	}
	if snap.NotModified > 0 {
		b.WriteString(fmt.Sprintf(" cached=%d", snap.NotModified))
	}
	if snap.QueueCap > 0 {
		b.WriteString(fmt.Sprintf(" event_q=%d/%d", snap.QueueLen, snap.QueueCap))
	}
	var dropParts []string
	if snap.Failures > 0 {
		dropParts = append(dropParts, fmt.Sprintf("poll=%d", snap.Failures))
	}
	if snap.ParseErrors > 0 {
		dropParts = append(dropParts, fmt.Sprintf("parse=%d", snap.ParseErrors))
	}
	if snap.Drops > 0 {
		dropParts = append(dropParts, fmt.Sprintf("queue=%d", snap.Drops))
	}
	if len(dropParts) > 0 {
		b.WriteString(" drops=")
		b.WriteString(strings.Join(dropParts, ","))
	}
	if !snap.LastErrorAt.IsZero() {
		b.WriteString(" last_err=")
		b.WriteString(ageString(now, snap.LastErrorAt))
	}
	return b.String()
}

func ageString(now time.Time, at time.Time) string {
	if at.IsZero() {
		return "never"
	}
	age := now.Sub(at)
	if age < 0 {
		age = 0
	}
	if age < time.Second {
		return "0s"
	}
	return age.Truncate(time.Second).String()
}

func pollerHealthSource(name string, poller *feed.Poller) feedHealthSource {
	return feedHealthSource{
		name: name,
		snapshot: func() feedHealthSnapshot {
			if poller == nil {
				return feedHealthSnapshot{}
			}
			snap := poller.Health()
			connected := !snap.LastSuccessAt.IsZero() &&
				(snap.LastErrorAt.IsZero() || snap.LastSuccessAt.After(snap.LastErrorAt))
			return feedHealthSnapshot{
				Connected:     connected,
				LastSuccessAt: snap.LastSuccessAt,
				LastErrorAt:   snap.LastErrorAt,
				Polls:         snap.Polls,
				NotModified:   snap.NotModified,
				Failures:      snap.Failures,
			}
		},
	}
}

func pushHealthSource(name string, client *push.Client) feedHealthSource {
	return feedHealthSource{
		name: name,
		snapshot: func() feedHealthSnapshot {
			if client == nil {
				return feedHealthSnapshot{}
			}
			snap := client.Health()
			return feedHealthSnapshot{
				Connected:     snap.Connected,
				LastSuccessAt: snap.LastMessageAt,
				QueueLen:      snap.QueueLen,
				QueueCap:      snap.QueueCap,
				ParseErrors:   snap.ParseErrors,
				Drops:         snap.Drops,
			}
		},
	}
}
