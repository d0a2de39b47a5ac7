// Package push implements the MQTT client for incremental asset events.
//
// The metadata service publishes compact JSON events (materializations,
// observations, run starts, run failures) to per-asset topics. Push events do
// not mutate live state directly; they nudge the poller to refresh early and
// feed the dashboard event pane and archive. The authoritative state always
// comes from the next full snapshot.
package push

import (
	"time"

	"assetwatch/asset"
)

// EventType identifies an asset event category.
type EventType string

const (
	EventMaterialization EventType = "MATERIALIZATION"
	EventObservation     EventType = "OBSERVATION"
	EventRunStarted      EventType = "RUN_STARTED"
	EventRunFailure      EventType = "RUN_FAILURE"
)

// Event is one decoded asset event.
type Event struct {
	Key   asset.Key
	Type  EventType
	RunID string
	Time  time.Time
}

// wireEvent is the broker payload. Field names are abbreviated to keep
// per-event bandwidth small on busy workspaces.
type wireEvent struct {
	Key   []string `json:"k"`
	Type  string   `json:"t"`
	RunID string   `json:"r"`
	Unix  int64    `json:"ts"`
}
