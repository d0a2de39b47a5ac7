// Package feed polls the workspace metadata service for full live-state
// snapshots. Each successful poll replaces the previous snapshot wholesale;
// the feed never patches individual fields.
package feed

import (
	"fmt"
	"time"

	"assetwatch/asset"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireDocument is the metadata service's snapshot payload.
type wireDocument struct {
	GeneratedAt int64       `json:"generated_at"`
	Assets      []wireAsset `json:"assets"`
}

type wireAsset struct {
	Key        []string        `json:"key"`
	Definition *wireDefinition `json:"definition"`
	Live       *wireLive       `json:"live"`
}

type wireDefinition struct {
	IsSource      bool     `json:"is_source"`
	IsObservable  bool     `json:"is_observable"`
	IsPartitioned bool     `json:"is_partitioned"`
	Description   string   `json:"description"`
	ComputeKind   string   `json:"compute_kind"`
	OpNames       []string `json:"op_names"`
	JobNames      []string `json:"job_names"`
}

type wireLive struct {
	UnstartedRunIDs  []string        `json:"unstarted_run_ids"`
	InProgressRunIDs []string        `json:"in_progress_run_ids"`
	LastMat          *wireRunRecord  `json:"last_materialization"`
	LastObs          *wireRunRecord  `json:"last_observation"`
	FailedRun        *wireFailedRun  `json:"run_which_failed_to_materialize"`
	StaleStatus      string          `json:"stale_status"`
	StaleCauses      []wireCause     `json:"stale_causes"`
	Policy           *wirePolicy     `json:"freshness_policy"`
	Freshness        *wireFreshness  `json:"freshness_info"`
	Partitions       *wirePartitions `json:"partition_stats"`
}

type wireRunRecord struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
}

type wireFailedRun struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	EndTime string `json:"end_time"`
}

type wireCause struct {
	Key        []string `json:"key"`
	Dependency []string `json:"dependency"`
	Reason     string   `json:"reason"`
	Category   string   `json:"category"`
}

type wirePolicy struct {
	MaximumLagMinutes    float64 `json:"maximum_lag_minutes"`
	CronSchedule         string  `json:"cron_schedule"`
	CronScheduleTimezone string  `json:"cron_schedule_timezone"`
}

type wireFreshness struct {
	CurrentMinutesLate *float64 `json:"current_minutes_late"`
}

type wirePartitions struct {
	NumMaterialized  int `json:"num_materialized"`
	NumMaterializing int `json:"num_materializing"`
	NumFailed        int `json:"num_failed"`
	NumPartitions    int `json:"num_partitions"`
}

// Entry pairs one asset's definition with its live state. Live is nil when
// the service has not resolved the asset yet.
type Entry struct {
	Definition asset.Definition
	Live       *asset.LiveState
}

// Snapshot is an immutable decoded feed document.
type Snapshot struct {
	GeneratedAt time.Time
	Entries     []Entry
}

// DecodeSnapshot parses a snapshot document. Per-asset enum strings the
// decoder does not recognize degrade to their unknown/zero value instead of
// failing the whole document.
func DecodeSnapshot(body []byte) (*Snapshot, error) {
	var doc wireDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("feed: decode snapshot: %w", err)
	}
	snap := &Snapshot{Entries: make([]Entry, 0, len(doc.Assets))}
	if doc.GeneratedAt > 0 {
		snap.GeneratedAt = time.Unix(doc.GeneratedAt, 0).UTC()
	}
	for _, wa := range doc.Assets {
		if len(wa.Key) == 0 {
			continue
		}
		snap.Entries = append(snap.Entries, Entry{
			Definition: mapDefinition(wa),
			Live:       mapLive(wa.Live),
		})
	}
	return snap, nil
}

func mapDefinition(wa wireAsset) asset.Definition {
	def := asset.Definition{Key: asset.Key(wa.Key)}
	if wa.Definition == nil {
		return def
	}
	def.IsSource = wa.Definition.IsSource
	def.IsObservable = wa.Definition.IsObservable
	def.IsPartitioned = wa.Definition.IsPartitioned
	def.Description = wa.Definition.Description
	def.ComputeKind = wa.Definition.ComputeKind
	def.OpNames = wa.Definition.OpNames
	def.JobNames = wa.Definition.JobNames
	return def
}

func mapLive(wl *wireLive) *asset.LiveState {
	if wl == nil {
		return nil
	}
	live := &asset.LiveState{
		UnstartedRunIDs:  wl.UnstartedRunIDs,
		InProgressRunIDs: wl.InProgressRunIDs,
		StaleStatus:      mapStaleStatus(wl.StaleStatus),
	}
	if wl.LastMat != nil {
		live.LastMaterialization = &asset.RunRecord{RunID: wl.LastMat.RunID, Timestamp: wl.LastMat.Timestamp}
	}
	if wl.LastObs != nil {
		live.LastObservation = &asset.RunRecord{RunID: wl.LastObs.RunID, Timestamp: wl.LastObs.Timestamp}
	}
	if wl.FailedRun != nil {
		live.RunWhichFailedToMaterialize = &asset.FailedRun{
			RunID:   wl.FailedRun.RunID,
			Status:  mapRunStatus(wl.FailedRun.Status),
			EndTime: wl.FailedRun.EndTime,
		}
	}
	for _, wc := range wl.StaleCauses {
		live.StaleCauses = append(live.StaleCauses, asset.StaleCause{
			Key:        asset.Key(wc.Key),
			Dependency: asset.Key(wc.Dependency),
			Reason:     wc.Reason,
			Category:   mapCauseCategory(wc.Category),
		})
	}
	if wl.Policy != nil {
		live.FreshnessPolicy = &asset.FreshnessPolicy{
			MaximumLagMinutes:    wl.Policy.MaximumLagMinutes,
			CronSchedule:         wl.Policy.CronSchedule,
			CronScheduleTimezone: wl.Policy.CronScheduleTimezone,
		}
	}
	if wl.Freshness != nil {
		live.FreshnessInfo = &asset.FreshnessInfo{CurrentMinutesLate: wl.Freshness.CurrentMinutesLate}
	}
	if wl.Partitions != nil {
		live.PartitionStats = &asset.PartitionStats{
			NumMaterialized:  wl.Partitions.NumMaterialized,
			NumMaterializing: wl.Partitions.NumMaterializing,
			NumFailed:        wl.Partitions.NumFailed,
			NumPartitions:    wl.Partitions.NumPartitions,
		}
	}
	return live
}

func mapStaleStatus(raw string) asset.StaleStatus {
	switch asset.StaleStatus(raw) {
	case asset.StaleStatusFresh, asset.StaleStatusStale, asset.StaleStatusMissing:
		return asset.StaleStatus(raw)
	default:
		return asset.StaleStatusUnknown
	}
}

// Run statuses are display-only; unknown values pass through verbatim.
func mapRunStatus(raw string) asset.RunStatus {
	return asset.RunStatus(raw)
}

func mapCauseCategory(raw string) asset.CauseCategory {
	if asset.CauseCategory(raw) == asset.CauseCode {
		return asset.CauseCode
	}
	return asset.CauseData
}
