// Package asset defines the canonical asset structures and the liveness
// classifier used across the monitor: static definitions from the workspace
// snapshot, volatile live state from the feed, and the pure mapping from the
// two onto a display status plus partition rollup.
package asset

import "strings"

// Key identifies an asset by its ordered path segments.
type Key []string

// String joins the path segments with "/" for display and storage keys.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// Equal reports whether two keys name the same asset.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// Definition is the static, rarely-changing description of an asset. It is
// immutable per workspace load; only the flags participate in classification.
type Definition struct {
	Key           Key
	IsSource      bool // externally produced, no materializing job
	IsObservable  bool // meaningful only when IsSource is true
	IsPartitioned bool
	Description   string
	ComputeKind   string
	OpNames       []string
	JobNames      []string
}

// RunStatus mirrors the orchestrator's run states.
type RunStatus string

const (
	RunQueued     RunStatus = "QUEUED"
	RunNotStarted RunStatus = "NOT_STARTED"
	RunStarted    RunStatus = "STARTED"
	RunSuccess    RunStatus = "SUCCESS"
	RunFailure    RunStatus = "FAILURE"
	RunCanceled   RunStatus = "CANCELED"
)

// RunRecord is the most recent successful materialization or observation.
// Timestamp is epoch seconds as a string, exactly as the feed delivers it.
type RunRecord struct {
	RunID     string
	Timestamp string
}

// FailedRun records a run that ended in failure without producing a
// materialization or observation that postdates it.
type FailedRun struct {
	RunID   string
	Status  RunStatus
	EndTime string
}

// StaleStatus is the upstream resolver's staleness verdict for an asset.
// The zero value means the resolver has not reported one.
type StaleStatus string

const (
	StaleStatusUnknown StaleStatus = ""
	StaleStatusFresh   StaleStatus = "FRESH"
	StaleStatusStale   StaleStatus = "STALE"
	StaleStatusMissing StaleStatus = "MISSING"
)

// CauseCategory distinguishes code-version causes from data-version causes.
type CauseCategory string

const (
	CauseData CauseCategory = "DATA"
	CauseCode CauseCategory = "CODE"
)

// StaleCause is one reason an asset is stale. Causes arrive in
// dependency-traversal order from the upstream resolver; that order is
// significant and must never be re-sorted.
type StaleCause struct {
	Key        Key
	Dependency Key
	Reason     string
	Category   CauseCategory
}

// FreshnessPolicy is the user-defined SLA for an asset.
type FreshnessPolicy struct {
	MaximumLagMinutes    float64
	CronSchedule         string
	CronScheduleTimezone string
}

// FreshnessInfo reports the current lag against the freshness policy.
// CurrentMinutesLate is nil when the resolver has not computed it.
type FreshnessInfo struct {
	CurrentMinutesLate *float64
}

// PartitionStats summarizes per-partition progress for a partitioned asset.
// Inconsistent snapshots (counts that imply negative missing partitions) are
// tolerated; the rollup clamps rather than rejects.
type PartitionStats struct {
	NumMaterialized  int
	NumMaterializing int
	NumFailed        int
	NumPartitions    int
}

// LiveState is the volatile snapshot of recent activity for one asset. It is
// replaced wholesale on each feed refresh, never mutated field by field. A
// nil *LiveState is the distinct "not yet loaded" input.
type LiveState struct {
	UnstartedRunIDs             []string
	InProgressRunIDs            []string
	LastMaterialization         *RunRecord
	LastObservation             *RunRecord
	RunWhichFailedToMaterialize *FailedRun
	StaleStatus                 StaleStatus
	StaleCauses                 []StaleCause
	FreshnessPolicy             *FreshnessPolicy
	FreshnessInfo               *FreshnessInfo
	PartitionStats              *PartitionStats
}
