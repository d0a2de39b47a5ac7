package asset

// StatusKind enumerates the mutually exclusive display states. Exactly one is
// selected per classification; the Overdue overlay is carried separately on
// Status because it can accompany any of them.
type StatusKind uint8

const (
	StatusLoading StatusKind = iota
	StatusInProgress
	StatusFailed
	StatusNeverMaterialized
	StatusStale
	StatusMaterialized
	// StatusNone covers an unknown stale status with no materialization or
	// observation on record: the row renders without a staleness badge.
	StatusNone
)

func (k StatusKind) String() string {
	switch k {
	case StatusLoading:
		return "LOADING"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusFailed:
		return "FAILED"
	case StatusNeverMaterialized:
		return "NEVER_MATERIALIZED"
	case StatusStale:
		return "STALE"
	case StatusMaterialized:
		return "MATERIALIZED"
	case StatusNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Status is the classifier's verdict for a single asset: the selected kind,
// its payload (only the fields relevant to that kind are set), and the
// independent Overdue overlay.
type Status struct {
	Kind  StatusKind
	Label string

	// InProgress: one representative run id for the UI to link to.
	// Failed: the failed run id.
	RunID string

	// Failed only: run status and end time of the failed run.
	RunStatus RunStatus
	EndTime   string

	// Stale only: the dominant cause.
	Cause *StaleCause

	// Materialized only: raw epoch-seconds timestamp and its rendered day.
	Timestamp string
	Day       string

	// Overlay, independent of Kind selection.
	Overdue     bool
	MinutesLate float64
}

// Classify derives the display status for one asset from its immutable
// definition and the latest live snapshot. It is pure and total: no input
// produces an error, and identical inputs always yield identical output.
// Rules are evaluated in strict priority order; the first match wins.
func Classify(def Definition, live *LiveState) Status {
	status := classifyKind(def, live)
	if live != nil && live.FreshnessPolicy != nil && live.FreshnessInfo != nil &&
		live.FreshnessInfo.CurrentMinutesLate != nil && *live.FreshnessInfo.CurrentMinutesLate > 0 {
		// Zero minutes late means on time; only a positive lag is overdue.
		status.Overdue = true
		status.MinutesLate = *live.FreshnessInfo.CurrentMinutesLate
	}
	return status
}

func classifyKind(def Definition, live *LiveState) Status {
	if live == nil {
		return Status{Kind: StatusLoading, Label: "Loading"}
	}

	observing := def.IsSource && def.IsObservable

	// A newly started retry takes priority over an old failure record.
	if len(live.InProgressRunIDs) > 0 || len(live.UnstartedRunIDs) > 0 {
		label := "Materializing"
		if observing {
			label = "Observing"
		}
		runID := ""
		if len(live.InProgressRunIDs) > 0 {
			runID = live.InProgressRunIDs[0]
		} else {
			runID = live.UnstartedRunIDs[0]
		}
		return Status{Kind: StatusInProgress, Label: label, RunID: runID}
	}

	if failed := live.RunWhichFailedToMaterialize; failed != nil {
		return Status{
			Kind:      StatusFailed,
			Label:     "Failed",
			RunID:     failed.RunID,
			RunStatus: failed.Status,
			EndTime:   failed.EndTime,
		}
	}

	if live.StaleStatus == StaleStatusMissing &&
		live.LastMaterialization == nil && live.LastObservation == nil {
		label := "Never materialized"
		if def.IsSource {
			label = "Never observed"
		}
		return Status{Kind: StatusNeverMaterialized, Label: label}
	}

	if live.StaleStatus == StaleStatusStale {
		cause := DominantStaleCause(live.StaleCauses)
		label := "Updated data version"
		if cause != nil && cause.Category == CauseCode {
			label = "Code version changed"
		}
		return Status{Kind: StatusStale, Label: label, Cause: cause}
	}

	// Default branch: FRESH, or an unknown stale status. Unknown is not an
	// error; it simply renders without a staleness badge when nothing has
	// ever materialized.
	if record := latestRecord(def, live); record != nil {
		label := "Materialized"
		if def.IsSource && live.LastMaterialization == nil {
			label = "Observed"
		}
		return Status{
			Kind:      StatusMaterialized,
			Label:     label,
			Timestamp: record.Timestamp,
			Day:       FormatEpochDay(record.Timestamp),
		}
	}
	return Status{Kind: StatusNone}
}

// latestRecord picks the record the default branch reports: the last
// materialization for materialized assets, the last observation for observed
// source assets.
func latestRecord(def Definition, live *LiveState) *RunRecord {
	if live.LastMaterialization != nil {
		return live.LastMaterialization
	}
	if def.IsSource && live.LastObservation != nil {
		return live.LastObservation
	}
	return nil
}

// DominantStaleCause selects the cause the UI surfaces: the first cause with
// a CODE category, else the first cause in insertion order. Single linear
// scan; the slice order reflects dependency traversal and is never sorted.
func DominantStaleCause(causes []StaleCause) *StaleCause {
	for i := range causes {
		if causes[i].Category == CauseCode {
			return &causes[i]
		}
	}
	if len(causes) > 0 {
		return &causes[0]
	}
	return nil
}

// Suppressed reports whether the asset renders no status row at all: a
// source asset that is not observable and carries no description. Computed
// from the definition alone so the Loading rule for absent live data holds
// regardless.
func Suppressed(def Definition) bool {
	return def.IsSource && !def.IsObservable && def.Description == ""
}
