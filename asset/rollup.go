package asset

import "fmt"

// Rollup is the partition overlay for a partitioned asset, computed
// independently of the single-asset status and rendered alongside it.
type Rollup struct {
	// Loading is set while a partitioned asset awaits its first stats poll.
	Loading bool

	NumPartitions    int
	NumMaterialized  int
	NumMaterializing int
	NumFailed        int
	NumMissing       int

	Headline string
}

// RollupPartitions computes the partition rollup. The second return is false
// for assets that are not partitioned; such assets have no rollup at all.
func RollupPartitions(def Definition, live *LiveState) (Rollup, bool) {
	if !def.IsPartitioned {
		return Rollup{}, false
	}
	if live == nil || live.PartitionStats == nil {
		return Rollup{Loading: true}, true
	}
	stats := *live.PartitionStats
	missing := stats.NumPartitions - stats.NumMaterialized - stats.NumFailed - stats.NumMaterializing
	if missing < 0 {
		// Stale or inconsistent snapshot; clamp rather than signal an error.
		missing = 0
	}
	r := Rollup{
		NumPartitions:    stats.NumPartitions,
		NumMaterialized:  stats.NumMaterialized,
		NumMaterializing: stats.NumMaterializing,
		NumFailed:        stats.NumFailed,
		NumMissing:       missing,
	}
	r.Headline = rollupHeadline(r)
	return r, true
}

// rollupHeadline picks the single headline: an active materialization wave
// beats everything, then the fully-materialized summary, then a plain total.
func rollupHeadline(r Rollup) string {
	switch {
	case r.NumMaterializing > 0:
		return fmt.Sprintf("Materializing %s partitions", FormatCount(r.NumMaterializing))
	case r.NumMissing == 0 && r.NumFailed == 0:
		return fmt.Sprintf("All %s partitions", FormatCount(r.NumPartitions))
	default:
		return fmt.Sprintf("%s partitions", FormatCount(r.NumPartitions))
	}
}
