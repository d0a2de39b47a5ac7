package asset

import "testing"

func TestRollupNotPartitioned(t *testing.T) {
	if _, ok := RollupPartitions(Definition{Key: Key{"a"}}, &LiveState{}); ok {
		t.Fatalf("non-partitioned assets must have no rollup")
	}
}

func TestRollupLoading(t *testing.T) {
	def := Definition{Key: Key{"a"}, IsPartitioned: true}
	r, ok := RollupPartitions(def, nil)
	if !ok || !r.Loading {
		t.Fatalf("nil live must yield loading rollup, got %+v ok=%v", r, ok)
	}
	r, ok = RollupPartitions(def, &LiveState{})
	if !ok || !r.Loading {
		t.Fatalf("missing partition stats must yield loading rollup, got %+v ok=%v", r, ok)
	}
}

func TestRollupMissingClampsToZero(t *testing.T) {
	def := Definition{Key: Key{"a"}, IsPartitioned: true}
	live := &LiveState{PartitionStats: &PartitionStats{
		NumPartitions:   1500,
		NumMaterialized: 1500,
		NumFailed:       849,
	}}
	r, ok := RollupPartitions(def, live)
	if !ok {
		t.Fatalf("expected rollup")
	}
	if r.NumMissing != 0 {
		t.Fatalf("missing must clamp to zero, got %d", r.NumMissing)
	}
}

func TestRollupLargeMissingBadges(t *testing.T) {
	def := Definition{Key: Key{"a"}, IsPartitioned: true}
	live := &LiveState{PartitionStats: &PartitionStats{
		NumPartitions:   1500,
		NumMaterialized: 6,
	}}
	r, ok := RollupPartitions(def, live)
	if !ok {
		t.Fatalf("expected rollup")
	}
	if r.NumMissing != 1494 {
		t.Fatalf("expected 1494 missing, got %d", r.NumMissing)
	}
	if got := CapCount(r.NumMissing); got != "999+" {
		t.Fatalf("missing badge must cap at 999+, got %q", got)
	}
	if got := CapCount(r.NumMaterialized); got != "6" {
		t.Fatalf("materialized badge must stay exact under the cap, got %q", got)
	}
	if r.Headline != "1,500 partitions" {
		t.Fatalf("expected plain total headline with separator, got %q", r.Headline)
	}
}

func TestRollupMaterializingHeadlineWins(t *testing.T) {
	def := Definition{Key: Key{"a"}, IsPartitioned: true}
	live := &LiveState{PartitionStats: &PartitionStats{
		NumPartitions:    100,
		NumMaterialized:  40,
		NumMaterializing: 5,
		NumFailed:        2,
	}}
	r, _ := RollupPartitions(def, live)
	if r.Headline != "Materializing 5 partitions" {
		t.Fatalf("materializing headline must override the breakdown, got %q", r.Headline)
	}
}

func TestRollupAllMaterialized(t *testing.T) {
	def := Definition{Key: Key{"a"}, IsPartitioned: true}
	live := &LiveState{PartitionStats: &PartitionStats{
		NumPartitions:   1500,
		NumMaterialized: 1500,
	}}
	r, _ := RollupPartitions(def, live)
	if r.Headline != "All 1,500 partitions" {
		t.Fatalf("expected all-partitions headline, got %q", r.Headline)
	}
}

func TestRollupFailuresUsePlainTotal(t *testing.T) {
	def := Definition{Key: Key{"a"}, IsPartitioned: true}
	live := &LiveState{PartitionStats: &PartitionStats{
		NumPartitions:   10,
		NumMaterialized: 9,
		NumFailed:       1,
	}}
	r, _ := RollupPartitions(def, live)
	if r.Headline != "10 partitions" {
		t.Fatalf("failed partitions must demote the headline to the total, got %q", r.Headline)
	}
	if r.NumMissing != 0 {
		t.Fatalf("expected no missing partitions, got %d", r.NumMissing)
	}
}
