package feed

import (
	"testing"

	"assetwatch/asset"
)

const sampleDocument = `{
  "generated_at": 1673301346,
  "assets": [
    {
      "key": ["raw", "events"],
      "definition": {"is_partitioned": true, "compute_kind": "dbt"},
      "live": {
        "in_progress_run_ids": ["run-2"],
        "last_materialization": {"run_id": "run-1", "timestamp": "1673301346"},
        "stale_status": "STALE",
        "stale_causes": [
          {"key": ["raw", "events"], "dependency": ["raw", "users"], "reason": "upstream data has changed", "category": "DATA"}
        ],
        "freshness_policy": {"maximum_lag_minutes": 30},
        "freshness_info": {"current_minutes_late": 12},
        "partition_stats": {"num_materialized": 6, "num_materializing": 0, "num_failed": 0, "num_partitions": 1500}
      }
    },
    {
      "key": ["vendor", "feed"],
      "definition": {"is_source": true, "is_observable": true}
    }
  ]
}`

func TestDecodeSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error: %v", err)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Entries))
	}
	if snap.GeneratedAt.IsZero() {
		t.Fatalf("expected generated_at to be set")
	}

	first := snap.Entries[0]
	if !first.Definition.Key.Equal(asset.Key{"raw", "events"}) {
		t.Fatalf("unexpected key %v", first.Definition.Key)
	}
	if !first.Definition.IsPartitioned || first.Definition.ComputeKind != "dbt" {
		t.Fatalf("definition mapping: %+v", first.Definition)
	}
	live := first.Live
	if live == nil {
		t.Fatalf("expected live state")
	}
	if live.StaleStatus != asset.StaleStatusStale {
		t.Fatalf("expected STALE, got %q", live.StaleStatus)
	}
	if len(live.StaleCauses) != 1 || live.StaleCauses[0].Category != asset.CauseData {
		t.Fatalf("stale cause mapping: %+v", live.StaleCauses)
	}
	if live.FreshnessInfo == nil || live.FreshnessInfo.CurrentMinutesLate == nil || *live.FreshnessInfo.CurrentMinutesLate != 12 {
		t.Fatalf("freshness mapping: %+v", live.FreshnessInfo)
	}
	if live.PartitionStats == nil || live.PartitionStats.NumPartitions != 1500 {
		t.Fatalf("partition mapping: %+v", live.PartitionStats)
	}

	second := snap.Entries[1]
	if second.Live != nil {
		t.Fatalf("missing live block must map to nil (not yet loaded)")
	}
	if !second.Definition.IsSource || !second.Definition.IsObservable {
		t.Fatalf("definition flags: %+v", second.Definition)
	}
}

func TestDecodeSnapshotUnknownEnums(t *testing.T) {
	doc := `{"assets": [{"key": ["a"], "live": {"stale_status": "SOMETHING_NEW", "stale_causes": [{"key": ["a"], "category": "NEITHER"}]}}]}`
	snap, err := DecodeSnapshot([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error: %v", err)
	}
	live := snap.Entries[0].Live
	if live.StaleStatus != asset.StaleStatusUnknown {
		t.Fatalf("unrecognized stale status must degrade to unknown, got %q", live.StaleStatus)
	}
	if live.StaleCauses[0].Category != asset.CauseData {
		t.Fatalf("unrecognized cause category must degrade to DATA, got %q", live.StaleCauses[0].Category)
	}
}

func TestDecodeSnapshotSkipsKeylessAssets(t *testing.T) {
	doc := `{"assets": [{"definition": {}}, {"key": ["ok"]}]}`
	snap, err := DecodeSnapshot([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error: %v", err)
	}
	if len(snap.Entries) != 1 || snap.Entries[0].Definition.Key.String() != "ok" {
		t.Fatalf("expected keyless assets to be dropped, got %+v", snap.Entries)
	}
}

func TestDecodeSnapshotMalformed(t *testing.T) {
	if _, err := DecodeSnapshot([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed document")
	}
}
