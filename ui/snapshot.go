package ui

import "time"

// AssetRow is one classified asset ready for table rendering.
type AssetRow struct {
	Key        string
	Status     string
	StatusKind string
	Detail     string
	Partitions string
	Updated    string
	Overdue    bool
}

// Snapshot is a structured UI snapshot built by the main refresh loop.
// It is immutable once handed to a Surface.
type Snapshot struct {
	GeneratedAt   time.Time
	OverviewLines []string
	FeedLines     []string
	PushLines     []string
	AssetRows     []AssetRow
}
