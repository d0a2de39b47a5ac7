package ui

import "io"

// Surface abstracts the dashboard/UI so alternative console renderers can plug in.
// Implementations must be safe for concurrent calls from feed and push loops.
type Surface interface {
	WaitReady()
	Stop()
	SetStats(lines []string)
	AppendMaterialization(line string)
	AppendObservation(line string)
	AppendRunStarted(line string)
	AppendFailure(line string)
	AppendSystem(line string)
	SystemWriter() io.Writer
	SetSnapshot(snapshot Snapshot)
}
