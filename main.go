// Program assetwatch wires together the snapshot poller, the push-event
// subscriber, the classifier-driven render path, and the persistence layers
// (event archive, warm-start state cache) behind a terminal dashboard.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	pprof "runtime/pprof"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"assetwatch/archive"
	"assetwatch/asset"
	"assetwatch/config"
	"assetwatch/feed"
	"assetwatch/push"
	"assetwatch/statecache"
	"assetwatch/stats"
	"assetwatch/ui"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

const (
	defaultConfigPath = "data/config.yaml"
	envConfigPath     = "ASSETWATCH_CONFIG"

	statsDisplayInterval = 30 * time.Second
	shortRunIDLength     = 8
)

// Version will be set at build time
var Version = "dev"

// Purpose: Report whether stdout is a TTY for UI gating.
// Key aspects: Uses term.IsTerminal on stdout fd.
// Upstream: main UI selection.
// Downstream: term.IsTerminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Purpose: Load configuration from env/default locations.
// Key aspects: Tries env override first, then the default path, then built-in
// defaults when no file exists at all.
// Upstream: main startup.
// Downstream: config.Load and os.IsNotExist.
func loadMonitorConfig() (*config.Config, string, error) {
	candidates := make([]string, 0, 2)
	if envPath := strings.TrimSpace(os.Getenv(envConfigPath)); envPath != "" {
		candidates = append(candidates, envPath)
	}
	candidates = append(candidates, defaultConfigPath)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		cfg, err := config.Load(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, path, err
		}
		return cfg, path, nil
	}
	return config.Default(), "defaults", nil
}

// Purpose: Program entrypoint; wires configuration, feed, push, and render.
// Key aspects: Initializes caches/clients/UI and manages graceful shutdown.
// Upstream: OS process start.
// Downstream: Startup helpers, goroutines, and the dashboard.
func main() {
	cfg, configSource, err := loadMonitorConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	fanout, err := setupLogging(cfg.Logging, os.Stdout)
	if err != nil {
		log.Fatalf("Error initializing logging: %v", err)
	}
	defer fanout.Close()
	// The fanout stamps its own timestamps; drop the default log prefixes.
	log.SetFlags(0)
	log.SetOutput(fanout)

	var surface ui.Surface
	if cfg.UI.Enabled {
		if !isStdoutTTY() {
			log.Printf("UI disabled (dashboard requires an interactive console)")
		} else if dash := ui.NewDashboard(cfg.UI, true); dash != nil {
			surface = dash
		}
	}
	if surface != nil {
		surface.WaitReady()
		defer surface.Stop()
		fanout.SetConsoleSink(surface.SystemWriter(), false)
		surface.SetStats([]string{"Initializing..."})
	} else {
		cfg.Print()
	}

	log.Printf("Asset monitor v%s starting (config: %s)...", Version, configSource)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := stats.NewTracker()
	store := feed.NewStore()

	// Initialize the archive writer before wiring producers that enqueue into it.
	var archiveWriter *archive.Writer
	if cfg.Archive.Enabled {
		if w, err := archive.NewWriter(cfg.Archive); err != nil {
			log.Printf("Warning: archive disabled due to init error: %v", err)
		} else {
			archiveWriter = w
			archiveWriter.Start()
			log.Printf("Archive: writing to %s (batch=%d/%dms queue=%d retention=%dd)",
				cfg.Archive.DBPath, cfg.Archive.BatchSize, cfg.Archive.BatchIntervalMS,
				cfg.Archive.QueueSize, cfg.Archive.RetentionDays)
			defer archiveWriter.Stop()
		}
	}

	stateCache, err := statecache.Open(cfg.StateCache)
	if err != nil {
		log.Printf("Warning: state cache disabled: %v", err)
		stateCache = nil
	}
	if stateCache != nil {
		defer stateCache.Close()
	}

	// Warm start: restore the last saved snapshot so the dashboard shows
	// classified rows before the first poll completes.
	if stateCache != nil {
		if cached, ok := stateCache.Load(); ok {
			snap := cached
			store.Replace(&snap, time.Now().UTC())
			age := "unknown age"
			if savedAt, ok := stateCache.SavedAt(); ok {
				age = ageString(time.Now().UTC(), savedAt) + " old"
			}
			log.Printf("State cache: restored %s assets (%s)",
				humanize.Comma(int64(len(snap.Entries))), age)
		}
	}

	panes := &paneState{}
	renderLatest := func() {
		snap := store.Latest()
		if snap == nil {
			return
		}
		view := buildUISnapshot(snap, tracker)
		view.FeedLines, view.PushLines = panes.lines()
		if surface != nil {
			surface.SetSnapshot(view)
		}
	}
	renderLatest()

	onSnap := func(snap *feed.Snapshot) {
		tracker.IncrementPolls()
		renderLatest()
		if stateCache != nil {
			if err := stateCache.Save(*snap); err != nil {
				log.Printf("Warning: state cache save failed: %v", err)
			}
		}
	}

	var poller *feed.Poller
	if cfg.Feed.Enabled {
		poller = feed.NewPoller(cfg.Feed, store, onSnap)
		if poller == nil {
			log.Printf("Warning: feed disabled (no URL configured)")
		} else {
			poller.Start(ctx)
			defer poller.Stop()
			log.Printf("Feed: polling %s every %ds", cfg.Feed.URL, cfg.Feed.PollSeconds)
		}
	}

	var governor *refreshGovernor
	if poller != nil {
		governor = newRefreshGovernor(cfg.Refresh, poller.SetInterval)
	}
	if governor != nil {
		governor.Start()
		defer governor.Stop()
	}

	var pushClient *push.Client
	if cfg.Push.Enabled {
		pushClient = push.NewClient(cfg.Push)
		if err := pushClient.Connect(); err != nil {
			// Auto-reconnect keeps retrying; the monitor still runs off polls.
			log.Printf("Warning: failed to connect to event broker: %v", err)
		}
		defer pushClient.Stop()
		// Purpose: Drain broker events into stats, archive, UI, and the poller.
		// Key aspects: Runs in its own goroutine to keep the subscriber non-blocking.
		// Upstream: main startup after push connect.
		// Downstream: processPushEvents.
		go processPushEvents(ctx, pushClient, poller, governor, tracker, archiveWriter, surface)
	}

	// Backfill the events page from the archive so history survives restarts.
	if archiveWriter != nil && surface != nil {
		backfillEvents(archiveWriter, surface, cfg.UI.EventBuffer.MaxEvents)
	}

	sources := make([]feedHealthSource, 0, 2)
	if poller != nil {
		sources = append(sources, pollerHealthSource("feed", poller))
	}
	if pushClient != nil {
		sources = append(sources, pushHealthSource("push", pushClient))
	}
	startFeedHealthMonitor(ctx, sources)

	// Purpose: Periodically emit stats to the dashboard or logs.
	// Key aspects: Runs on ticker interval until shutdown.
	// Upstream: main startup.
	// Downstream: displayStats.
	go displayStats(ctx, statsDisplayInterval, tracker, store, poller, pushClient, archiveWriter, surface, fanout, panes, renderLatest)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Monitor is running. Press Ctrl+C to stop.")
	if poller != nil {
		log.Printf("Polling asset snapshots from %s...", cfg.Feed.URL)
	}
	if cfg.Push.Enabled {
		log.Printf("Receiving push events from %s:%d (topic: %s)...", cfg.Push.Broker, cfg.Push.Port, cfg.Push.Topic)
	}
	log.Println("---")
	maybeStartHeapLogger()
	maybeStartDiagServer()

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	log.Println("Shutting down gracefully...")

	cancel()
	if archiveWriter != nil {
		if drops := archiveWriter.Drops(); drops > 0 {
			log.Printf("Archive dropped %d events under load", drops)
		}
	}
	log.Println("Monitor stopped")
}

// Purpose: Replay recent archived events onto the dashboard event panes.
// Key aspects: Reads newest-first from SQLite, appends oldest-first so the
// panes end in chronological order; failures only log.
// Upstream: main startup after the dashboard is up.
// Downstream: archiveWriter.Recent, ui appends.
func backfillEvents(archiveWriter *archive.Writer, dash ui.Surface, limit int) {
	if limit <= 0 {
		limit = 100
	}
	events, err := archiveWriter.Recent("", limit)
	if err != nil {
		log.Printf("Warning: archive backfill failed: %v", err)
		return
	}
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		line := formatEventLine(ev)
		switch ev.Type {
		case push.EventMaterialization:
			dash.AppendMaterialization(line)
		case push.EventObservation:
			dash.AppendObservation(line)
		case push.EventRunStarted:
			dash.AppendRunStarted(line)
		case push.EventRunFailure:
			dash.AppendFailure(line)
		default:
			dash.AppendSystem(line)
		}
	}
	if len(events) > 0 {
		log.Printf("Archive: replayed %d recent events", len(events))
	}
}

// Purpose: Consume decoded push events and fan them out.
// Key aspects: Counts, archives, appends to the dashboard, and pokes the
// poller so the snapshot catches up ahead of the next scheduled fetch.
// Upstream: main push goroutine.
// Downstream: tracker counters, archive.Enqueue, ui appends, poller.Poke.
func processPushEvents(ctx context.Context, client *push.Client, poller *feed.Poller, governor *refreshGovernor, tracker *stats.Tracker, archiveWriter *archive.Writer, dash ui.Surface) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			tracker.IncrementEvent(string(ev.Type))
			tracker.IncrementPushAccepted()
			if governor != nil {
				governor.IncrementEvents()
			}
			if archiveWriter != nil {
				archiveWriter.Enqueue(ev)
			}
			line := formatEventLine(ev)
			if dash != nil {
				switch ev.Type {
				case push.EventMaterialization:
					dash.AppendMaterialization(line)
				case push.EventObservation:
					dash.AppendObservation(line)
				case push.EventRunStarted:
					dash.AppendRunStarted(line)
				case push.EventRunFailure:
					dash.AppendFailure(line)
				default:
					dash.AppendSystem(line)
				}
			} else {
				log.Printf("Event: %s %s", ev.Type, line)
			}
			poller.Poke()
		}
	}
}

// Purpose: Render one push event as a single dashboard/log line.
// Key aspects: Truncates run ids and formats the event time as UTC clock.
// Upstream: processPushEvents.
// Downstream: strings.Builder.
func formatEventLine(ev push.Event) string {
	var b strings.Builder
	b.WriteString(ev.Key.String())
	if run := shortRunID(ev.RunID); run != "" {
		b.WriteString(" run=")
		b.WriteString(run)
	}
	if !ev.Time.IsZero() {
		b.WriteString(" at ")
		b.WriteString(ev.Time.UTC().Format("15:04:05"))
	}
	return b.String()
}

func shortRunID(runID string) string {
	runID = strings.TrimSpace(runID)
	if len(runID) > shortRunIDLength {
		return runID[:shortRunIDLength]
	}
	return runID
}

// Purpose: Build the complete dashboard snapshot from the latest feed state.
// Key aspects: Classifies every visible asset, feeds the status distribution
// into the tracker, and formats the overview pane.
// Upstream: renderLatest in main (poll callback and stats ticker).
// Downstream: asset.Classify, asset.RollupPartitions, tracker.SetStatusCounts.
func buildUISnapshot(snap *feed.Snapshot, tracker *stats.Tracker) ui.Snapshot {
	rows := make([]ui.AssetRow, 0, len(snap.Entries))
	counts := make(map[string]int)
	overdue := 0
	for _, entry := range snap.Entries {
		if asset.Suppressed(entry.Definition) {
			continue
		}
		status := asset.Classify(entry.Definition, entry.Live)
		counts[status.Kind.String()]++
		if status.Overdue {
			overdue++
		}
		row := ui.AssetRow{
			Key:        entry.Definition.Key.String(),
			Status:     statusLabel(status),
			StatusKind: status.Kind.String(),
			Updated:    status.Day,
			Detail:     statusDetail(status),
			Overdue:    status.Overdue,
		}
		if rollup, ok := asset.RollupPartitions(entry.Definition, entry.Live); ok {
			row.Partitions = rollupCell(rollup)
		}
		rows = append(rows, row)
	}
	if tracker != nil {
		tracker.SetStatusCounts(counts)
	}

	return ui.Snapshot{
		GeneratedAt:   snap.GeneratedAt,
		AssetRows:     rows,
		OverviewLines: overviewLines(snap, len(rows), overdue, counts),
	}
}

func statusLabel(status asset.Status) string {
	if status.Label == "" {
		return "-"
	}
	return status.Label
}

// statusDetail renders the one-line payload column for a classified row.
func statusDetail(status asset.Status) string {
	parts := make([]string, 0, 3)
	if status.Overdue {
		parts = append(parts, fmt.Sprintf("%.0fm late", status.MinutesLate))
	}
	switch status.Kind {
	case asset.StatusInProgress:
		if run := shortRunID(status.RunID); run != "" {
			parts = append(parts, "run "+run)
		}
	case asset.StatusFailed:
		if run := shortRunID(status.RunID); run != "" {
			parts = append(parts, "run "+run)
		}
		if day := asset.FormatEpochDay(status.EndTime); day != "" {
			parts = append(parts, "ended "+day)
		}
	case asset.StatusStale:
		if status.Cause != nil {
			if status.Cause.Reason != "" {
				parts = append(parts, status.Cause.Reason)
			}
			if len(status.Cause.Dependency) > 0 {
				parts = append(parts, "via "+status.Cause.Dependency.String())
			}
		}
	}
	return strings.Join(parts, " ")
}

// rollupCell renders the partition column. Counts above the display cap show
// as "999+" so the column width stays stable on very large assets.
func rollupCell(r asset.Rollup) string {
	if r.Loading {
		return "loading"
	}
	cell := fmt.Sprintf("%s/%s", asset.CapCount(r.NumMaterialized), asset.FormatCount(r.NumPartitions))
	if r.NumMaterializing > 0 {
		cell += " R:" + asset.CapCount(r.NumMaterializing)
	}
	if r.NumFailed > 0 {
		cell += " F:" + asset.CapCount(r.NumFailed)
	}
	return cell
}

// Purpose: Format the status-distribution pane of the overview page.
// Key aspects: First line is the header; the rest are sorted per-kind counts.
// Upstream: buildUISnapshot.
// Downstream: humanize.Comma and sort.Strings.
func overviewLines(snap *feed.Snapshot, visible, overdue int, counts map[string]int) []string {
	generated := "never"
	if !snap.GeneratedAt.IsZero() {
		generated = snap.GeneratedAt.UTC().Format("15:04:05")
	}
	lines := []string{
		fmt.Sprintf("Assets: %s visible / %s overdue / generated %s",
			humanize.Comma(int64(visible)), humanize.Comma(int64(overdue)), generated),
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%-20s %s", key, humanize.Comma(int64(counts[key]))))
	}
	if len(keys) == 0 {
		lines = append(lines, "(no assets)")
	}
	return lines
}

// paneState holds the latest feed/push pane lines so every rebuilt dashboard
// snapshot carries them, whichever goroutine triggered the rebuild.
type paneState struct {
	mu        sync.Mutex
	feedLines []string
	pushLines []string
}

func (p *paneState) set(feedLines, pushLines []string) {
	p.mu.Lock()
	p.feedLines = feedLines
	p.pushLines = pushLines
	p.mu.Unlock()
}

func (p *paneState) lines() ([]string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feedLines, p.pushLines
}

// Purpose: Periodically emit stats lines and refresh the overview panes.
// Key aspects: Dashboard gets SetStats plus refreshed feed and push panes;
// headless mode logs instead; every tick lands a file-only summary.
// Upstream: main stats goroutine.
// Downstream: tracker accessors, poller/push health, fanout.WriteFileOnlyLine.
func displayStats(ctx context.Context, interval time.Duration, tracker *stats.Tracker, store *feed.Store, poller *feed.Poller, pushClient *push.Client, archiveWriter *archive.Writer, dash ui.Surface, fanout *logFanout, panes *paneState, renderLatest func()) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := time.Now().UTC()
		panes.set(
			formatFeedLines(poller, store, now),
			formatPushLines(pushClient, archiveWriter, tracker, now),
		)
		lines := []string{fmt.Sprintf("Uptime: %s", formatUptimeLine(tracker.GetUptime()))}
		lines = append(lines, tracker.SnapshotLines()...)

		if dash != nil {
			dash.SetStats(lines)
			renderLatest()
		} else {
			for _, line := range lines {
				log.Print(line)
			}
		}
		fanout.WriteFileOnlyLine(strings.Join(lines, " | "), now)
	}
}

// Purpose: Format the feed pane of the overview page.
// Key aspects: Reads the poller health counters and current cadence.
// Upstream: displayStats.
// Downstream: poller.Health, store.Generation, humanize.Comma.
func formatFeedLines(poller *feed.Poller, store *feed.Store, now time.Time) []string {
	if poller == nil {
		return []string{"Feed: disabled"}
	}
	health := poller.Health()
	return []string{
		fmt.Sprintf("Polls: %s total / %s cached / %s failed",
			humanize.Comma(int64(health.Polls)),
			humanize.Comma(int64(health.NotModified)),
			humanize.Comma(int64(health.Failures))),
		fmt.Sprintf("Last success: %s ago", ageString(now, health.LastSuccessAt)),
		fmt.Sprintf("Interval: %s", poller.Interval()),
		fmt.Sprintf("Snapshot generation: %d", store.Generation()),
	}
}

// Purpose: Format the push/archive pane of the overview page.
// Key aspects: Reports broker state, event queue depth, and drop counters.
// Upstream: displayStats.
// Downstream: pushClient.Health, archiveWriter.Drops, humanize.Comma.
func formatPushLines(pushClient *push.Client, archiveWriter *archive.Writer, tracker *stats.Tracker, now time.Time) []string {
	if pushClient == nil {
		return []string{"Push: disabled"}
	}
	health := pushClient.Health()
	state := "disconnected"
	if health.Connected {
		state = "connected"
	}
	lines := []string{
		fmt.Sprintf("Broker: %s, last message %s ago", state, ageString(now, health.LastMessageAt)),
		fmt.Sprintf("Events: %s accepted, queue %d/%d",
			humanize.Comma(int64(tracker.PushAccepted())), health.QueueLen, health.QueueCap),
	}
	if health.ParseErrors > 0 || health.Deduped > 0 || health.Drops > 0 {
		lines = append(lines, fmt.Sprintf("Drops: parse=%d dedupe=%d queue=%d",
			health.ParseErrors, health.Deduped, health.Drops))
	}
	if archiveWriter != nil {
		lines = append(lines, fmt.Sprintf("Archive drops: %d", archiveWriter.Drops()))
	}
	return lines
}

// Purpose: Format a human-readable uptime value.
// Key aspects: Uses hours/minutes formatting.
// Upstream: displayStats.
// Downstream: time.Duration math.
func formatUptimeLine(uptime time.Duration) string {
	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// maybeStartHeapLogger starts periodic heap logging when ASSETWATCH_HEAP_LOG_INTERVAL
// is set (e.g., "60s"). Defaults to disabled when the variable is empty or invalid.
// Purpose: Optionally start a periodic heap profile logger.
// Key aspects: Controlled by environment variables.
// Upstream: main startup.
// Downstream: runtime.ReadMemStats and time.NewTicker.
func maybeStartHeapLogger() {
	intervalStr := strings.TrimSpace(os.Getenv("ASSETWATCH_HEAP_LOG_INTERVAL"))
	if intervalStr == "" {
		return
	}
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		log.Printf("Heap logger disabled (invalid ASSETWATCH_HEAP_LOG_INTERVAL=%q)", intervalStr)
		return
	}
	ticker := time.NewTicker(interval)
	// Purpose: Emit periodic heap stats to the log.
	// Key aspects: Runs on ticker cadence until process exit.
	// Upstream: maybeStartHeapLogger.
	// Downstream: runtime.ReadMemStats and log.Printf.
	go func() {
		log.Printf("Heap logger enabled (every %s)", interval)
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			log.Printf("Heap: alloc=%.1f MB sys=%.1f MB objects=%d gc=%d next_gc=%.1f MB",
				bytesToMB(m.HeapAlloc),
				bytesToMB(m.Sys),
				m.HeapObjects,
				m.NumGC,
				bytesToMB(m.NextGC))
		}
	}()
}

// maybeStartDiagServer exposes /debug/pprof/* and /debug/heapdump when
// ASSETWATCH_PPROF_ADDR is set (example: ASSETWATCH_PPROF_ADDR=localhost:6061).
// Default is off.
// Purpose: Optionally start the pprof/diagnostic HTTP server.
// Key aspects: Reads env vars and starts http server in background.
// Upstream: main startup.
// Downstream: http.ListenAndServe and net/http/pprof.
func maybeStartDiagServer() {
	addr := strings.TrimSpace(os.Getenv("ASSETWATCH_PPROF_ADDR"))
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	// Purpose: Serve a heap dump endpoint that writes a pprof file to disk.
	// Key aspects: Creates diagnostics dir, forces GC, and writes heap profile.
	// Upstream: HTTP /debug/heapdump request.
	// Downstream: os.MkdirAll, os.Create, pprof.WriteHeapProfile.
	mux.HandleFunc("/debug/heapdump", func(w http.ResponseWriter, r *http.Request) {
		ts := time.Now().UTC().Format("2006-01-02T15-04-05Z")
		dir := filepath.Join("data", "diagnostics")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			http.Error(w, fmt.Sprintf("mkdir diagnostics: %v", err), http.StatusInternalServerError)
			return
		}
		path := filepath.Join(dir, fmt.Sprintf("heap-%s.pprof", ts))
		f, err := os.Create(path)
		if err != nil {
			http.Error(w, fmt.Sprintf("create heap dump: %v", err), http.StatusInternalServerError)
			return
		}
		defer f.Close()
		runtime.GC() // collect latest data
		if err := pprof.WriteHeapProfile(f); err != nil {
			http.Error(w, fmt.Sprintf("write heap profile: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "heap profile written to %s\n", path)
	})
	mux.Handle("/debug/pprof/", http.HandlerFunc(httppprof.Index))
	mux.Handle("/debug/pprof/cmdline", http.HandlerFunc(httppprof.Cmdline))
	mux.Handle("/debug/pprof/profile", http.HandlerFunc(httppprof.Profile))
	mux.Handle("/debug/pprof/symbol", http.HandlerFunc(httppprof.Symbol))
	mux.Handle("/debug/pprof/trace", http.HandlerFunc(httppprof.Trace))

	// Purpose: Run the diagnostics HTTP server.
	// Key aspects: Logs startup and reports server errors.
	// Upstream: maybeStartDiagServer.
	// Downstream: http.ListenAndServe.
	go func() {
		log.Printf("Diagnostics server listening on %s (pprof + /debug/heapdump)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Diagnostics server error: %v", err)
		}
	}()
}

// Purpose: Convert bytes to megabytes (MB).
// Key aspects: Uses binary MB.
// Upstream: maybeStartHeapLogger.
// Downstream: float math.
func bytesToMB(b uint64) float64 {
	return float64(b) / (1024.0 * 1024.0)
}
