package ui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"assetwatch/config"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	maxSearchResults   = 1000
	paneWriterMaxBytes = 64 * 1024
)

const (
	accentTag   = "[#5fd7ff]"
	accentReset = "[-]"
)

var (
	uiBorderColor = tcell.ColorGray
	uiTitleColor  = tcell.ColorLightSkyBlue
)

// Dashboard implements the page-based tview UI.
type Dashboard struct {
	app       *tview.Application
	pages     *tview.Pages
	scheduler *frameScheduler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ready chan struct{}

	snapshotMu sync.RWMutex
	snapshot   Snapshot
	statsMu    sync.Mutex
	statsLines []string

	eventsBuf *BoundedEventBuffer

	assetsPage *assetPage
	eventsPage *eventPage

	overviewRoot   *tview.Flex
	overviewHdr    *tview.TextView
	overviewStatus *tview.TextView
	overviewFeed   *tview.TextView
	overviewPush   *tview.TextView

	pageOrder   []string
	pageIndex   int
	helpShown   bool
	metrics     *Metrics
	pagePresent map[string]bool
}

// NewDashboard constructs the dashboard if enabled.
func NewDashboard(cfg config.UIConfig, enable bool) *Dashboard {
	if !enable {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := tview.NewApplication().EnableMouse(cfg.EnableMouse)
	pages := tview.NewPages()
	ready := make(chan struct{})
	var once sync.Once
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		once.Do(func() { close(ready) })
		return false
	})

	metrics := NewMetrics()
	d := &Dashboard{
		app:         app,
		pages:       pages,
		ctx:         ctx,
		cancel:      cancel,
		ready:       ready,
		pageOrder:   cfg.Pages,
		metrics:     metrics,
		pagePresent: make(map[string]bool),
	}

	policy := DropPolicy{
		MaxMessageBytes:  cfg.EventBuffer.MaxMessageBytes,
		EvictOnByteLimit: cfg.EventBuffer.EvictOnByteLimit,
		LogDrops:         cfg.EventBuffer.LogDrops,
	}
	maxBytes := int64(cfg.EventBuffer.MaxBytesMB) * 1024 * 1024
	d.eventsBuf = NewBoundedEventBuffer("events", cfg.EventBuffer.MaxEvents, maxBytes, policy, log.Printf)

	d.assetsPage = newAssetPage(ctx, metrics)
	d.eventsPage = newEventPage(ctx, "EVENTS", d.eventsBuf, true, metrics)

	d.overviewHdr = newBoxedTextView("Overview")
	d.overviewStatus = newBoxedTextView("Assets by Status")
	d.overviewFeed = newBoxedTextView("Feed")
	d.overviewPush = newBoxedTextView("Push & Archive")
	d.seedOverviewPlaceholders()
	d.overviewRoot = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.overviewHdr, 3, 0, false).
		AddItem(newSpacer(), 1, 0, false).
		AddItem(d.overviewStatus, 5, 0, false).
		AddItem(newSpacer(), 1, 0, false).
		AddItem(d.overviewFeed, 6, 0, false).
		AddItem(newSpacer(), 1, 0, false).
		AddItem(d.overviewPush, 0, 1, false)

	d.addPage("assets", d.assetsPage.root, true, false)
	d.addPage("events", d.eventsPage.root, true, false)
	d.addPage("overview", d.overviewRoot, true, false)

	help := buildHelpOverlay()
	d.addPage("help", help, true, false)

	d.scheduler = newFrameScheduler(app, cfg.TargetFPS, 100*time.Millisecond, metrics.ObserveRender)
	d.scheduler.Start()

	d.installKeybindings(cfg)
	d.installRoot()

	go func() {
		if err := app.Run(); err != nil {
			log.Printf("UI: tview error: %v", err)
		}
	}()

	return d
}

func (d *Dashboard) installRoot() {
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.pages, 0, 1, true).
		AddItem(buildFooter(), 1, 0, false)
	d.app.SetRoot(root, true)
	d.showFirstAvailablePage()
}

func (d *Dashboard) installKeybindings(cfg config.UIConfig) {
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if d.helpShown {
			if event.Key() == tcell.KeyEsc || event.Key() == tcell.KeyF1 || event.Rune() == 'h' || event.Rune() == '?' {
				d.toggleHelp(false)
				return nil
			}
		}

		searching := d.searchFocused()
		pageName, _ := d.pages.GetFrontPage()
		if !searching {
			switch pageName {
			case "assets":
				if d.assetsPage.handleInput(event, d.app) {
					return nil
				}
			case "events":
				if d.eventsPage.handleInput(event, d.app) {
					return nil
				}
			}
		} else if event.Key() == tcell.KeyEsc || event.Key() == tcell.KeyEnter {
			switch pageName {
			case "assets":
				if event.Key() == tcell.KeyEsc {
					d.assetsPage.search.SetText("")
				}
				d.app.SetFocus(d.assetsPage.list)
			case "events":
				if event.Key() == tcell.KeyEsc {
					d.eventsPage.search.SetText("")
				}
				d.app.SetFocus(d.eventsPage.list)
			}
			return nil
		}

		switch event.Key() {
		case tcell.KeyF1:
			d.toggleHelp(!d.helpShown)
			return nil
		case tcell.KeyF2:
			d.showPage("assets")
			return nil
		case tcell.KeyF3:
			d.showPage("events")
			return nil
		case tcell.KeyF4:
			d.showPage("overview")
			return nil
		case tcell.KeyTab:
			if !searching {
				d.nextPage()
				return nil
			}
		case tcell.KeyBacktab:
			if !searching {
				d.prevPage()
				return nil
			}
		case tcell.KeyCtrlC:
			d.Stop()
			return nil
		}

		if searching {
			return event
		}

		switch event.Rune() {
		case 'q', 'Q':
			d.Stop()
			return nil
		case 'h', '?':
			d.toggleHelp(!d.helpShown)
			return nil
		}

		if cfg.Keybindings.UseAlternatives {
			switch event.Rune() {
			case 'a':
				d.showPage("assets")
				return nil
			case 'e':
				d.showPage("events")
				return nil
			case 'o':
				d.showPage("overview")
				return nil
			}
		}

		return event
	})
}

func (d *Dashboard) searchFocused() bool {
	if d == nil || d.app == nil {
		return false
	}
	focused := d.app.GetFocus()
	if d.assetsPage != nil && focused == d.assetsPage.search {
		return true
	}
	if d.eventsPage != nil && focused == d.eventsPage.search {
		return true
	}
	return false
}

func (d *Dashboard) toggleHelp(show bool) {
	d.helpShown = show
	d.pages.ShowPage("help")
	d.pages.SendToFront("help")
	if !show {
		d.pages.HidePage("help")
	}
}

func (d *Dashboard) showPage(name string) {
	if !d.pageEnabled(name) || !d.pageAvailable(name) {
		return
	}
	for i, page := range d.pageOrder {
		if page == name {
			d.pageIndex = i
			break
		}
	}
	d.pages.SwitchToPage(name)
	if d.metrics != nil {
		d.metrics.PageSwitch()
	}
	switch name {
	case "assets":
		if d.assetsPage != nil && d.assetsPage.list != nil {
			d.app.SetFocus(d.assetsPage.list)
		}
	case "events":
		if d.eventsPage != nil && d.eventsPage.list != nil {
			d.app.SetFocus(d.eventsPage.list)
		}
	case "overview":
		d.app.SetFocus(d.overviewRoot)
	}
}

func (d *Dashboard) showFirstAvailablePage() {
	if d == nil {
		return
	}
	if name, ok := d.firstAvailablePage(); ok {
		d.showPage(name)
	}
}

func (d *Dashboard) firstAvailablePage() (string, bool) {
	if d == nil {
		return "", false
	}
	for _, name := range d.pageOrder {
		if d.pageAvailable(name) {
			return name, true
		}
	}
	return "", false
}

func (d *Dashboard) nextPage() {
	if len(d.pageOrder) == 0 {
		return
	}
	d.cyclePage(1)
}

func (d *Dashboard) prevPage() {
	if len(d.pageOrder) == 0 {
		return
	}
	d.cyclePage(-1)
}

func (d *Dashboard) pageEnabled(name string) bool {
	for _, page := range d.pageOrder {
		if page == name {
			return true
		}
	}
	return false
}

func (d *Dashboard) pageAvailable(name string) bool {
	if d == nil {
		return false
	}
	return d.pagePresent[name]
}

func (d *Dashboard) addPage(name string, page tview.Primitive, resize, visible bool) {
	if d == nil || d.pages == nil || page == nil || name == "" {
		return
	}
	d.pages.AddPage(name, page, resize, visible)
	d.pagePresent[name] = true
}

func (d *Dashboard) cyclePage(delta int) {
	if d == nil || len(d.pageOrder) == 0 {
		return
	}
	for i := 0; i < len(d.pageOrder); i++ {
		d.pageIndex += delta
		if d.pageIndex < 0 {
			d.pageIndex = len(d.pageOrder) - 1
		} else if d.pageIndex >= len(d.pageOrder) {
			d.pageIndex = 0
		}
		name := d.pageOrder[d.pageIndex]
		if d.pageAvailable(name) {
			d.showPage(name)
			return
		}
	}
}

func (d *Dashboard) WaitReady() {
	if d == nil || d.ready == nil {
		return
	}
	<-d.ready
}

func (d *Dashboard) Stop() {
	if d == nil {
		return
	}
	d.cancel()
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
	if d.assetsPage != nil {
		d.assetsPage.searchFilter.Stop()
	}
	if d.eventsPage != nil {
		d.eventsPage.searchFilter.Stop()
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		log.Printf("UI: dashboard stop timeout, some goroutines may leak")
	}
	if d.app != nil {
		d.app.Stop()
	}
}

func (d *Dashboard) SetStats(lines []string) {
	if d == nil {
		return
	}
	d.statsMu.Lock()
	d.statsLines = append(d.statsLines[:0], lines...)
	d.statsMu.Unlock()
	d.scheduler.Schedule("stats", func() {
		d.renderSnapshot()
	})
}

func (d *Dashboard) SetSnapshot(snapshot Snapshot) {
	if d == nil {
		return
	}
	d.snapshotMu.Lock()
	d.snapshot = snapshot
	d.snapshotMu.Unlock()
	d.scheduler.Schedule("snapshot", func() {
		d.renderSnapshot()
	})
}

func (d *Dashboard) renderSnapshot() {
	snap := d.snapshotCopy()
	if len(snap.OverviewLines) == 0 {
		d.statsMu.Lock()
		snap.OverviewLines = append([]string{}, d.statsLines...)
		d.statsMu.Unlock()
	}
	if line := d.metricsLine(); line != "" {
		snap.OverviewLines = append(snap.OverviewLines, line)
	}
	d.updateOverviewBoxes(snap)
	if d.assetsPage != nil {
		d.assetsPage.setRows(snap.AssetRows)
	}
}

// metricsLine summarizes render/search latency for the overview page. Empty
// until the first frame has been timed.
func (d *Dashboard) metricsLine() string {
	render := d.metrics.RenderSnapshot()
	if render.N == 0 {
		return ""
	}
	line := fmt.Sprintf("UI: render p50=%s p99=%s", render.P50, render.P99)
	if search := d.metrics.SearchSnapshot(); search.N > 0 {
		line += fmt.Sprintf(", search p50=%s", search.P50)
	}
	if n := d.metrics.PageSwitches(); n > 0 {
		line += fmt.Sprintf(", page switches=%d", n)
	}
	return line
}

func (d *Dashboard) snapshotCopy() Snapshot {
	d.snapshotMu.RLock()
	defer d.snapshotMu.RUnlock()
	copyLines := func(lines []string) []string {
		if len(lines) == 0 {
			return nil
		}
		out := make([]string, len(lines))
		copy(out, lines)
		return out
	}
	rows := make([]AssetRow, len(d.snapshot.AssetRows))
	copy(rows, d.snapshot.AssetRows)
	return Snapshot{
		GeneratedAt:   d.snapshot.GeneratedAt,
		OverviewLines: copyLines(d.snapshot.OverviewLines),
		FeedLines:     copyLines(d.snapshot.FeedLines),
		PushLines:     copyLines(d.snapshot.PushLines),
		AssetRows:     rows,
	}
}

func (d *Dashboard) AppendMaterialization(line string) {
	d.appendEvent(EventMaterialize, line)
}

func (d *Dashboard) AppendObservation(line string) {
	d.appendEvent(EventObserve, line)
}

func (d *Dashboard) AppendRunStarted(line string) {
	d.appendEvent(EventRunStart, line)
}

func (d *Dashboard) AppendFailure(line string) {
	d.appendEvent(EventRunFail, line)
}

func (d *Dashboard) AppendSystem(line string) {
	d.appendEvent(EventSystem, line)
}

func (d *Dashboard) appendEvent(kind EventKind, line string) {
	if d == nil || d.eventsBuf == nil {
		return
	}
	event := StyledEvent{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Message:   stripTags(line),
	}
	if d.eventsBuf.Append(event) {
		d.scheduler.Schedule("events", func() {
			if d.eventsPage != nil {
				d.eventsPage.refresh()
			}
		})
	}
}

func (d *Dashboard) SystemWriter() io.Writer {
	if d == nil {
		return nil
	}
	return &paneWriter{dash: d}
}

type paneWriter struct {
	dash *Dashboard
	// buf holds any partial line; it is bounded to avoid unbounded growth when no newline arrives.
	buf          []byte
	mu           sync.Mutex
	droppedBytes uint64
	lastDropLog  time.Time
}

func (w *paneWriter) Write(p []byte) (int, error) {
	if w == nil || w.dash == nil {
		return len(p), nil
	}
	var logDrop bool
	var dropBytes uint64
	var totalDropped uint64
	now := time.Now().UTC()
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	if excess := len(w.buf) - paneWriterMaxBytes; excess > 0 {
		w.buf = w.buf[excess:]
		w.droppedBytes += uint64(excess)
		dropBytes = uint64(excess)
		totalDropped = w.droppedBytes
		if w.lastDropLog.IsZero() || now.Sub(w.lastDropLog) >= 30*time.Second {
			w.lastDropLog = now
			logDrop = true
		}
	}
	data := w.buf
	w.mu.Unlock()
	if logDrop {
		log.Printf("UI: paneWriter dropped %d bytes (total %d) due to missing newline", dropBytes, totalDropped)
	}

	for {
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		line := string(bytes.TrimRight(data[:idx], "\r"))
		w.dash.AppendSystem(line)
		data = data[idx+1:]
	}
	w.mu.Lock()
	w.buf = data
	w.mu.Unlock()
	return len(p), nil
}

func newBoxedTextView(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	tv.SetBorder(true)
	if title != "" {
		tv.SetTitle(accentText(title)).SetTitleAlign(tview.AlignLeft)
	}
	tv.SetBorderColor(uiBorderColor)
	tv.SetTitleColor(uiTitleColor)
	return tv
}

func newSpacer() *tview.Box {
	return tview.NewBox()
}

func buildFooter() *tview.TextView {
	return tview.NewTextView().SetDynamicColors(true).SetText(
		accentText("F1") + "Help  " + accentText("F2") + "Assets  " + accentText("F3") + "Events  " + accentText("F4") + "Overview  [Q]Quit",
	)
}

func (d *Dashboard) updateOverviewBoxes(snap Snapshot) {
	if len(snap.OverviewLines) == 0 && len(snap.FeedLines) == 0 && len(snap.PushLines) == 0 {
		d.seedOverviewPlaceholders()
		return
	}
	if len(snap.OverviewLines) > 0 {
		setBoxText(d.overviewHdr, snap.OverviewLines[0])
	}
	if len(snap.OverviewLines) > 1 {
		lines := snap.OverviewLines[1:]
		setBoxText(d.overviewStatus, strings.Join(lines, "\n"))
		if d.overviewRoot != nil {
			height := len(lines) + 2
			if height < 3 {
				height = 3
			}
			d.overviewRoot.ResizeItem(d.overviewStatus, height, 0)
		}
	}
	if len(snap.FeedLines) > 0 {
		setBoxText(d.overviewFeed, strings.Join(snap.FeedLines, "\n"))
		if d.overviewRoot != nil {
			height := len(snap.FeedLines) + 2
			if height < 3 {
				height = 3
			}
			d.overviewRoot.ResizeItem(d.overviewFeed, height, 0)
		}
	}
	if len(snap.PushLines) > 0 {
		setBoxText(d.overviewPush, strings.Join(snap.PushLines, "\n"))
	}
}

func (d *Dashboard) seedOverviewPlaceholders() {
	setBoxText(d.overviewHdr, "[yellow]Instance[-]: --  [yellow]Assets[-]: --  [yellow]Uptime[-]: --:--")
	setBoxText(d.overviewStatus, "[yellow]Materialized[-]: --  [yellow]Stale[-]: --  [yellow]Failed[-]: --  [yellow]Missing[-]: --  [yellow]Running[-]: --")
	setBoxText(d.overviewFeed, "[yellow]Polls[-]: --  [yellow]Cached[-]: --  [yellow]Failures[-]: --\n[yellow]Last snapshot[-]: --")
	setBoxText(d.overviewPush, "[yellow]Push[-]: --  [yellow]Accepted[-]: --  [yellow]Deduped[-]: --\n[yellow]Archive queue drops[-]: --")
}

func setBoxText(tv *tview.TextView, text string) {
	if tv == nil {
		return
	}
	tv.SetText(padLines(text))
}

func buildHelpOverlay() tview.Primitive {
	help := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	help.SetText(strings.TrimSpace(fmt.Sprintf(`
KEYBOARD HELP

NAVIGATION
  %sF1%s  Help   %sF2%s Assets   %sF3%s Events   %sF4%s Overview
  Tab Next page   Shift+Tab Previous page   q / Ctrl+C Quit

ASSETS/EVENTS
  ↑/↓ or k/j Scroll   PageUp/Down Fast scroll   Home/End Top/Bottom
  1-6 Filter tabs (Events)   / Search   Esc Clear search / close
`, accentTag, accentReset, accentTag, accentReset, accentTag, accentReset, accentTag, accentReset)))
	help.SetBorder(true).SetTitle("Help")
	help.SetBorderColor(uiBorderColor)
	help.SetTitleColor(uiTitleColor)
	container := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(help, 15, 1, true).
			AddItem(nil, 0, 1, false),
			60, 1, true).
		AddItem(nil, 0, 1, false)
	return container
}

func padLines(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		lines[i] = " " + line
	}
	return strings.Join(lines, "\n")
}

func stripTags(s string) string {
	if s == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"[red]", "",
		"[green]", "",
		"[yellow]", "",
		"[blue]", "",
		"[#5fd7ff]", "",
		"[magenta]", "",
		"[cyan]", "",
		"[white]", "",
		"[-]", "",
	)
	return replacer.Replace(s)
}

func accentText(text string) string {
	if text == "" {
		return ""
	}
	return accentTag + text + accentReset
}
