package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type eventPage struct {
	root   *tview.Flex
	header *tview.TextView
	footer *tview.TextView
	search *tview.InputField
	list   *VirtualList

	buffer        *BoundedEventBuffer
	filterEnabled bool
	filterIndex   int
	searchFilter  *SearchFilter
	title         string
	metrics       *Metrics

	scratch []StyledEvent
}

func newEventPage(ctx context.Context, title string, buffer *BoundedEventBuffer, filterEnabled bool, metrics *Metrics) *eventPage {
	header := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	footer := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	search := tview.NewInputField().SetLabel("Search: ").SetFieldWidth(30)
	list := NewVirtualList()
	root := tview.NewFlex().SetDirection(tview.FlexRow)

	headerRow := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(header, 0, 3, false).
		AddItem(search, 0, 1, false)
	root.AddItem(headerRow, 1, 0, false)
	root.AddItem(list, 0, 1, true)
	root.AddItem(footer, 1, 0, false)

	page := &eventPage{
		root:          root,
		header:        header,
		footer:        footer,
		search:        search,
		list:          list,
		buffer:        buffer,
		filterEnabled: filterEnabled,
		filterIndex:   0,
		searchFilter:  NewSearchFilter(ctx),
		title:         title,
		metrics:       metrics,
	}

	search.SetChangedFunc(func(text string) {
		page.searchFilter.SetQuery(text, func() {
			page.refresh()
		})
	})

	page.updateHeader()
	return page
}

func (p *eventPage) handleInput(event *tcell.EventKey, app *tview.Application) bool {
	if p == nil || event == nil {
		return false
	}
	switch event.Key() {
	case tcell.KeyUp:
		p.list.ScrollUp(1)
		return true
	case tcell.KeyDown:
		p.list.ScrollDown(1)
		return true
	case tcell.KeyPgUp:
		p.list.ScrollUp(10)
		return true
	case tcell.KeyPgDn:
		p.list.ScrollDown(10)
		return true
	case tcell.KeyHome:
		p.list.ScrollToStart()
		return true
	case tcell.KeyEnd:
		p.list.ScrollToEnd()
		return true
	case tcell.KeyEsc:
		p.search.SetText("")
		if app != nil {
			app.SetFocus(p.list)
		}
		return true
	}

	switch event.Rune() {
	case '/':
		if app != nil {
			app.SetFocus(p.search)
		}
		return true
	case 'k':
		p.list.ScrollUp(1)
		return true
	case 'j':
		p.list.ScrollDown(1)
		return true
	}

	if p.filterEnabled {
		switch event.Rune() {
		case '1', '2', '3', '4', '5', '6':
			p.filterIndex = int(event.Rune() - '1')
			p.refresh()
			return true
		}
	}
	return false
}

func (p *eventPage) refresh() {
	if p == nil || p.buffer == nil {
		return
	}
	snapshot := p.buffer.SnapshotInto(p.scratch)
	p.scratch = snapshot.Events

	indices := p.filterSnapshot(snapshot.Events)
	p.list.SetSnapshot(snapshot.Events, indices)
	p.updateFooter(snapshot.Events, indices)
}

func (p *eventPage) filterSnapshot(events []StyledEvent) []int {
	if len(events) == 0 {
		return nil
	}
	query := p.searchFilter.ActiveQuery()
	start := time.Time{}
	if query != "" && p.metrics != nil {
		start = time.Now()
	}
	indices := make([]int, 0, len(events))
	for i, event := range events {
		if p.filterEnabled && !matchFilter(p.filterIndex, event.Kind) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(event.Message), query) {
			continue
		}
		indices = append(indices, i)
		if query != "" && len(indices) >= maxSearchResults {
			break
		}
	}
	if !start.IsZero() {
		p.metrics.ObserveSearch(time.Since(start))
	}
	if len(indices) == len(events) && query == "" && !p.filterEnabled {
		return nil
	}
	return indices
}

func (p *eventPage) updateHeader() {
	if !p.filterEnabled {
		p.header.SetText(p.title)
		return
	}
	labels := []string{"All", "Materializations", "Observations", "Runs", "Failures", "System"}
	var b strings.Builder
	for i, label := range labels {
		if i == p.filterIndex {
			fmt.Fprintf(&b, "[yellow]%s[-] ", label)
		} else {
			fmt.Fprintf(&b, "%s ", label)
		}
	}
	p.header.SetText(strings.TrimSpace(b.String()))
}

func (p *eventPage) updateFooter(events []StyledEvent, indices []int) {
	p.updateHeader()
	count, maxCount, bytes, maxBytes := p.buffer.BufferUsage()
	drops := p.buffer.DropSnapshot()
	filtered := len(events)
	if indices != nil {
		filtered = len(indices)
	}
	p.footer.SetText(fmt.Sprintf("Showing: %d  Buffer: %d/%d  Bytes: %d/%d  Drops: O:%d E:%d B:%d",
		filtered, count, maxCount, bytes, maxBytes, drops.Oversized, drops.Evicted, drops.ByteLimit))
}

func matchFilter(filterIndex int, kind EventKind) bool {
	switch filterIndex {
	case 0:
		return true
	case 1:
		return kind == EventMaterialize
	case 2:
		return kind == EventObserve
	case 3:
		return kind == EventRunStart
	case 4:
		return kind == EventRunFail
	case 5:
		return kind == EventSystem
	default:
		return true
	}
}
