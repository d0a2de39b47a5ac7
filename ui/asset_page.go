package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// assetPage renders the classified asset table with debounced fuzzy search.
type assetPage struct {
	root   *tview.Flex
	header *tview.TextView
	footer *tview.TextView
	search *tview.InputField
	list   *virtualLogView

	mu   sync.Mutex
	rows []AssetRow

	searchFilter *SearchFilter
	metrics      *Metrics
}

func newAssetPage(ctx context.Context, metrics *Metrics) *assetPage {
	header := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	footer := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	search := tview.NewInputField().SetLabel("Search: ").SetFieldWidth(30)
	list := newVirtualLogView("Assets", 10000, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow)

	headerRow := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(header, 0, 3, false).
		AddItem(search, 0, 1, false)
	root.AddItem(headerRow, 1, 0, false)
	root.AddItem(list, 0, 1, true)
	root.AddItem(footer, 1, 0, false)

	page := &assetPage{
		root:         root,
		header:       header,
		footer:       footer,
		search:       search,
		list:         list,
		searchFilter: NewSearchFilter(ctx),
		metrics:      metrics,
	}
	header.SetText(assetHeaderLine())

	search.SetChangedFunc(func(text string) {
		page.searchFilter.SetQuery(text, func() {
			page.refresh()
		})
	})

	return page
}

func (p *assetPage) handleInput(event *tcell.EventKey, app *tview.Application) bool {
	if p == nil || event == nil {
		return false
	}
	if p.list.HandleScroll(event) {
		return true
	}
	switch event.Key() {
	case tcell.KeyEsc:
		p.search.SetText("")
		if app != nil {
			app.SetFocus(p.list)
		}
		return true
	}
	if event.Rune() == '/' {
		if app != nil {
			app.SetFocus(p.search)
		}
		return true
	}
	return false
}

// setRows replaces the table contents and re-renders through the active filter.
func (p *assetPage) setRows(rows []AssetRow) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.rows = rows
	p.mu.Unlock()
	p.refresh()
}

func (p *assetPage) refresh() {
	if p == nil {
		return
	}
	p.mu.Lock()
	rows := p.rows
	p.mu.Unlock()

	query := p.searchFilter.ActiveQuery()
	visible := rows
	if query != "" {
		start := time.Time{}
		if p.metrics != nil {
			start = time.Now()
		}
		keys := make([]string, len(rows))
		for i, row := range rows {
			keys[i] = row.Key
		}
		indices := RankMatches(query, keys)
		if len(indices) > maxSearchResults {
			indices = indices[:maxSearchResults]
		}
		visible = make([]AssetRow, len(indices))
		for i, idx := range indices {
			visible[i] = rows[idx]
		}
		if !start.IsZero() {
			p.metrics.ObserveSearch(time.Since(start))
		}
	}

	lines := make([]string, len(visible))
	overdue := 0
	for i, row := range visible {
		lines[i] = formatAssetRow(row)
		if row.Overdue {
			overdue++
		}
	}
	p.list.Reset(lines)
	p.footer.SetText(fmt.Sprintf("Showing: %d/%d  Overdue: %d", len(visible), len(rows), overdue))
}

func assetHeaderLine() string {
	return fmt.Sprintf("  %-38s %-24s %-8s %-22s %s", "KEY", "STATUS", "UPDATED", "PARTITIONS", "DETAIL")
}

func formatAssetRow(row AssetRow) string {
	status := row.Status
	if row.Overdue {
		status += " !"
	}
	updated := row.Updated
	if updated == "" {
		updated = "-"
	}
	partitions := row.Partitions
	if partitions == "" {
		partitions = "-"
	}
	return fmt.Sprintf("%-38s %-24s %-8s %-22s %s",
		truncateRunes(row.Key, 38), status, updated, truncateRunes(partitions, 22), row.Detail)
}
