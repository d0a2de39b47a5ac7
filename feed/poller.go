package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"assetwatch/config"
)

// conditionalFetcher performs ETag/Last-Modified conditional GETs so an
// unchanged snapshot costs a 304 instead of a full document.
type conditionalFetcher struct {
	url          string
	etag         string
	lastModified string
	client       *http.Client
}

func (f *conditionalFetcher) Fetch(ctx context.Context) ([]byte, bool, error) {
	if f == nil {
		return nil, false, fmt.Errorf("nil fetcher")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, false, err
	}
	if f.etag != "" {
		req.Header.Set("If-None-Match", f.etag)
	}
	if f.lastModified != "" {
		req.Header.Set("If-Modified-Since", f.lastModified)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotModified {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		f.etag = etag
	}
	if last := resp.Header.Get("Last-Modified"); last != "" {
		f.lastModified = last
	}
	return body, true, nil
}

// HealthSnapshot summarizes poller activity for the health monitor and the
// overview panel.
type HealthSnapshot struct {
	Polls         uint64
	NotModified   uint64
	Failures      uint64
	LastSuccessAt time.Time
	LastErrorAt   time.Time
}

// Poller drives the snapshot fetch loop. The interval can be retuned while
// running (the refresh governor does this) and Poke forces an immediate
// fetch after a push event. A fetch superseded by a newer one is simply
// discarded: the store only ever moves forward.
type Poller struct {
	cfg     config.FeedConfig
	fetcher *conditionalFetcher
	store   *Store
	onSnap  func(*Snapshot)

	interval atomic.Int64 // nanoseconds
	poke     chan struct{}
	quit     chan struct{}
	wg       sync.WaitGroup

	polls       atomic.Uint64
	notModified atomic.Uint64
	failures    atomic.Uint64

	mu            sync.Mutex
	lastSuccessAt time.Time
	lastErrorAt   time.Time
}

// NewPoller constructs a poller; onSnap (optional) observes every decoded
// snapshot after it is installed in the store.
func NewPoller(cfg config.FeedConfig, store *Store, onSnap func(*Snapshot)) *Poller {
	if store == nil || cfg.URL == "" {
		return nil
	}
	p := &Poller{
		cfg: cfg,
		fetcher: &conditionalFetcher{
			url:    cfg.URL,
			client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		},
		store:  store,
		onSnap: onSnap,
		poke:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
	p.interval.Store(int64(time.Duration(cfg.PollSeconds) * time.Second))
	return p
}

// Start begins the poll loop with an immediate first fetch.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollOnce(ctx)
		timer := time.NewTimer(p.Interval())
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.quit:
				return
			case <-p.poke:
				p.pollOnce(ctx)
			case <-timer.C:
				p.pollOnce(ctx)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.Interval())
		}
	}()
}

// Stop ends the loop and waits for the in-flight poll to finish.
func (p *Poller) Stop() {
	if p == nil {
		return
	}
	close(p.quit)
	p.wg.Wait()
}

// Poke requests an immediate poll; coalesces when one is already queued.
func (p *Poller) Poke() {
	if p == nil {
		return
	}
	select {
	case p.poke <- struct{}{}:
	default:
	}
}

// SetInterval retunes the poll cadence; takes effect after the current wait.
func (p *Poller) SetInterval(d time.Duration) {
	if p == nil || d <= 0 {
		return
	}
	p.interval.Store(int64(d))
}

// Interval reports the current poll cadence.
func (p *Poller) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return time.Duration(p.interval.Load())
}

// Health returns a copy of the poller's counters.
func (p *Poller) Health() HealthSnapshot {
	if p == nil {
		return HealthSnapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return HealthSnapshot{
		Polls:         p.polls.Load(),
		NotModified:   p.notModified.Load(),
		Failures:      p.failures.Load(),
		LastSuccessAt: p.lastSuccessAt,
		LastErrorAt:   p.lastErrorAt,
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	p.polls.Add(1)
	body, fresh, err := p.fetcher.Fetch(ctx)
	now := time.Now().UTC()
	if err != nil {
		p.failures.Add(1)
		p.mu.Lock()
		p.lastErrorAt = now
		p.mu.Unlock()
		log.Printf("Feed: poll failed: %v", err)
		return
	}
	if !fresh {
		// 304: the installed snapshot is still current.
		p.notModified.Add(1)
		p.markSuccess(now)
		return
	}
	snap, err := DecodeSnapshot(body)
	if err != nil {
		p.failures.Add(1)
		p.mu.Lock()
		p.lastErrorAt = now
		p.mu.Unlock()
		log.Printf("Feed: %v", err)
		return
	}
	p.store.Replace(snap, now)
	p.markSuccess(now)
	if p.onSnap != nil {
		p.onSnap(snap)
	}
}

func (p *Poller) markSuccess(now time.Time) {
	p.mu.Lock()
	p.lastSuccessAt = now
	p.mu.Unlock()
}
