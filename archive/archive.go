// Package archive persists asset events to SQLite asynchronously. It is
// designed to be removable: the feed path never blocks on the writer, and
// backpressure results in dropped archive writes (counted, not fatal).
package archive

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"assetwatch/asset"
	"assetwatch/config"
	"assetwatch/push"

	_ "modernc.org/sqlite"
)

// Writer persists asset events with retention-based cleanup.
type Writer struct {
	cfg       config.ArchiveConfig
	db        *sql.DB
	queue     chan push.Event
	stop      chan struct{}
	dropCount atomic.Uint64
}

// NewWriter runs the preflight check, initializes the SQLite database and
// returns a writer; call Start to begin processing.
func NewWriter(cfg config.ArchiveConfig) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir: %w", err)
	}
	preflight(cfg.DBPath, time.Duration(cfg.PreflightTimeoutMS)*time.Millisecond, log.Printf)
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	if _, err := db.Exec(`pragma journal_mode=WAL; pragma synchronous=NORMAL; pragma busy_timeout=` + fmt.Sprintf("%d", cfg.BusyTimeoutMS)); err != nil {
		return nil, fmt.Errorf("archive: pragmas: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	qsize := cfg.QueueSize
	if qsize <= 0 {
		qsize = 10000
	}
	return &Writer{
		cfg:   cfg,
		db:    db,
		queue: make(chan push.Event, qsize),
		stop:  make(chan struct{}),
	}, nil
}

// Start launches the insert and cleanup loops.
func (w *Writer) Start() {
	go w.insertLoop()
	go w.cleanupLoop()
}

// Stop closes the writer; best-effort flush.
func (w *Writer) Stop() {
	close(w.stop)
	_ = w.db.Close()
}

// Enqueue attempts to queue an event for archival without blocking; drops on
// full queue.
func (w *Writer) Enqueue(e push.Event) {
	if w == nil {
		return
	}
	select {
	case w.queue <- e:
	default:
		w.dropCount.Add(1)
	}
}

// Drops returns the number of events dropped on backpressure.
func (w *Writer) Drops() uint64 {
	if w == nil {
		return 0
	}
	return w.dropCount.Load()
}

func (w *Writer) insertLoop() {
	batch := make([]push.Event, 0, w.cfg.BatchSize)
	timer := time.NewTimer(time.Duration(w.cfg.BatchIntervalMS) * time.Millisecond)
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			w.flush(batch)
			return
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= w.cfg.BatchSize {
				w.flush(batch)
				batch = batch[:0]
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(time.Duration(w.cfg.BatchIntervalMS) * time.Millisecond)
			}
		case <-timer.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
			timer.Reset(time.Duration(w.cfg.BatchIntervalMS) * time.Millisecond)
		}
	}
}

func (w *Writer) flush(batch []push.Event) {
	if len(batch) == 0 {
		return
	}
	tx, err := w.db.Begin()
	if err != nil {
		log.Printf("archive: begin tx: %v", err)
		return
	}
	stmt, err := tx.Prepare(`insert into events(ts, asset_key, event_type, run_id) values(?,?,?,?)`)
	if err != nil {
		log.Printf("archive: prepare: %v", err)
		_ = tx.Rollback()
		return
	}
	for _, e := range batch {
		if _, err := stmt.Exec(e.Time.UTC().Unix(), e.Key.String(), string(e.Type), e.RunID); err != nil {
			log.Printf("archive: insert failed: %v", err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		log.Printf("archive: commit: %v", err)
	}
}

func (w *Writer) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.cleanupOnce(time.Now().UTC())
		}
	}
}

func (w *Writer) cleanupOnce(now time.Time) {
	cutoff := now.AddDate(0, 0, -w.cfg.RetentionDays).Unix()
	if _, err := w.db.Exec(`delete from events where ts < ?`, cutoff); err != nil {
		log.Printf("archive: cleanup: %v", err)
	}
}

func ensureSchema(db *sql.DB) error {
	schema := `
	create table if not exists events (
		id integer primary key autoincrement,
		ts integer,
		asset_key text,
		event_type text,
		run_id text
	);
	create index if not exists idx_events_ts on events(ts);
	create index if not exists idx_events_key_ts on events(asset_key, ts);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("archive: schema: %w", err)
	}
	return nil
}

// Recent returns the most recent N events, newest-first, optionally filtered
// by asset key ("" means all assets). Read-only so the events page can show
// history without depending on the in-memory buffer.
func (w *Writer) Recent(assetKey string, limit int) ([]push.Event, error) {
	if w == nil || w.db == nil {
		return nil, fmt.Errorf("archive: writer is nil")
	}
	if limit <= 0 {
		return []push.Event{}, nil
	}
	query := `select ts, asset_key, event_type, run_id from events order by ts desc limit ?`
	args := []any{limit}
	if assetKey != "" {
		query = `select ts, asset_key, event_type, run_id from events where asset_key = ? order by ts desc limit ?`
		args = []any{assetKey, limit}
	}
	rows, err := w.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: query recent: %w", err)
	}
	defer rows.Close()

	results := make([]push.Event, 0, limit)
	for rows.Next() {
		var (
			ts        int64
			key       string
			eventType string
			runID     string
		)
		if err := rows.Scan(&ts, &key, &eventType, &runID); err != nil {
			return nil, fmt.Errorf("archive: scan recent: %w", err)
		}
		results = append(results, push.Event{
			Key:   splitKey(key),
			Type:  push.EventType(eventType),
			RunID: runID,
			Time:  time.Unix(ts, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate recent: %w", err)
	}
	return results, nil
}

func splitKey(joined string) asset.Key {
	if joined == "" {
		return nil
	}
	return asset.Key(strings.Split(joined, "/"))
}
