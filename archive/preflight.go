package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
)

// preflight runs a bounded WAL checkpoint + quick_check before the main open
// path. A database that fails either check is renamed to a timestamped
// quarantine path so startup continues with a fresh file instead of stalling
// on corruption. Best effort: the archive is an optional layer and a failed
// preflight never aborts startup.
func preflight(path string, timeout time.Duration, logf func(string, ...any)) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		// Nothing to check; the writer will create the database.
		return
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logf("archive: preflight open: %v", err)
		return
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, checkpointErr := db.ExecContext(ctx, "pragma wal_checkpoint(TRUNCATE)")
	checkErr := quickCheck(ctx, db)
	_ = db.Close()

	if checkpointErr == nil && checkErr == nil {
		return
	}
	quarantined, err := quarantine(path)
	if err != nil {
		logf("archive: preflight quarantine failed: %v (checkpoint=%v, quick_check=%v)", err, checkpointErr, checkErr)
		return
	}
	logf("archive: preflight failed (checkpoint=%v, quick_check=%v); quarantined to %s", checkpointErr, checkErr, quarantined)
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if scanErr := rows.Scan(&status); scanErr != nil {
			return scanErr
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

// quarantine renames the database and its sidecar files out of the way.
func quarantine(path string) (string, error) {
	ts := time.Now().UTC().Format("20060102T150405Z")
	dest := fmt.Sprintf("%s.bad-%s", path, ts)
	for _, sidecar := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if _, err := os.Stat(sidecar); err != nil {
			continue
		}
		if err := os.Rename(sidecar, sidecar+".bad-"+ts); err != nil {
			return "", err
		}
	}
	return dest, nil
}
