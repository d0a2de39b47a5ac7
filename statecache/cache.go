// Package statecache persists the last decoded snapshot in a local Pebble
// database so restarts can render known state before the first poll returns.
package statecache

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	jsoniter "github.com/json-iterator/go"

	"assetwatch/config"
	"assetwatch/feed"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	cacheVersion = 1

	entryPrefix = byte('a')

	metaVersion     = "meta|version"
	metaSavedAt     = "meta|saved_at"
	metaGeneratedAt = "meta|generated_at"
)

var (
	entryLower = []byte{entryPrefix}
	entryUpper = []byte{entryPrefix + 1}
)

// Cache is a warm-start store of the last snapshot, one record per asset key.
type Cache struct {
	db    *pebble.DB
	cache *pebble.Cache
	path  string
}

// Open opens (or creates) the cache under cfg.Dir. A version mismatch wipes
// the directory and starts clean; cached state is always rebuildable from the
// next successful poll.
func Open(cfg config.StateCacheConfig) (*Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("state cache dir is empty")
	}

	c, err := open(cfg)
	if err != nil {
		return nil, err
	}
	version, verr := readMetaInt(c.db, metaVersion)
	if verr == nil && version != cacheVersion {
		_ = c.Close()
		if err := os.RemoveAll(cfg.Dir); err != nil {
			return nil, fmt.Errorf("state cache reset: %w", err)
		}
		return open(cfg)
	}
	return c, nil
}

func open(cfg config.StateCacheConfig) (*Cache, error) {
	opts := &pebble.Options{}
	if cfg.CacheMB > 0 {
		opts.Cache = pebble.NewCache(int64(cfg.CacheMB) << 20)
	}
	level := pebble.LevelOptions{
		FilterPolicy: bloom.FilterPolicy(10),
		FilterType:   pebble.TableFilter,
	}
	opts.Levels = make([]pebble.LevelOptions, 7)
	for i := range opts.Levels {
		opts.Levels[i] = level
	}
	db, err := pebble.Open(cfg.Dir, opts)
	if err != nil {
		if opts.Cache != nil {
			opts.Cache.Unref()
		}
		return nil, fmt.Errorf("state cache open: %w", err)
	}
	return &Cache{db: db, cache: opts.Cache, path: cfg.Dir}, nil
}

// Close releases Pebble resources.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	if c.cache != nil {
		c.cache.Unref()
	}
	return nil
}

// Save replaces the cached snapshot with snap. Stale entries from previous
// snapshots are deleted so removed assets do not resurrect on restart.
func (c *Cache) Save(snap feed.Snapshot) error {
	if c == nil || c.db == nil {
		return nil
	}
	batch := c.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(entryLower, entryUpper, pebble.NoSync); err != nil {
		return err
	}
	for _, entry := range snap.Entries {
		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("state cache encode %s: %w", entry.Definition.Key, err)
		}
		if err := batch.Set(entryKey(entry.Definition.Key.String()), value, pebble.NoSync); err != nil {
			return err
		}
	}
	if err := batch.Set([]byte(metaVersion), []byte(fmt.Sprintf("%d", cacheVersion)), pebble.NoSync); err != nil {
		return err
	}
	if err := batch.Set([]byte(metaSavedAt), []byte(fmt.Sprintf("%d", time.Now().UTC().Unix())), pebble.NoSync); err != nil {
		return err
	}
	if !snap.GeneratedAt.IsZero() {
		if err := batch.Set([]byte(metaGeneratedAt), []byte(fmt.Sprintf("%d", snap.GeneratedAt.Unix())), pebble.NoSync); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// Load reads the cached snapshot back. The bool reports whether any entries
// were present; decode failures on individual records skip the record.
func (c *Cache) Load() (feed.Snapshot, bool) {
	if c == nil || c.db == nil {
		return feed.Snapshot{}, false
	}
	var snap feed.Snapshot
	if data, closer, err := c.db.Get([]byte(metaGeneratedAt)); err == nil {
		var unix int64
		if _, err := fmt.Sscanf(string(data), "%d", &unix); err == nil && unix > 0 {
			snap.GeneratedAt = time.Unix(unix, 0).UTC()
		}
		_ = closer.Close()
	}

	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: entryLower,
		UpperBound: entryUpper,
	})
	if err != nil {
		return feed.Snapshot{}, false
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var entry feed.Entry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue
		}
		if len(entry.Definition.Key) == 0 {
			continue
		}
		snap.Entries = append(snap.Entries, entry)
	}
	if err := iter.Error(); err != nil {
		return feed.Snapshot{}, false
	}
	return snap, len(snap.Entries) > 0
}

// SavedAt reports when the cache was last written.
func (c *Cache) SavedAt() (time.Time, bool) {
	if c == nil || c.db == nil {
		return time.Time{}, false
	}
	data, closer, err := c.db.Get([]byte(metaSavedAt))
	if err != nil {
		return time.Time{}, false
	}
	defer closer.Close()
	var unix int64
	if _, err := fmt.Sscanf(string(data), "%d", &unix); err != nil || unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0).UTC(), true
}

func entryKey(joined string) []byte {
	key := make([]byte, 0, len(joined)+1)
	key = append(key, entryPrefix)
	return append(key, joined...)
}

func readMetaInt(db *pebble.DB, key string) (int, error) {
	data, closer, err := db.Get([]byte(key))
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	var value int
	if _, err := fmt.Sscanf(string(data), "%d", &value); err != nil {
		return 0, err
	}
	return value, nil
}
