// Package cache implements the disk cache (spec §4.1): a persisted map
// from CacheKey to a readable file path, with LRU eviction under a byte
// budget and crash-safe atomic index writes. Grounded on the teacher's
// internal/playlist/store.go (atomic temp-file-plus-rename JSON writer)
// and the go-musicfox track cacher (prune-by-last-access, glob-free since
// we key by exact file name here).
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sorairo/resonance/internal/apperr"
	"github.com/sorairo/resonance/internal/domain"
)

// indexVersion is bumped whenever the on-disk naming scheme changes. A
// version mismatch wipes the cache directory.
const indexVersion uint32 = 1

// Entry is the persisted record for one cached file.
type Entry struct {
	FileName     string `json:"file_name"`
	SizeBytes    uint64 `json:"size_bytes"`
	LastAccessMs uint64 `json:"last_access_ms"`
}

// index is the on-disk JSON document.
type index struct {
	Version uint32           `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// NowFunc returns the current time in milliseconds since epoch. Injectable
// so LRU ordering is testable without a real clock (spec §9 design note).
type NowFunc func() uint64

func defaultNow() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Cache is the disk cache. All mutations are serialized by the caller (the
// transfer actor owns it exclusively, per spec §5).
type Cache struct {
	mu       sync.Mutex
	dir      string
	maxBytes uint64
	now      NowFunc

	idx   index
	dirty bool
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithNowFunc overrides the clock used for last-access timestamps.
func WithNowFunc(now NowFunc) Option {
	return func(c *Cache) { c.now = now }
}

// Open creates (if needed) the cache directory and loads its index. On a
// version mismatch the directory is purged and a fresh index is written.
func Open(dir string, maxBytes uint64, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", dir, err)
	}

	c := &Cache{
		dir:      dir,
		maxBytes: maxBytes,
		now:      defaultNow,
		idx:      index{Version: indexVersion, Entries: make(map[string]Entry)},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

// load reads index.json, wiping the directory on a version mismatch. A
// missing, unreadable or corrupt index is replaced by an empty one and
// the directory is left as it is (spec: "Loss of the index file recreates
// an empty index").
func (c *Cache) load() error {
	raw, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return c.persistLocked()
		}
		slog.Warn("Cache index unreadable, starting fresh", "error", err)
		return c.persistLocked()
	}

	var loaded index
	if err := json.Unmarshal(raw, &loaded); err != nil {
		slog.Warn("Cache index corrupt, starting fresh", "error", err)
		return c.persistLocked()
	}

	if loaded.Version != indexVersion {
		slog.Info("Cache index version mismatch, purging cache directory",
			"stored_version", loaded.Version, "expected_version", indexVersion)
		if err := c.wipeDirectory(); err != nil {
			return err
		}
		return c.persistLocked()
	}

	if loaded.Entries == nil {
		loaded.Entries = make(map[string]Entry)
	}
	c.idx = loaded
	return nil
}

// wipeDirectory deletes every regular file in the cache directory except
// index.json, which is rewritten separately.
func (c *Cache) wipeDirectory() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == "index.json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			slog.Warn("Failed to remove stale cache file during wipe", "file", e.Name(), "error", err)
		}
	}
	c.idx = index{Version: indexVersion, Entries: make(map[string]Entry)}
	return nil
}

// persistLocked writes the index to disk atomically. Caller must hold c.mu.
func (c *Cache) persistLocked() error {
	data, err := json.MarshalIndent(c.idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "index-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp index file: %w", err)
	}

	if err := os.Rename(tmpName, c.indexPath()); err != nil {
		// Some platforms reject renaming onto an existing file; fall back to
		// delete-then-rename (spec §4.1 persistence).
		if remErr := os.Remove(c.indexPath()); remErr == nil {
			if err2 := os.Rename(tmpName, c.indexPath()); err2 == nil {
				c.dirty = false
				return nil
			}
		}
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp index file: %w", err)
	}

	c.dirty = false
	return nil
}

// Flush forces a persist if the index is dirty (spec: "On graceful
// shutdown the dirty flag is flushed").
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.persistLocked()
}

// Lookup returns the path for key if its file exists on disk, bumping
// last_access_ms. A stale index entry (file missing) is removed. lookup
// may defer persistence (only marks dirty).
func (c *Cache) Lookup(key domain.CacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	entry, ok := c.idx.Entries[k]
	if !ok {
		return "", false
	}

	path := filepath.Join(c.dir, entry.FileName)
	if _, err := os.Stat(path); err != nil {
		delete(c.idx.Entries, k)
		c.dirty = true
		return "", false
	}

	entry.LastAccessMs = c.now()
	c.idx.Entries[k] = entry
	c.dirty = true
	return path, true
}

// Commit atomically moves tmpPath into the cache directory under key's
// canonical name, overwriting any prior file for that key, runs eviction
// (protecting the just-committed file), and persists synchronously.
func (c *Cache) Commit(key domain.CacheKey, tmpPath string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(tmpPath)
	if err != nil {
		return "", apperr.Cache("stat temp file before commit", err)
	}

	dest := filepath.Join(c.dir, key.FileName())
	if err := renameOverwrite(tmpPath, dest); err != nil {
		return "", apperr.Cache(fmt.Sprintf("commit %s", key), err)
	}

	c.idx.Entries[key.String()] = Entry{
		FileName:     key.FileName(),
		SizeBytes:    uint64(info.Size()),
		LastAccessMs: c.now(),
	}

	c.evictLocked(dest)

	if err := c.persistLocked(); err != nil {
		return "", apperr.Cache("persist index after commit", err)
	}
	return dest, nil
}

// renameOverwrite renames src to dest, falling back to delete-then-rename
// on platforms that reject renaming onto an existing file.
func renameOverwrite(src, dest string) error {
	if err := os.Rename(src, dest); err != nil {
		if remErr := os.Remove(dest); remErr == nil {
			return os.Rename(src, dest)
		}
		return err
	}
	return nil
}

// Invalidate removes the file and entry for key and persists.
func (c *Cache) Invalidate(key domain.CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeEntryLocked(key.String())
	if err := c.persistLocked(); err != nil {
		slog.Error("Failed to persist cache index after invalidate", "error", err)
	}
}

func (c *Cache) removeEntryLocked(k string) {
	entry, ok := c.idx.Entries[k]
	if !ok {
		return
	}
	path := filepath.Join(c.dir, entry.FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove cache file", "path", path, "error", err)
	}
	delete(c.idx.Entries, k)
}

// ClearAll deletes every regular file in the directory except the index
// and the optional retained path (typically the currently playing file).
// Returns the number of files removed and total bytes freed.
func (c *Cache) ClearAll(keep string) (files int, bytes uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		slog.Error("Failed to list cache directory for ClearAll", "error", err)
		return 0, 0
	}

	keepBase := ""
	if keep != "" {
		keepBase = filepath.Base(keep)
	}

	for _, e := range entries {
		if e.IsDir() || e.Name() == "index.json" || e.Name() == keepBase {
			continue
		}
		info, statErr := e.Info()
		path := filepath.Join(c.dir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to remove cache file during ClearAll", "path", path, "error", err)
			continue
		}
		files++
		if statErr == nil {
			bytes += uint64(info.Size())
		}
	}

	retained := make(map[string]Entry)
	if keepBase != "" {
		for k, e := range c.idx.Entries {
			if e.FileName == keepBase {
				retained[k] = e
			}
		}
	}
	c.idx.Entries = retained

	if err := c.persistLocked(); err != nil {
		slog.Error("Failed to persist cache index after ClearAll", "error", err)
	}
	return files, bytes
}

// PurgeNotBitrate evicts every entry whose bitrate is not b, protecting
// keep.
func (c *Cache) PurgeNotBitrate(b int64, keep string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keepBase := filepath.Base(keep)
	for k, e := range c.idx.Entries {
		if keep != "" && e.FileName == keepBase {
			continue
		}
		if !fileNameHasBitrate(e.FileName, b) {
			c.removeEntryLocked(k)
		}
	}
	if err := c.persistLocked(); err != nil {
		slog.Error("Failed to persist cache index after PurgeNotBitrate", "error", err)
	}
}

// PurgeOtherBitratesOf evicts every entry for trackID except keepBitrate,
// protecting keep.
func (c *Cache) PurgeOtherBitratesOf(trackID, keepBitrate int64, keep string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keepBase := filepath.Base(keep)
	want := domain.CacheKey{TrackID: trackID, Bitrate: keepBitrate}.String()
	prefix := fmt.Sprintf("%d_", trackID)

	for k, e := range c.idx.Entries {
		if k == want {
			continue
		}
		if keep != "" && e.FileName == keepBase {
			continue
		}
		if hasPrefix(k, prefix) {
			c.removeEntryLocked(k)
		}
	}
	if err := c.persistLocked(); err != nil {
		slog.Error("Failed to persist cache index after PurgeOtherBitratesOf", "error", err)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func fileNameHasBitrate(fileName string, b int64) bool {
	suffix := fmt.Sprintf("_%d.bin", b)
	return len(fileName) >= len(suffix) && fileName[len(fileName)-len(suffix):] == suffix
}

// evictLocked garbage-collects entries whose file is missing, then evicts
// by ascending last_access_ms until total size is within budget, always
// protecting keepPath. Caller must hold c.mu.
func (c *Cache) evictLocked(keepPath string) {
	keepBase := ""
	if keepPath != "" {
		keepBase = filepath.Base(keepPath)
	}

	// Garbage-collect entries whose file is missing.
	for k, e := range c.idx.Entries {
		if _, err := os.Stat(filepath.Join(c.dir, e.FileName)); err != nil {
			delete(c.idx.Entries, k)
		}
	}

	var total uint64
	for _, e := range c.idx.Entries {
		total += e.SizeBytes
	}
	if total <= c.maxBytes {
		return
	}

	type kv struct {
		key   string
		entry Entry
	}
	ordered := make([]kv, 0, len(c.idx.Entries))
	for k, e := range c.idx.Entries {
		ordered = append(ordered, kv{k, e})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].entry.LastAccessMs < ordered[j].entry.LastAccessMs
	})

	for _, item := range ordered {
		if total <= c.maxBytes {
			break
		}
		if keepBase != "" && item.entry.FileName == keepBase {
			continue
		}
		path := filepath.Join(c.dir, item.entry.FileName)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to evict cache file", "path", path, "error", err)
			continue
		}
		delete(c.idx.Entries, item.key)
		total -= item.entry.SizeBytes
	}
}

// TotalBytes returns the sum of all entry sizes, for diagnostics/tests.
func (c *Cache) TotalBytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint64
	for _, e := range c.idx.Entries {
		total += e.SizeBytes
	}
	return total
}

// Keys returns a snapshot of the currently indexed keys, for diagnostics.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.idx.Entries))
	for k := range c.idx.Entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }
