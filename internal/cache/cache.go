package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"

	"github.com/panbanda/sceneprobe/pkg/analyzer/resolver"
)

// formatVersion is bumped whenever the stored entry layout changes.
const formatVersion = 1

// Cache stores identifier indexes on disk, one entry per project.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is the stored form of one project's identifier index.
type Entry struct {
	Version     int              `json:"version"`
	Project     string           `json:"project"`
	Fingerprint string           `json:"fingerprint"`
	Timestamp   time.Time        `json:"timestamp"`
	Index       []resolver.Entry `json:"index"`
}

// New creates a new cache instance.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Fingerprint summarizes the state of a set of sidecar files: their paths,
// sizes and modification times, and whether the asset each one describes
// exists. Any change to a sidecar or its asset changes the fingerprint.
func Fingerprint(metaFiles []string, metaSuffix string) string {
	sorted := make([]string, len(metaFiles))
	copy(sorted, metaFiles)
	sort.Strings(sorted)

	d := xxhash.New()
	buf := make([]byte, 0, 256)
	for _, path := range sorted {
		buf = append(buf[:0], path...)
		buf = append(buf, 0)
		if info, err := os.Stat(path); err == nil {
			buf = strconv.AppendInt(buf, info.Size(), 10)
			buf = append(buf, ':')
			buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 10)
		} else {
			buf = append(buf, '-')
		}
		if info, err := os.Stat(resolver.TrimSuffixFold(path, metaSuffix)); err == nil && info.Mode().IsRegular() {
			buf = append(buf, "+a"...)
		}
		buf = append(buf, '\n')
		_, _ = d.Write(buf)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// GetIndex returns the cached index of project if its fingerprint still
// matches and it has not expired.
func (c *Cache) GetIndex(project, fingerprint string) (*resolver.Index, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(project)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Version != formatVersion || entry.Project != project || entry.Fingerprint != fingerprint {
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		os.Remove(path)
		return nil, false
	}

	return resolver.FromEntries(entry.Index), true
}

// SetIndex stores the index of project under fingerprint.
func (c *Cache) SetIndex(project, fingerprint string, idx *resolver.Index) error {
	if !c.enabled {
		return nil
	}

	entry := Entry{
		Version:     formatVersion,
		Project:     project,
		Fingerprint: fingerprint,
		Timestamp:   time.Now(),
		Index:       idx.Entries(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := c.keyPath(project)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Invalidate removes the entry of project.
func (c *Cache) Invalidate(project string) error {
	if !c.enabled {
		return nil
	}
	err := os.Remove(c.keyPath(project))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a project root to an entry file path.
func (c *Cache) keyPath(project string) string {
	return filepath.Join(c.dir, HashBytes([]byte(project))+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
