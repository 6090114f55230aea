package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ResponseCache is a disk-backed key -> {timestamp, data} store with a
// fixed TTL. It shields the rate-limited upstream APIs from repeat calls
// made by the bulk aggregation routines. The cache is a pure
// optimization: every read or write failure is logged and treated as a
// miss, never surfaced to the caller.
type ResponseCache struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
	log *slog.Logger
	now func() time.Time
}

// envelope is the on-disk shape, one JSON file per key.
type envelope struct {
	Timestamp int64           `json:"timestamp"` // epoch millis
	Data      json.RawMessage `json:"data"`
}

// New creates a cache rooted at dir on the real filesystem.
func New(dir string, ttlHours int) *ResponseCache {
	return NewWithFs(afero.NewOsFs(), dir, ttlHours)
}

// NewWithFs creates a cache on the given filesystem. Tests use a MemMapFs.
func NewWithFs(fs afero.Fs, dir string, ttlHours int) *ResponseCache {
	return &ResponseCache{
		fs:  fs,
		dir: dir,
		ttl: time.Duration(ttlHours) * time.Hour,
		log: slog.Default().With("component", "cache"),
		now: time.Now,
	}
}

// Get reads the entry for key into v. Returns false on a miss, an
// expired entry, or any IO/decode failure. Stale files are left in
// place; the next Set overwrites them.
func (c *ResponseCache) Get(key string, v interface{}) bool {
	if key == "" {
		return false
	}
	raw, err := afero.ReadFile(c.fs, c.path(key))
	if err != nil {
		return false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return false
	}
	age := c.now().Sub(time.UnixMilli(env.Timestamp))
	if age >= c.ttl {
		return false
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		c.log.Warn("cache payload does not match requested shape", "key", key, "error", err)
		return false
	}
	return true
}

// Set writes {timestamp: now, data: v} for key, overwriting any previous
// entry. Failures are logged and swallowed.
func (c *ResponseCache) Set(key string, v interface{}) {
	if key == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("failed to encode cache payload", "key", key, "error", err)
		return
	}
	raw, err := json.Marshal(envelope{Timestamp: c.now().UnixMilli(), Data: data})
	if err != nil {
		c.log.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		c.log.Warn("failed to create cache dir", "dir", c.dir, "error", err)
		return
	}
	// Write via tmp+rename so a concurrent reader sees either the old or
	// the new full content.
	path := c.path(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, raw, 0o644); err != nil {
		c.log.Warn("failed to write cache entry", "key", key, "error", err)
		return
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		c.log.Warn("failed to finalize cache entry", "key", key, "error", err)
		_ = c.fs.Remove(tmp)
	}
}

func (c *ResponseCache) path(key string) string {
	return filepath.Join(c.dir, sanitize(key)+".json")
}

// Key derives a deterministic cache key from an adapter name and every
// parameter that affects the result. Call sites must include the page
// number, query text, genre id, etc. to avoid cross-contamination.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// sanitize maps an arbitrary key to a safe filename. Long keys (search
// queries can be anything) are replaced by their hash.
func sanitize(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
	if len(safe) > 100 {
		sum := sha1.Sum([]byte(key))
		return safe[:60] + "_" + hex.EncodeToString(sum[:])
	}
	return safe
}
