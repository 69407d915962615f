package cache

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileCache keeps one JSON record per key below a directory. Record files
// are named by the SHA-256 of the key and fanned out into two-character
// subdirectories. Several pagefit processes may share one directory.
type FileCache struct {
	dir string
	now func() time.Time
}

// NewFileCache creates a file-based cache in dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

// record is the on-disk form of one entry. Key is kept so a record that was
// copied or edited under another name reads as a miss.
type record struct {
	Key      string    `json:"key"`
	StoredAt time.Time `json:"stored_at"`
	Expires  time.Time `json:"expires,omitzero"`
	Data     []byte    `json:"data"`
}

func (r record) expired(now time.Time) bool {
	return !r.Expires.IsZero() && now.After(r.Expires)
}

// Stats summarizes the records in a cache directory.
type Stats struct {
	Entries int
	Bytes   int64
	Oldest  time.Time // zero when the cache is empty
}

// Dir returns the cache root.
func (c *FileCache) Dir() string { return c.dir }

// Get returns the record stored under key. Unreadable, foreign or expired
// records are deleted and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	rec, err := readRecord(path)
	switch {
	case os.IsNotExist(err):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case rec == nil || rec.Key != key || rec.expired(c.now()):
		_ = os.Remove(path)
		return nil, false, nil
	}
	return rec.Data, true, nil
}

// Set writes the record for key. The record is written to a temporary file
// and renamed into place.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	rec := record{Key: key, StoredAt: c.now().UTC(), Data: data}
	if ttl > 0 {
		rec.Expires = rec.StoredAt.Add(ttl)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	path := c.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the record for key. A missing record is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes every record and returns how many were deleted.
func (c *FileCache) Clear() (int, error) {
	removed := 0
	err := c.walk(func(path string, _ fs.FileInfo) error {
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	c.pruneDirs()
	return removed, err
}

// Stats counts the records on disk. Size is the size of the record files;
// the oldest store time comes from the records themselves.
func (c *FileCache) Stats() (Stats, error) {
	var s Stats
	err := c.walk(func(path string, info fs.FileInfo) error {
		s.Entries++
		s.Bytes += info.Size()
		if rec, err := readRecord(path); err == nil && rec != nil {
			if s.Oldest.IsZero() || rec.StoredAt.Before(s.Oldest) {
				s.Oldest = rec.StoredAt
			}
		}
		return nil
	})
	return s, err
}

// Close is a no-op.
func (c *FileCache) Close() error { return nil }

// readRecord returns a nil record without error when the file is not a
// valid record.
func readRecord(path string) (*record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec record
	if json.Unmarshal(raw, &rec) != nil || rec.Key == "" {
		return nil, nil
	}
	return &rec, nil
}

// walk visits every record file below the fan-out directories.
func (c *FileCache) walk(fn func(path string, info fs.FileInfo) error) error {
	subs, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if !sub.IsDir() || len(sub.Name()) != 2 {
			continue
		}
		dir := filepath.Join(c.dir, sub.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			if err := fn(filepath.Join(dir, f.Name()), info); err != nil {
				return err
			}
		}
	}
	return nil
}

// pruneDirs removes empty fan-out directories.
func (c *FileCache) pruneDirs() {
	subs, _ := os.ReadDir(c.dir)
	for _, sub := range subs {
		if sub.IsDir() && len(sub.Name()) == 2 {
			_ = os.Remove(filepath.Join(c.dir, sub.Name()))
		}
	}
}

func (c *FileCache) path(key string) string {
	name := Hash([]byte(key))
	return filepath.Join(c.dir, name[:2], name[2:]+".json")
}

var _ Cache = (*FileCache)(nil)
