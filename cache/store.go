// Package cache persists daemon output as JSON files so that one-shot
// commands (-banner, -png, -health) can read it without a running monitor.
package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Well-known keys.
const (
	// KeyHistory holds the full counter state for restart recovery.
	KeyHistory = "history"
	// KeyFrame holds the most recent rendered frame.
	KeyFrame = "frame"
	// KeyStatus holds the alert status of the most recent tick.
	KeyStatus = "status"
	// KeyHealth holds the daemon heartbeat read by -health.
	KeyHealth = "health"
)

// Store is a flat directory of JSON files, one per key:
//
//	~/.cache/net-meter/
//	  history.json
//	  frame.json
type Store struct {
	dir    string
	logger *slog.Logger
}

// Meta holds last update times and file sizes per key.
type Meta struct {
	LastUpdate map[string]time.Time `json:"last_update"`
	Sizes      map[string]int64     `json:"sizes"`
}

// NewStore creates a store at dir, creating it with 0700 permissions if
// needed. A nil logger discards output.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads a cached value and reports whether it is younger than maxAge.
// A missing key returns nil, false, nil. A file that does not hold valid JSON
// is removed and treated as missing.
func (s *Store) Get(key string, maxAge time.Duration) (json.RawMessage, bool, error) {
	path := s.keyPath(key)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: stat %s: %w", key, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %s: %w", key, err)
	}

	if !json.Valid(data) {
		s.logger.Warn("cache: removing corrupted entry", "key", key)
		_ = os.Remove(path)
		return nil, false, nil
	}

	return json.RawMessage(data), time.Since(info.ModTime()) < maxAge, nil
}

// Set encodes v and replaces the key's file atomically, so a concurrent
// reader sees either the old or the new content.
func (s *Store) Set(key string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	if err := s.writeAtomic(key, encoded); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

func (s *Store) writeAtomic(key string, data []byte) (err error) {
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp for %s: %w", key, err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp for %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", key, err)
	}
	if err = os.Rename(tmpName, s.keyPath(key)); err != nil {
		return fmt.Errorf("rename temp for %s: %w", key, err)
	}
	return nil
}

// GetTyped reads and decodes a cached value. A missing key returns nil. An
// entry that no longer decodes into T is removed and treated as missing.
func GetTyped[T any](s *Store, key string, maxAge time.Duration) (*T, bool, error) {
	raw, fresh, err := s.Get(key, maxAge)
	if err != nil || raw == nil {
		return nil, false, err
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		s.logger.Warn("cache: removing entry with unmarshal error",
			"key", key,
			"error", err,
		)
		_ = os.Remove(s.keyPath(key))
		return nil, false, nil
	}
	return &result, fresh, nil
}

// SetTyped encodes and caches a value of type T.
func SetTyped[T any](s *Store, key string, v *T) error {
	return s.Set(key, v)
}

// Remove deletes a key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: remove %s: %w", key, err)
	}
	return nil
}

// Age returns how old an entry is, or 0 if it does not exist.
func (s *Store) Age(key string) time.Duration {
	info, err := os.Stat(s.keyPath(key))
	if err != nil {
		return 0
	}
	return time.Since(info.ModTime())
}

// Keys returns all cached keys, skipping in-flight temp files.
func (s *Store) Keys() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var keys []string
	for _, e := range entries {
		if key, ok := entryKey(e); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Meta returns last update times and sizes for every key.
func (s *Store) Meta() (*Meta, error) {
	m := &Meta{
		LastUpdate: make(map[string]time.Time),
		Sizes:      make(map[string]int64),
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("cache: meta read dir: %w", err)
	}

	for _, e := range entries {
		key, ok := entryKey(e)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		m.LastUpdate[key] = info.ModTime()
		m.Sizes[key] = info.Size()
	}
	return m, nil
}

// Clear removes every cached key.
func (s *Store) Clear() error {
	for _, key := range s.Keys() {
		if err := s.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

func entryKey(e os.DirEntry) (string, bool) {
	name := e.Name()
	if e.IsDir() || strings.HasPrefix(name, ".tmp-") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}
