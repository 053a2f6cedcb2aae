package fallback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/pkg/logger"
)

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("fallback snapshot not found")

// Snapshot is a cached fetch result persisted to disk. When a live fetch
// fails, the last good snapshot stands in for it.
type Snapshot struct {
	Key     string               `json:"key"`
	SavedAt time.Time            `json:"saved_at"`
	Series  contracts.TimeSeries `json:"series"`
}

// AgeDays returns the snapshot age in whole days as of now, never negative.
// Clock skew can put SavedAt ahead of the caller's clock.
func (s Snapshot) AgeDays(now time.Time) int {
	days := int(now.Sub(s.SavedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Store persists one snapshot per series key under a directory.
type Store struct {
	dir    string
	logger *logger.Logger
}

// NewStore creates a snapshot store rooted at dir. The directory is created
// on first save.
func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{dir: dir, logger: log}
}

// Save writes the series as the snapshot for key, replacing any previous
// one. The write goes through a temp file and rename so a crash never
// leaves a truncated snapshot.
func (s *Store) Save(key string, series contracts.TimeSeries) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir failed: %w", err)
	}

	snap := Snapshot{
		Key:     key,
		SavedAt: time.Now().UTC(),
		Series:  series,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot failed: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"key":   key,
		"count": series.Len(),
	}).Debug("Saved fallback snapshot")
	return nil
}

// Load reads the snapshot for key. Returns ErrNotFound when none exists.
func (s *Store) Load(key string) (Snapshot, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("read snapshot failed: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot failed: %w", err)
	}

	return snap, nil
}

// path maps a series key to its snapshot file. Keys may contain characters
// like "^" that are awkward in filenames.
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
