package version

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// cacheTTL is how long a check result stands in for a fresh one.
const cacheTTL = 6 * time.Hour

// CacheEntry records the result of the last release check.
type CacheEntry struct {
	LatestVersion  string    `json:"latest_version"`
	CurrentVersion string    `json:"current_version"`
	CheckedAt      time.Time `json:"checked_at"`
	HasUpdate      bool      `json:"has_update"`
}

// cachePath returns ~/.config/rbx-configs/version-check.json, or "" when
// the home directory is unknown.
func cachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "rbx-configs", "version-check.json")
}

// LoadCache reads the previous check result.
func LoadCache() (*CacheEntry, error) {
	path := cachePath()
	if path == "" {
		return nil, errors.New("no home directory")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveCache writes the check result, creating the directory if needed.
func SaveCache(entry *CacheEntry) error {
	path := cachePath()
	if path == "" {
		return errors.New("no home directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IsCacheValid reports whether a cached result can stand in for a fresh
// check: same binary version, checked within the TTL.
func IsCacheValid(entry *CacheEntry, currentVersion string) bool {
	if entry == nil {
		return false
	}
	if entry.CurrentVersion != currentVersion {
		return false
	}
	return time.Since(entry.CheckedAt) < cacheTTL
}
