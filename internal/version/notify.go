package version

import (
	"fmt"
	"time"
)

// Banner returns a short upgrade notice when a newer release is known, or
// "" when up to date, running an unreleased build, or the check failed.
// The cached result is reused for cacheTTL so most runs never touch the
// network.
func Banner(currentVersion string) string {
	if IsDevelopmentVersion(currentVersion) {
		return ""
	}

	if cached, err := LoadCache(); err == nil && IsCacheValid(cached, currentVersion) {
		if cached.HasUpdate {
			return banner(cached.LatestVersion)
		}
		return ""
	}

	result := Check(currentVersion)
	if result.Error != nil {
		return ""
	}

	// Only cache successful checks (don't cache network errors)
	_ = SaveCache(&CacheEntry{
		LatestVersion:  result.LatestVersion,
		CurrentVersion: currentVersion,
		CheckedAt:      time.Now(),
		HasUpdate:      result.HasUpdate,
	})

	if result.HasUpdate {
		return banner(result.LatestVersion)
	}
	return ""
}

func banner(latest string) string {
	s := fmt.Sprintf("A new release of %s is available: %s", repoName, latest)
	if cmd := UpdateCommand(latest); cmd != "" {
		s += "\n  " + cmd
	}
	return s
}
