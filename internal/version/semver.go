package version

import (
	"strconv"
	"strings"
)

// parseSemver extracts the numeric core of a version string as
// [major, minor, patch]. Prerelease and build metadata are dropped,
// missing parts default to 0, and anything unparseable becomes 0.0.0.
func parseSemver(v string) [3]int {
	v = strings.TrimPrefix(v, "v")

	// Strip build metadata, then the prerelease suffix.
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	if i := strings.IndexByte(v, '-'); i >= 0 {
		v = v[:i]
	}

	var out [3]int
	parts := strings.Split(v, ".")
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return [3]int{}
		}
		out[i] = n
	}
	return out
}

// isNewer reports whether latest's core version is greater than current's.
// Prerelease tags are ignored: v1.0.0-beta and v1.0.0 compare equal.
func isNewer(latest, current string) bool {
	l, c := parseSemver(latest), parseSemver(current)
	for i := 0; i < 3; i++ {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}
