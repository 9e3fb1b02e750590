package crawler

import "strings"

// checkMap reports whether a match was played on the configured map.
func checkMap(matchMapID, configuredMapID int) bool {
	return matchMapID == configuredMapID
}

// checkMinimumPatch compares a match's game version against a fixed
// minimum patch, lexicographically on the version string truncated to
// major.minor. Not semver; "5.9" > "5.10" here. An empty minimumPatch
// always passes.
func checkMinimumPatch(gameVersion, minimumPatch string) bool {
	if minimumPatch == "" {
		return true
	}
	return majorMinor(gameVersion) >= majorMinor(minimumPatch)
}

// patchAllowed is the delivery gate's patch floor. A fixed
// minimum_patch compares directly; "latest" compares against the
// memoized current patch version, so a match played on an older patch
// is rejected until a new patch makes it current again. A failed or
// unconfigured version lookup rejects: without knowing the current
// patch there is no way to tell a current match from a stale one.
func (e *Engine) patchAllowed(gameVersion string) bool {
	if e.cfg.MinimumPatch != "latest" {
		return checkMinimumPatch(gameVersion, e.cfg.MinimumPatch)
	}
	if e.patchFetch == nil {
		return false
	}
	latest, err := e.patchFetch()
	if err != nil {
		return false
	}
	return majorMinor(gameVersion) >= majorMinor(latest)
}

// majorMinor truncates a "major.minor.patch..." version string to its
// first two dot-separated components.
func majorMinor(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) <= 2 {
		return version
	}
	return parts[0] + "." + parts[1]
}
