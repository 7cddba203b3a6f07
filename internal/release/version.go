package release

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var versionPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)$`)

// ValidateVersion accepts X.Y.Z with an optional leading v and returns the
// tag (vX.Y.Z) and the bare version.
func ValidateVersion(raw string) (tag, version string, err error) {
	version = strings.TrimPrefix(strings.TrimSpace(raw), "v")
	if !versionPattern.MatchString(version) {
		return "", "", fmt.Errorf("invalid version %q: expected X.Y.Z, e.g. 1.2.0", raw)
	}
	return "v" + version, version, nil
}

// IsReleaseTag reports whether name is a vX.Y.Z tag.
func IsReleaseTag(name string) bool {
	return strings.HasPrefix(name, "v") && versionPattern.MatchString(name[1:])
}

// compareTags orders release tags by semantic version.
func compareTags(a, b string) int {
	return semver.Compare(a, b)
}
