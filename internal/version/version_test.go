package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	origV, origC, origT := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = origV, origC, origT })

	Version, GitCommit = "v1.2.0", "unknown"
	require.Equal(t, "texbuilder v1.2.0", String())

	GitCommit, BuildTime = "abc123", "2026-01-01"
	require.Equal(t, "texbuilder v1.2.0 (abc123, built 2026-01-01)", String())
}
