package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullIncludesAppNameAndCommit(t *testing.T) {
	full := Full()
	assert.True(t, strings.HasPrefix(full, AppName+"/"))
	assert.Contains(t, full, GitCommit)
}

func TestGitCommitDefaultsToDevUnderGoTest(t *testing.T) {
	// go test binaries don't carry vcs.revision build settings, so the
	// package-level GitCommit falls back to "dev".
	assert.Equal(t, "dev", GitCommit)
}
