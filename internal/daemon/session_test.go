package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amux-dev/amux/internal/provider"
	"github.com/amux-dev/amux/internal/ptyproc"
)

func TestGenerateSessionNamePicksBareBranchWhenUnused(t *testing.T) {
	existing := map[string]bool{}
	assert.Equal(t, "feature-x", generateSessionName("feature-x", existing))
}

func TestGenerateSessionNameAppendsCollisionSuffix(t *testing.T) {
	existing := map[string]bool{"feature-x": true}
	assert.Equal(t, "feature-x-2", generateSessionName("feature-x", existing))
}

func TestGenerateSessionNameSkipsToNextFreeSuffix(t *testing.T) {
	existing := map[string]bool{
		"feature-x":   true,
		"feature-x-2": true,
		"feature-x-3": true,
	}
	assert.Equal(t, "feature-x-4", generateSessionName("feature-x", existing))
}

func TestGenerateSessionNameSuffixNotNecessarilyContiguous(t *testing.T) {
	existing := map[string]bool{
		"feature-x":   true,
		"feature-x-2": true,
		"feature-x-4": true,
	}
	assert.Equal(t, "feature-x-3", generateSessionName("feature-x", existing))
}

func TestSortedSessionNamesOnlyCountsMatchingRepo(t *testing.T) {
	sessions := map[string]*Session{
		"a": {RepoID: "repo1", Name: "feature-x"},
		"b": {RepoID: "repo2", Name: "feature-x"},
	}
	names := sortedSessionNames(sessions, "repo1")
	assert.True(t, names["feature-x"])
	assert.Len(t, names, 1)
}

func TestSessionStatusReflectsProcLifecycle(t *testing.T) {
	s := newSession("id1", "repo1", "main", "/tmp/wt", provider.Shell())
	assert.Equal(t, StatusStopped, s.Status())

	proc := &ptyproc.Proc{}
	s.proc = proc
	assert.Equal(t, StatusRunning, s.Status())

	assert.True(t, s.ClearProcIfCurrent(proc))
	assert.Equal(t, StatusStopped, s.Status())
}
