package mg_test

import (
	"testing"

	mg "github.com/mycroft/mg"
	"github.com/mycroft/mg/backend/fsbackend"
	"github.com/mycroft/mg/ginternals"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommitTestRepo(t *testing.T) (*mg.Repository, afero.Fs) {
	t.Helper()
	wt := afero.NewMemMapFs()
	be := fsbackend.New(wt, "/repo/.git")
	r, err := mg.InitRepositoryWithOptions("/repo", mg.InitOptions{Backend: be, WorkingTree: wt})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })
	return r, wt
}

func TestCommitFirstHasNoParent(t *testing.T) {
	t.Parallel()

	r, wt := newCommitTestRepo(t)
	require.NoError(t, afero.WriteFile(wt, "/repo/a.txt", []byte("one"), 0o644))

	commit, err := r.Commit("initial commit")
	require.NoError(t, err)
	assert.False(t, commit.HasParent())

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	current, err := r.CurrentCommit()
	require.NoError(t, err)
	assert.Equal(t, commit.ID(), current.ID())
}

func TestCommitSecondHasParent(t *testing.T) {
	t.Parallel()

	r, wt := newCommitTestRepo(t)

	require.NoError(t, afero.WriteFile(wt, "/repo/a.txt", []byte("one"), 0o644))
	first, err := r.Commit("first")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(wt, "/repo/a.txt", []byte("two"), 0o644))
	second, err := r.Commit("second")
	require.NoError(t, err)

	assert.True(t, second.HasParent())
	assert.Equal(t, first.ID(), second.ParentID())
}

func TestCommitUnchangedTreeStillCommits(t *testing.T) {
	t.Parallel()

	r, wt := newCommitTestRepo(t)

	require.NoError(t, afero.WriteFile(wt, "/repo/a.txt", []byte("one"), 0o644))
	first, err := r.Commit("first")
	require.NoError(t, err)

	second, err := r.Commit("again, unchanged")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, first.TreeID(), second.TreeID())
	assert.True(t, second.HasParent())
	assert.Equal(t, first.ID(), second.ParentID())
}

func TestLogWalksFullChain(t *testing.T) {
	t.Parallel()

	r, wt := newCommitTestRepo(t)

	require.NoError(t, afero.WriteFile(wt, "/repo/a.txt", []byte("one"), 0o644))
	c1, err := r.Commit("first")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(wt, "/repo/a.txt", []byte("two"), 0o644))
	c2, err := r.Commit("second")
	require.NoError(t, err)

	log, err := r.Log()
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, c2.ID(), log[0].ID())
	assert.Equal(t, c1.ID(), log[1].ID())
}

func TestLogEmptyRepoReturnsNil(t *testing.T) {
	t.Parallel()

	r, _ := newCommitTestRepo(t)
	log, err := r.Log()
	require.NoError(t, err)
	assert.Nil(t, log)
}

func TestCurrentBranchBeforeAnyCommit(t *testing.T) {
	t.Parallel()

	r, _ := newCommitTestRepo(t)
	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	_, err = r.CurrentCommit()
	assert.ErrorIs(t, err, ginternals.ErrRefNotFound)
}
