package mg_test

import (
	"testing"

	mg "github.com/mycroft/mg"
	"github.com/mycroft/mg/backend/fsbackend"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *mg.Repository {
	t.Helper()
	wt := afero.NewMemMapFs()
	be := fsbackend.New(wt, "/repo/.git")
	r, err := mg.InitRepositoryWithOptions("/repo", mg.InitOptions{
		Backend:     be,
		WorkingTree: wt,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })
	return r
}

func TestInitRepositoryCreatesHead(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	assert.False(t, r.IsBare())
}

func TestInitRepositoryTwiceFails(t *testing.T) {
	t.Parallel()

	wt := afero.NewMemMapFs()
	be := fsbackend.New(wt, "/repo/.git")
	_, err := mg.InitRepositoryWithOptions("/repo", mg.InitOptions{Backend: be, WorkingTree: wt})
	require.NoError(t, err)

	_, err = mg.InitRepositoryWithOptions("/repo", mg.InitOptions{Backend: be, WorkingTree: wt})
	assert.ErrorIs(t, err, mg.ErrRepositoryExists)
}

func TestInitBareRepositoryHasNoWorkingTree(t *testing.T) {
	t.Parallel()

	be := fsbackend.New(afero.NewMemMapFs(), "/repo.git")
	r, err := mg.InitRepositoryWithOptions("/repo.git", mg.InitOptions{Backend: be, IsBare: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	assert.True(t, r.IsBare())
	_, err = r.WriteTreeFromWorkingTree("")
	assert.Error(t, err)
}

func TestOpenRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	wt := afero.NewMemMapFs()
	be := fsbackend.New(wt, "/repo/.git")
	r, err := mg.InitRepositoryWithOptions("/repo", mg.InitOptions{Backend: be, WorkingTree: wt})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	be2 := fsbackend.New(wt, "/repo/.git")
	r2, err := mg.OpenRepositoryWithOptions("/repo", mg.OpenOptions{Backend: be2, WorkingTree: wt})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r2.Close()) })

	branch, err := r2.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestOpenRepositoryMissingFails(t *testing.T) {
	t.Parallel()

	wt := afero.NewMemMapFs()
	be := fsbackend.New(wt, "/nope/.git")
	_, err := mg.OpenRepositoryWithOptions("/nope", mg.OpenOptions{Backend: be, WorkingTree: wt})
	assert.ErrorIs(t, err, mg.ErrRepositoryNotExist)
}
