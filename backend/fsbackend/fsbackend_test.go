package fsbackend_test

import (
	"testing"

	"github.com/mycroft/mg/backend/fsbackend"
	"github.com/mycroft/mg/internal/gitpath"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *fsbackend.Backend {
	t.Helper()
	fs := afero.NewMemMapFs()
	b := fsbackend.New(fs, ".git")
	require.NoError(t, b.Init())
	return b
}

func TestInitCreatesLayout(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	b := fsbackend.New(fs, ".git")
	require.NoError(t, b.Init())
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	exists, err := afero.DirExists(fs, ".git/"+gitpath.ObjectsPath)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = afero.Exists(fs, ".git/"+gitpath.ConfigPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	cfg, err := b.Config()
	require.NoError(t, err)
	assert.False(t, cfg.Bool("core", "bare", true))
}
