package object_test

import (
	"strings"
	"testing"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit(t *testing.T) {
	t.Parallel()

	treeID := object.New(object.TypeTree, []byte{}).ID()

	t.Run("first commit of a branch has no parent line", func(t *testing.T) {
		t.Parallel()

		c := object.NewCommit(treeID, ginternals.NullOid, "init\n")
		raw := string(c.ToObject().Bytes())
		assert.False(t, strings.Contains(raw, "parent "))
		assert.True(t, strings.HasPrefix(raw, "tree "+treeID.String()+"\n\ninit\n"))
	})

	t.Run("second commit carries exactly one parent line", func(t *testing.T) {
		t.Parallel()

		first := object.NewCommit(treeID, ginternals.NullOid, "init\n")
		second := object.NewCommit(treeID, first.ID(), "x\n")

		parsed, err := object.NewCommitFromObject(second.ToObject())
		require.NoError(t, err)
		assert.True(t, parsed.HasParent())
		assert.Equal(t, first.ID(), parsed.ParentID())
		assert.Equal(t, treeID, parsed.TreeID())
		assert.Equal(t, "x\n", parsed.Message())
	})

	t.Run("parsing a non-commit object fails", func(t *testing.T) {
		t.Parallel()

		_, err := object.NewCommitFromObject(object.New(object.TypeBlob, []byte("nope")))
		assert.ErrorIs(t, err, object.ErrObjectInvalid)
	})

	t.Run("a commit missing its tree line is invalid", func(t *testing.T) {
		t.Parallel()

		raw := object.New(object.TypeCommit, []byte("\nmessage\n"))
		_, err := object.NewCommitFromObject(raw)
		assert.ErrorIs(t, err, object.ErrCommitInvalid)
	})
}
