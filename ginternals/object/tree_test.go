package object_test

import (
	"testing"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	t.Parallel()

	t.Run("round trips through ToObject/NewTreeFromObject", func(t *testing.T) {
		t.Parallel()

		blobID := object.New(object.TypeBlob, []byte("hello\n")).ID()
		tree := object.NewTree([]object.TreeEntry{
			{Path: "hello.txt", ID: blobID, Mode: object.ModeFile},
		})

		parsed, err := object.NewTreeFromObject(tree.ToObject())
		require.NoError(t, err)
		entries := parsed.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "hello.txt", entries[0].Path)
		assert.Equal(t, blobID, entries[0].ID)
		assert.Equal(t, object.ModeFile, entries[0].Mode)
	})

	t.Run("entries are sorted by path regardless of construction order", func(t *testing.T) {
		t.Parallel()

		id := ginternals.NullOid
		tree := object.NewTree([]object.TreeEntry{
			{Path: "zzz", ID: id, Mode: object.ModeFile},
			{Path: "aaa", ID: id, Mode: object.ModeFile},
		})

		entries := tree.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "aaa", entries[0].Path)
		assert.Equal(t, "zzz", entries[1].Path)
	})

	t.Run("directory mode renders without a leading zero", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "40000", object.ModeDirectory.String())
	})

	t.Run("single-file tree matches the documented example", func(t *testing.T) {
		t.Parallel()

		blob := object.New(object.TypeBlob, []byte("hello\n"))
		tree := object.NewTree([]object.TreeEntry{
			{Path: "hello.txt", ID: blob.ID(), Mode: object.ModeFile},
		})

		raw := tree.ToObject().Bytes()
		expected := append([]byte("100644 hello.txt\x00"), blob.ID().Bytes()...)
		assert.Equal(t, expected, raw)
	})
}

func TestParseTreeObjectMode(t *testing.T) {
	t.Parallel()

	m, err := object.ParseTreeObjectMode("40000")
	require.NoError(t, err)
	assert.Equal(t, object.ModeDirectory, m)

	_, err = object.ParseTreeObjectMode("999999")
	assert.Error(t, err)
}
