package fsbackend_test

import (
	"testing"

	"github.com/mycroft/mg/ginternals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexEmptyByDefault(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	idx, err := b.Index()
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)
}

func TestWriteIndexThenReadBack(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid, err := ginternals.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)

	idx := ginternals.NewIndex()
	idx.Add(ginternals.IndexEntry{Mode: 0o100644, Size: 6, SHA1: oid, Path: "hello.txt"})
	require.NoError(t, b.WriteIndex(idx))

	got, err := b.Index()
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "hello.txt", got.Entries[0].Path)
	assert.Equal(t, oid, got.Entries[0].SHA1)
}
