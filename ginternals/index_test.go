package ginternals_test

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // test fixture, format is fixed to SHA-1
	"testing"

	"github.com/mycroft/mg/ginternals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRoundTrip(t *testing.T) {
	t.Parallel()

	idx := ginternals.NewIndex()
	idx.Add(ginternals.IndexEntry{
		Mode: 0o100644,
		Size: 6,
		SHA1: mustOid(t, "ce013625030ba8dba906f756967f9e9ca394464a"),
		Path: "hello.txt",
	})
	idx.Add(ginternals.IndexEntry{
		Mode: 0o100644,
		Size: 3,
		SHA1: mustOid(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"),
		Path: "a/b.txt",
	})

	var buf bytes.Buffer
	require.NoError(t, idx.Write(&buf))

	parsed, err := ginternals.ReadIndex(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 2)
	assert.Equal(t, "a/b.txt", parsed.Entries[0].Path)
	assert.Equal(t, "hello.txt", parsed.Entries[1].Path)

	var buf2 bytes.Buffer
	require.NoError(t, parsed.Write(&buf2))
	assert.Equal(t, buf.Bytes(), buf2.Bytes())
}

func TestIndexRejectsBadMagic(t *testing.T) {
	t.Parallel()

	body := make([]byte, 12)
	sum := sha1.Sum(body) //nolint:gosec // test fixture
	data := append(body, sum[:]...)

	_, err := ginternals.ReadIndex(bytes.NewReader(data))
	assert.ErrorIs(t, err, ginternals.ErrIndexInvalidMagic)
}

func mustOid(t *testing.T, s string) ginternals.Oid {
	t.Helper()
	oid, err := ginternals.NewOidFromStr(s)
	require.NoError(t, err)
	return oid
}
