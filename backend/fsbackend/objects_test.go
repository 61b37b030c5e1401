package fsbackend_test

import (
	"testing"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteObjectThenReadBack(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	blob := object.New(object.TypeBlob, []byte("hello\n"))
	oid, err := b.WriteObject(blob)
	require.NoError(t, err)
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", oid.String())

	found, err := b.HasObject(oid)
	require.NoError(t, err)
	assert.True(t, found)

	stored, err := b.Object(oid)
	require.NoError(t, err)
	assert.Equal(t, object.TypeBlob, stored.Type())
	assert.Equal(t, "hello\n", string(stored.Bytes()))
}

func TestWriteObjectIsIdempotent(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	blob := object.New(object.TypeBlob, []byte("same content"))
	oid1, err := b.WriteObject(blob)
	require.NoError(t, err)
	oid2, err := b.WriteObject(blob)
	require.NoError(t, err)
	assert.Equal(t, oid1, oid2)
}

func TestHasObjectUnknown(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid, err := ginternals.NewOidFromStr("0000000000000000000000000000000000000001")
	require.NoError(t, err)

	found, err := b.HasObject(oid)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = b.Object(oid)
	assert.ErrorIs(t, err, ginternals.ErrObjectNotFound)
}

func TestWalkLooseObjectIDs(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid1, err := b.WriteObject(object.New(object.TypeBlob, []byte("a")))
	require.NoError(t, err)
	oid2, err := b.WriteObject(object.New(object.TypeBlob, []byte("b")))
	require.NoError(t, err)

	var seen []ginternals.Oid
	err = b.WalkLooseObjectIDs(func(oid ginternals.Oid) error {
		seen = append(seen, oid)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []ginternals.Oid{oid1, oid2}, seen)
}
