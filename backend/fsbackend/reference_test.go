package fsbackend_test

import (
	"testing"

	"github.com/mycroft/mg/ginternals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadReference(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid, err := ginternals.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)

	ref := ginternals.NewReference("refs/heads/main", oid)
	require.NoError(t, b.WriteReference(ref))

	got, err := b.Reference("refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, oid, got.Target())
}

func TestSymbolicReferenceResolves(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid, err := ginternals.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)
	require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/main", oid)))
	require.NoError(t, b.WriteReference(ginternals.NewSymbolicReference(ginternals.Head, "refs/heads/main")))

	got, err := b.Reference(ginternals.Head)
	require.NoError(t, err)
	assert.Equal(t, oid, got.Target())
	assert.Equal(t, ginternals.SymbolicReference, got.Type())
}

func TestSymbolicTargetBeforeTargetExists(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	require.NoError(t, b.WriteReference(ginternals.NewSymbolicReference(ginternals.Head, "refs/heads/main")))

	target, err := b.SymbolicTarget(ginternals.Head)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", target)

	_, err = b.Reference(ginternals.Head)
	assert.ErrorIs(t, err, ginternals.ErrRefNotFound)
}

func TestSymbolicTargetRejectsOidReference(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid, err := ginternals.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)
	require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/main", oid)))

	_, err = b.SymbolicTarget("refs/heads/main")
	assert.ErrorIs(t, err, ginternals.ErrRefInvalid)
}

func TestWriteReferenceSafeRejectsExisting(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid, err := ginternals.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)
	ref := ginternals.NewReference("refs/heads/main", oid)

	require.NoError(t, b.WriteReferenceSafe(ref))
	err = b.WriteReferenceSafe(ref)
	assert.ErrorIs(t, err, ginternals.ErrRefExists)
}

func TestReferenceNotFound(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	_, err := b.Reference("refs/heads/does-not-exist")
	assert.ErrorIs(t, err, ginternals.ErrRefNotFound)
}

func TestWalkReferencesVisitsAll(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	t.Cleanup(func() { require.NoError(t, b.Close()) })

	oid, err := ginternals.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)
	require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/main", oid)))
	require.NoError(t, b.WriteReference(ginternals.NewReference("refs/heads/other", oid)))

	var names []string
	err = b.WalkReferences(func(ref *ginternals.Reference) error {
		names = append(names, ref.Name())
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"refs/heads/main", "refs/heads/other"}, names)
}
