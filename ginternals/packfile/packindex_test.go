package packfile_test

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/packfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackIndexOffsetsAndWalk(t *testing.T) {
	t.Parallel()

	raw, err := hex.DecodeString(idxHex)
	require.NoError(t, err)

	idx, err := packfile.NewIndex(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)

	blobOid, err := ginternals.NewOidFromStr(blobOidHex)
	require.NoError(t, err)
	deltaOid, err := ginternals.NewOidFromStr(deltaOidHex)
	require.NoError(t, err)

	offset1, err := idx.GetObjectOffset(blobOid)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), offset1)

	offset2, err := idx.GetObjectOffset(deltaOid)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), offset2)

	var seen []string
	require.NoError(t, idx.WalkOids(func(oid ginternals.Oid) error {
		seen = append(seen, oid.String())
		return nil
	}))
	// oids walk in ascending order as stored in the name table
	assert.Equal(t, []string{blobOidHex, deltaOidHex}, seen)
}

func TestPackIndexCRC32(t *testing.T) {
	t.Parallel()

	raw, err := hex.DecodeString(idxHex)
	require.NoError(t, err)

	idx, err := packfile.NewIndex(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)

	blobOid, err := ginternals.NewOidFromStr(blobOidHex)
	require.NoError(t, err)

	crc, err := idx.GetObjectCRC32(blobOid)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), crc)

	unknown, err := ginternals.NewOidFromStr("ffffffffffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	_, err = idx.GetObjectCRC32(unknown)
	assert.ErrorIs(t, err, ginternals.ErrObjectNotFound)
}

func TestPackIndexUnknownOid(t *testing.T) {
	t.Parallel()

	raw, err := hex.DecodeString(idxHex)
	require.NoError(t, err)

	idx, err := packfile.NewIndex(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)

	unknown, err := ginternals.NewOidFromStr("ffffffffffffffffffffffffffffffffffffffff")
	require.NoError(t, err)

	_, err = idx.GetObjectOffset(unknown)
	assert.ErrorIs(t, err, ginternals.ErrObjectNotFound)
}

func TestPackIndexRejectsBadHeader(t *testing.T) {
	t.Parallel()

	bad := make([]byte, 8)
	_, err := packfile.NewIndex(bufio.NewReader(bytes.NewReader(bad)))
	assert.ErrorIs(t, err, packfile.ErrInvalidMagic)
}

func TestPackIndexWalkStopsEarly(t *testing.T) {
	t.Parallel()

	raw, err := hex.DecodeString(idxHex)
	require.NoError(t, err)

	idx, err := packfile.NewIndex(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)

	var seen []string
	err = idx.WalkOids(func(oid ginternals.Oid) error {
		seen = append(seen, oid.String())
		return packfile.OidWalkStop
	})
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}
