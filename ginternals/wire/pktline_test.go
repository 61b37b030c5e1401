package wire_test

import (
	"testing"

	"github.com/mycroft/mg/ginternals/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePktLine(t *testing.T) {
	t.Parallel()

	line := wire.EncodePktLine([]byte("want deadbeef\n"))
	assert.Equal(t, "0012want deadbeef\n", string(line))

	pkts, err := wire.ReadPktLines(line)
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	assert.Equal(t, "want deadbeef\n", string(pkts[0].Payload))
}

func TestReadPktLinesFlushAndDelim(t *testing.T) {
	t.Parallel()

	data := append(wire.EncodePktLine([]byte("a")), wire.EncodeFlush()...)
	data = append(data, wire.EncodeDelim()...)

	pkts, err := wire.ReadPktLines(data)
	require.NoError(t, err)
	require.Len(t, pkts, 3)
	assert.Equal(t, "a", string(pkts[0].Payload))
	assert.True(t, pkts[1].Flush)
	assert.True(t, pkts[2].Delim)
}

func TestSidebandDemuxRecoversPackChannel(t *testing.T) {
	t.Parallel()

	pkts := []wire.Pkt{
		{Payload: append([]byte{1}, []byte("PACK")...)},
		{Payload: append([]byte{2}, []byte("progress text")...)},
		{Payload: append([]byte{1}, []byte("...rest")...)},
		{Flush: true},
	}

	pack, err := wire.SidebandDemux(pkts)
	require.NoError(t, err)
	assert.Equal(t, "PACK...rest", string(pack))
}

func TestSidebandDemuxSurfacesErrorChannel(t *testing.T) {
	t.Parallel()

	pkts := []wire.Pkt{
		{Payload: append([]byte{3}, []byte("access denied")...)},
	}

	_, err := wire.SidebandDemux(pkts)
	assert.ErrorContains(t, err, "access denied")
}
