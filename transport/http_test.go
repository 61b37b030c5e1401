package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mycroft/mg/ginternals/wire"
	"github.com/mycroft/mg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRefsParsesAdvertisement(t *testing.T) {
	t.Parallel()

	var body []byte
	body = append(body, []byte("001e# service=git-upload-pack\n")...)
	body = append(body, wire.EncodeFlush()...)
	body = append(body, wire.EncodePktLine([]byte("ce013625030ba8dba906f756967f9e9ca394464a HEAD\x00ofs-delta\n"))...)
	body = append(body, wire.EncodePktLine([]byte("ce013625030ba8dba906f756967f9e9ca394464a refs/heads/main\n"))...)
	body = append(body, wire.EncodeFlush()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info/refs", r.URL.Path)
		assert.Equal(t, "git-upload-pack", r.URL.Query().Get("service"))
		w.Write(body) //nolint:errcheck // test server
	}))
	defer srv.Close()

	refs, err := transport.GetRefs(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "HEAD", refs[0].Name)
	assert.Equal(t, "refs/heads/main", refs[1].Name)
}

func TestFetchPackRecoversPackBytes(t *testing.T) {
	t.Parallel()

	advertisement := wire.EncodePktLine([]byte("ce013625030ba8dba906f756967f9e9ca394464a refs/heads/main\x00ofs-delta\n"))
	advertisement = append(advertisement, wire.EncodeFlush()...)

	packBytes := []byte("PACK\x00\x00\x00\x02\x00\x00\x00\x00")
	var sideband []byte
	sideband = append(sideband, wire.EncodePktLine(append([]byte{wire.SidebandData}, packBytes...))...)
	sideband = append(sideband, wire.EncodeFlush()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/info/refs":
			w.Write(advertisement) //nolint:errcheck // test server
		case "/git-upload-pack":
			w.Write(sideband) //nolint:errcheck // test server
		}
	}))
	defer srv.Close()

	pack, err := transport.FetchPack(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, packBytes, pack)
}
