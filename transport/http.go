// Package transport implements the minimal smart-HTTP client needed
// to pull a pack stream from a remote repository: discover its refs,
// then request a pack for them and recover the pack bytes from the
// side-band-multiplexed response.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/mycroft/mg/ginternals/wire"
	"golang.org/x/xerrors"
)

const userAgent = "mg/1.0"

// Ref is one advertised reference: its name and the oid it targets,
// as hex text (parsing into ginternals.Oid is left to the caller).
type Ref struct {
	Name string
	SHA1 string
}

// FetchPack discovers repoURL's refs, requests a pack covering the
// given want oids (hex), and returns the recovered pack bytes.
func FetchPack(ctx context.Context, repoURL string, wants []string) ([]byte, error) {
	refs, err := GetRefs(ctx, repoURL)
	if err != nil {
		return nil, xerrors.Errorf("could not discover refs: %w", err)
	}
	if len(wants) == 0 {
		for _, ref := range refs {
			wants = append(wants, ref.SHA1)
		}
	}
	return getPackfile(ctx, repoURL, wants)
}

// GetRefs performs the info/refs ref-advertisement request and parses
// the pkt-line-framed response into a list of refs.
func GetRefs(ctx context.Context, repoURL string) ([]Ref, error) {
	url := repoURL + "/info/refs?service=git-upload-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Errorf("could not build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("could not reach %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body, nothing actionable on close failure

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("unexpected status %s fetching %s", resp.Status, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("could not read response body: %w", err)
	}

	return parseRefAdvertisement(body)
}

// parseRefAdvertisement parses the pkt-line-framed ref advertisement,
// skipping the leading service announcement and delimiter/flush frames.
func parseRefAdvertisement(data []byte) ([]Ref, error) {
	pkts, err := wire.ReadPktLines(data)
	if err != nil {
		return nil, xerrors.Errorf("could not parse pkt-lines: %w", err)
	}

	var refs []Ref
	for _, p := range pkts {
		if p.Flush || p.Delim || len(p.Payload) == 0 {
			continue
		}
		line := bytes.TrimRight(p.Payload, "\n")
		if bytes.HasPrefix(line, []byte("#")) {
			// the "# service=git-upload-pack" announcement line
			continue
		}
		// a ref line may carry a trailing NUL-separated capability list
		if idx := bytes.IndexByte(line, 0); idx != -1 {
			line = line[:idx]
		}
		parts := bytes.SplitN(line, []byte(" "), 2)
		if len(parts) != 2 {
			continue
		}
		refs = append(refs, Ref{SHA1: string(parts[0]), Name: string(parts[1])})
	}
	return refs, nil
}

// getPackfile builds the git-upload-pack request body out of
// wire.EncodePktLine frames and recovers the pack bytes from the
// side-band-demultiplexed response.
func getPackfile(ctx context.Context, repoURL string, wants []string) ([]byte, error) {
	var body bytes.Buffer
	body.Write(wire.EncodePktLine([]byte("command=fetch\n")))
	body.Write(wire.EncodePktLine([]byte("agent=" + userAgent + "\n")))
	body.Write(wire.EncodePktLine([]byte("object-format=sha1\n")))
	body.Write(wire.EncodeDelim())
	body.Write(wire.EncodePktLine([]byte("ofs-delta\n")))
	body.Write(wire.EncodePktLine([]byte("no-progress\n")))
	for _, sha1 := range wants {
		body.Write(wire.EncodePktLine([]byte("want " + sha1 + "\n")))
	}
	body.Write(wire.EncodeFlush())
	body.Write(wire.EncodePktLine([]byte("done\n")))

	url := repoURL + "/git-upload-pack"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, xerrors.Errorf("could not build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")
	req.Header.Set("Accept", "application/x-git-upload-pack-result")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("could not reach %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body, nothing actionable on close failure

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("unexpected status %s fetching %s", resp.Status, url)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("could not read response body: %w", err)
	}

	pkts, err := wire.ReadPktLines(respBody)
	if err != nil {
		return nil, xerrors.Errorf("could not parse pkt-lines: %w", err)
	}

	pack, err := wire.SidebandDemux(pkts)
	if err != nil {
		return nil, xerrors.Errorf("could not demultiplex response: %w", err)
	}
	return pack, nil
}
